package neynar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zoiner/internal/domain"
)

const castJSON = `{
  "cast": {
    "hash": "0xabc",
    "text": "@zoiner coin this content: name: Sunset ticker: SUN",
    "author": {
      "fid": 42,
      "username": "alice",
      "display_name": "Alice",
      "verifications": ["0x2222222222222222222222222222222222222222"],
      "verified_addresses": {"eth_addresses": ["0x1111111111111111111111111111111111111111"]}
    },
    "mentioned_profiles": [{"fid": 1057647, "username": "zoiner"}],
    "frames": [{"image": "https://frames.test/f.png", "frames_url": "https://frames.test"}],
    "embeds": [
      {"url": "https://imagedelivery.test/sunset", "metadata": {"content_type": "image/jpeg", "image": {"width_px": 10, "height_px": 10}}},
      {"url": "https://blog.test/post", "metadata": {"content_type": "text/html", "html": {"ogTitle": "Post", "ogImage": [{"url": "https://blog.test/og.png"}]}}},
      {"url": "https://files.test/raw.png"},
      {"cast_id": {"fid": 3, "hash": "0xdef"}}
    ],
    "attachments": ["https://att.test/a.png", {"url": "https://att.test/b.png", "type": "image"}, 7]
  }
}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/cast", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		switch r.Method {
		case http.MethodGet:
			if r.URL.Query().Get("identifier") != "0xabc" {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"message":"Cast not found"}`))
				return
			}
			assert.Equal(t, "hash", r.URL.Query().Get("type"))
			_, _ = w.Write([]byte(castJSON))
		case http.MethodPost:
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "signer", body["signer_uuid"])
			assert.Equal(t, "0xabc", body["parent"])
			assert.EqualValues(t, 42, body["parent_author_fid"])
			assert.Equal(t, []any{map[string]any{"url": "https://basescan.org/tx/0x1"}}, body["embeds"])
			_, _ = w.Write([]byte(`{"success":true,"cast":{"hash":"0xreply"}}`))
		}
	})
	mux.HandleFunc("/user/bulk", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("fids") {
		case "42":
			_, _ = w.Write([]byte(`{"users":[{"fid":42,"username":"alice","verifications":["0x2222222222222222222222222222222222222222"]}]}`))
		case "500":
			w.WriteHeader(http.StatusInternalServerError)
		default:
			_, _ = w.Write([]byte(`{"users":[]}`))
		}
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCast(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient("key", "signer").WithBaseURL(srv.URL)

	cast, err := c.Cast(context.Background(), "0xabc")
	require.NoError(t, err)

	assert.Equal(t, "0xabc", cast.Hash)
	assert.Equal(t, int64(42), cast.Author.FID)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", cast.Author.VerifiedAddress)
	assert.Equal(t, []int64{1057647}, cast.Mentions)
	assert.Equal(t, []string{"https://frames.test/f.png"}, cast.ImageURLs)
	assert.Equal(t, []domain.Media{{URL: "https://imagedelivery.test/sunset", Type: "image/jpeg"}}, cast.EmbeddedMedia)

	require.Len(t, cast.Embeds, 3)
	assert.Equal(t, domain.EmbedRich, cast.Embeds[0].Kind)
	assert.Equal(t, "https://blog.test/og.png", cast.Embeds[0].Image)
	assert.Equal(t, domain.Embed{Kind: domain.EmbedLink, URL: "https://files.test/raw.png"}, cast.Embeds[1])
	assert.Equal(t, domain.EmbedUnknown, cast.Embeds[2].Kind)

	require.Len(t, cast.Attachments, 3)
	assert.Equal(t, domain.Attachment{Kind: domain.AttachmentURL, URL: "https://att.test/a.png"}, cast.Attachments[0])
	assert.Equal(t, domain.Attachment{Kind: domain.AttachmentObject, URL: "https://att.test/b.png", Type: "image"}, cast.Attachments[1])
	assert.Equal(t, domain.AttachmentUnknown, cast.Attachments[2].Kind)
}

func TestCast_NotFound(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient("key", "signer").WithBaseURL(srv.URL)

	_, err := c.Cast(context.Background(), "0xmissing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUser(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient("key", "signer").WithBaseURL(srv.URL)
	ctx := context.Background()

	user, err := c.User(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.DisplayName)
	assert.Equal(t, "0x2222222222222222222222222222222222222222", user.VerifiedAddress)

	_, err = c.User(ctx, 7)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = c.User(ctx, 500)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrNotFound)
}

func TestPublish(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient("key", "signer").WithBaseURL(srv.URL)

	hash, err := c.Publish(context.Background(), "hi", "0xabc", 42, []string{"https://basescan.org/tx/0x1"})
	require.NoError(t, err)
	assert.Equal(t, "0xreply", hash)
}
