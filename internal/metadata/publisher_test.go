package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"zoiner/internal/domain"
	"zoiner/internal/observability"
)

type fakePinner struct {
	authErr error
	pinErr  error
	uri     string
	pinned  []domain.MetadataDocument
}

func (f *fakePinner) Authenticate(context.Context) error { return f.authErr }

func (f *fakePinner) PinJSON(_ context.Context, doc any, _ string) (string, error) {
	if f.pinErr != nil {
		return "", f.pinErr
	}
	f.pinned = append(f.pinned, doc.(domain.MetadataDocument))
	return f.uri, nil
}

// metadataServer mimics the /metadata endpoint.
func metadataServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/metadata" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(FromQuery(r.URL.Query()))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newPublisher(p Pinner, endpoint string, v *Validator, dryRun bool) *Publisher {
	return NewPublisher(p, endpoint, v, dryRun, observability.Nop(), zap.NewNop())
}

func TestPublish_Primary(t *testing.T) {
	var hits atomic.Int32
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/ipfs/bafyok", r.URL.Path)
		_ = json.NewEncoder(w).Encode(domain.NewMetadataDocument("Sunset", "SUN", "https://img.test/a.png"))
	}))
	defer gw.Close()

	pinner := &fakePinner{uri: "ipfs://bafyok"}
	v := NewValidator([]string{gw.URL + "/ipfs"}, time.Second, zap.NewNop())

	got, err := newPublisher(pinner, "http://unused", v, false).
		Publish(context.Background(), "0x1", "Sunset", "SUN", "https://img.test/a.png")

	require.NoError(t, err)
	assert.Equal(t, domain.PublishedMetadata{URI: "ipfs://bafyok", Origin: domain.OriginPrimary}, got)
	require.Len(t, pinner.pinned, 1)
	assert.Equal(t, "Sunset - Created via social bot", pinner.pinned[0].Description)
	assert.Equal(t, "social", pinner.pinned[0].Properties.Category)
	assert.EqualValues(t, 1, hits.Load())
}

func TestPublish_IPFSNotPropagatedIsNotFatal(t *testing.T) {
	gw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer gw.Close()

	v := NewValidator([]string{gw.URL + "/ipfs/", gw.URL + "/other/"}, time.Second, zap.NewNop())

	got, err := newPublisher(&fakePinner{uri: "ipfs://bafyslow"}, "http://unused", v, false).
		Publish(context.Background(), "0x1", "Sunset", "SUN", "https://img.test/a.png")

	require.NoError(t, err)
	assert.Equal(t, domain.OriginPrimary, got.Origin)
}

func TestPublish_FallbackWhenPinningUnavailable(t *testing.T) {
	srv := metadataServer(t)
	v := NewValidator(nil, time.Second, zap.NewNop())

	for name, pinner := range map[string]*fakePinner{
		"auth": {authErr: errors.New("401")},
		"pin":  {pinErr: errors.New("connection refused")},
	} {
		t.Run(name, func(t *testing.T) {
			got, err := newPublisher(pinner, srv.URL+"/", v, false).
				Publish(context.Background(), "0x1", "Sunset", "SUN", "https://img.test/a.png")

			require.NoError(t, err)
			assert.Equal(t, domain.OriginFallback, got.Origin)
			assert.True(t, strings.HasPrefix(got.URI, srv.URL+"/metadata?"))

			doc, err := v.Fetch(context.Background(), got.URI)
			require.NoError(t, err)
			assert.Equal(t, "Sunset", doc.Name)
			assert.Equal(t, "SUN", doc.Symbol)
			assert.Equal(t, "https://img.test/a.png", doc.Image)
		})
	}
}

func TestPublish_NilPinnerFallsBack(t *testing.T) {
	got, err := newPublisher(nil, "https://bot.test", nil, true).
		Publish(context.Background(), "0x1", "A b", "AB", "https://img.test/a.png?x=1")

	require.NoError(t, err)
	assert.Equal(t, domain.OriginFallback, got.Origin)
	assert.Equal(t, "https://bot.test/metadata?image=https%3A%2F%2Fimg.test%2Fa.png%3Fx%3D1&name=A+b&symbol=AB", got.URI)
}

func TestPublish_HTTPValidationIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"Sunset","description":"","image":""}`))
	}))
	defer srv.Close()

	v := NewValidator(nil, time.Second, zap.NewNop())

	_, err := newPublisher(&fakePinner{pinErr: errors.New("down")}, srv.URL, v, false).
		Publish(context.Background(), "0x1", "Sunset", "SUN", "https://img.test/a.png")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPublish_DryRunSkipsValidation(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := NewValidator(nil, time.Second, zap.NewNop())

	got, err := newPublisher(&fakePinner{pinErr: errors.New("down")}, srv.URL, v, true).
		Publish(context.Background(), "0x1", "Sunset", "SUN", "https://img.test/a.png")

	require.NoError(t, err)
	assert.Equal(t, domain.OriginFallback, got.Origin)
	assert.Zero(t, hits.Load())
}

func TestValidate_RejectsUnknownScheme(t *testing.T) {
	v := NewValidator(nil, time.Second, zap.NewNop())

	for _, uri := range []string{"ar://abc", "ftp://x/y", "bafy"} {
		err := v.Validate(context.Background(), uri)
		assert.ErrorIs(t, err, domain.ErrValidation, uri)
	}
}

func TestFromQuery_Defaults(t *testing.T) {
	doc := FromQuery(nil)

	assert.Equal(t, DefaultName, doc.Name)
	assert.Equal(t, DefaultSymbol, doc.Symbol)
	assert.Equal(t, DefaultImage, doc.Image)
	assert.NoError(t, doc.Validate())
}
