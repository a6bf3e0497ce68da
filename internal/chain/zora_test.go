package chain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	base := errors.New("boom")

	assert.Equal(t, KindUnknown, KindOf(base))
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, KindReverted, KindOf(wrap(KindReverted, base)))

	wrapped := fmt.Errorf("attempt 2: %w", wrap(KindMetadataFetch, base))
	assert.Equal(t, KindMetadataFetch, KindOf(wrapped))
	assert.True(t, IsRetryable(wrapped))
	assert.ErrorIs(t, wrapped, base)

	assert.False(t, IsRetryable(wrap(KindSubmit, base)))
	assert.Nil(t, wrap(KindSubmit, nil))
}

func TestErrorMessage(t *testing.T) {
	err := wrap(KindMetadataFetch, errors.New("HTTP 404"))
	assert.Equal(t, "Metadata fetch failed: HTTP 404", err.Error())

	err = wrap(KindSubmit, errors.New("insufficient funds"))
	assert.Equal(t, "insufficient funds", err.Error())
}

func TestFetchMetadata(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"Sunset","description":"d","image":"https://img.test/a.png"}`))
	})
	mux.HandleFunc("/noimage", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":"Sunset"}`))
	})
	mux.HandleFunc("/garbage", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := &http.Client{Timeout: time.Second}
	ctx := context.Background()

	require.NoError(t, FetchMetadata(ctx, client, srv.URL+"/ok"))
	assert.Error(t, FetchMetadata(ctx, client, srv.URL+"/noimage"))
	assert.Error(t, FetchMetadata(ctx, client, srv.URL+"/garbage"))
	assert.Error(t, FetchMetadata(ctx, client, srv.URL+"/missing"))
}

func TestCheckMetadata_ResolvesIPFSThroughGateway(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"name":"Sunset","description":"d","image":"https://img.test/a.png"}`))
	}))
	defer srv.Close()

	z := &Zora{cfg: Config{IPFSGateway: srv.URL + "/ipfs/"}, http: srv.Client()}

	require.NoError(t, z.checkMetadata(context.Background(), "ipfs://bafyabc"))
	assert.Equal(t, "/ipfs/bafyabc", path)
}

func TestCheckMetadata_GatewayBaseWithoutTrailingSlash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ipfs/bafyabc" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"name":"Sunset","description":"d","image":"https://img.test/a.png"}`))
	}))
	defer srv.Close()

	z := &Zora{cfg: Config{IPFSGateway: srv.URL + "/ipfs"}, http: srv.Client()}

	require.NoError(t, z.checkMetadata(context.Background(), "ipfs://bafyabc"))
}

func TestCoinFromReceipt_MissingEvent(t *testing.T) {
	_, _, _, err := coinFromReceipt(&types.Receipt{})
	assert.Error(t, err)
}
