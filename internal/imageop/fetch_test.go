package imageop

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/imgproc_go_server/internal/testutil"
)

func newTestFetcher(root string, maxSize int64) *Fetcher {
	return NewFetcherWithClient(&http.Client{}, root, maxSize)
}

func TestFetch_Remote(t *testing.T) {
	payload := testutil.PNGImage(t, 8, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(payload)
	}))
	defer server.Close()

	f := newTestFetcher(t.TempDir(), 1<<20)
	data, contentType, err := f.Fetch(context.Background(), server.URL+"/cat.png")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, "image/png", contentType)
}

func TestFetch_RemoteNotImage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	f := newTestFetcher(t.TempDir(), 1<<20)
	_, _, err := f.Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrNotImage)
}

func TestFetch_RemoteBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := newTestFetcher(t.TempDir(), 1<<20)
	_, _, err := f.Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestFetch_RemoteTooLarge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(make([]byte, 2048))
	}))
	defer server.Close()

	f := newTestFetcher(t.TempDir(), 1024)
	_, _, err := f.Fetch(context.Background(), server.URL)
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestFetch_Local(t *testing.T) {
	root := t.TempDir()
	payload := testutil.PNGImage(t, 8, 8)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "animals"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "animals", "cat.png"), payload, 0o644))

	f := newTestFetcher(root, 1<<20)
	data, contentType, err := f.Fetch(context.Background(), "/animals/cat.png")
	require.NoError(t, err)
	assert.Equal(t, payload, data)
	assert.Equal(t, "image/png", contentType)
}

func TestFetch_LocalMissing(t *testing.T) {
	f := newTestFetcher(t.TempDir(), 1<<20)
	_, _, err := f.Fetch(context.Background(), "/missing.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFetch_LocalTraversalBlocked(t *testing.T) {
	root := t.TempDir()
	f := newTestFetcher(root, 1<<20)

	_, _, err := f.Fetch(context.Background(), "/../../etc/passwd")
	assert.ErrorIs(t, err, ErrNotFound)
}
