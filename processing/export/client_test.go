package export

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/projects/42/export", r.URL.Path)
		assert.Equal(t, "JSON", r.URL.Query().Get("exportType"))
		assert.Equal(t, "Token secret", r.Header.Get("Authorization"))
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "exports")
	c := NewClient(srv.URL, "secret")

	path, err := c.FetchJSON(context.Background(), 42, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "project_42_ls.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFetchJSONStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := NewClient(srv.URL, "bad")

	_, err := c.FetchJSON(context.Background(), 1, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")

	_, statErr := os.Stat(ExportPath(dir, 1))
	assert.True(t, os.IsNotExist(statErr))
}

func TestFetchJSONCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(srv.URL, "k").FetchJSON(ctx, 1, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}
