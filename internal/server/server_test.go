package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tpm/internal/config"
)

func newTestServer(t *testing.T, mutate func(cfg *config.AppConfig)) (*Server, string) {
	t.Helper()
	base := t.TempDir()

	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	srv, err := NewServer(cfg, base)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.GetStore().Close() })
	return srv, base
}

func TestServer_APIAndDataDir(t *testing.T) {
	srv, base := newTestServer(t, nil)
	assert.FileExists(t, filepath.Join(base, "data", "tpm.db"))
	assert.DirExists(t, filepath.Join(base, "data", "exports"))

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"success":false`)
}

func TestServer_GzipSkipsImportStream(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/machines", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	// 缺少文件时直接返回 400，但路径本身不经过压缩
	req = httptest.NewRequest(http.MethodPost, "/api/import", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, w.Header().Get("Content-Encoding"))
}

func TestServer_PreflightAndSPAFallback(t *testing.T) {
	base := t.TempDir()
	web := filepath.Join(base, "web")
	require.NoError(t, os.MkdirAll(filepath.Join(web, "assets"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(web, "index.html"), []byte("<html>tpm</html>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(web, "assets", "app.js"), []byte("console.log(1)"), 0644))

	srv, err := NewServer(config.DefaultConfig(), base)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.GetStore().Close() })

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/machines", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/machines/42", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "tpm")

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/assets/app.js", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
