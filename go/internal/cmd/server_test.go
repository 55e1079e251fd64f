package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mcdev12/fotowall/go/internal/config"
	"github.com/mcdev12/fotowall/go/internal/gallery/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Services, *httptest.Server) {
	t.Helper()

	static := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(static, "index.html"), []byte("<html>wall</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(static, "app.js"), []byte("console.log(1)"), 0o644))

	cfg := config.Default()
	cfg.StaticDir = static
	cfg.Storage.UploadDir = t.TempDir()
	cfg.Upload.RatePerMinute = 60
	cfg.Upload.Burst = 2

	ctx, cancel := context.WithCancel(context.Background())
	services, err := setupServices(ctx, &cfg)
	require.NoError(t, err)
	services.Start(ctx)

	srv := httptest.NewServer(setupHandler(&cfg, services))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		services.Close()
	})
	return services, srv
}

func upload(t *testing.T, srv *httptest.Server, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(ingest.FormField, "photo.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp, err := http.Post(srv.URL+"/upload", mw.FormDataContentType(), &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getBody(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func TestServer_UploadIsServedAndListed(t *testing.T) {
	services, srv := newTestServer(t)

	resp := upload(t, srv, "jpeg bytes")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var uploaded ingest.UploadResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uploaded))
	require.True(t, uploaded.Success)

	status, body := getBody(t, srv.URL+uploaded.URL)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "jpeg bytes", body)

	assert.Equal(t, 1, services.Gateway.GetStats().Images)
}

func TestServer_UploadRateLimited(t *testing.T) {
	_, srv := newTestServer(t)

	assert.Equal(t, http.StatusOK, upload(t, srv, "a").StatusCode)
	assert.Equal(t, http.StatusOK, upload(t, srv, "b").StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, upload(t, srv, "c").StatusCode)
}

func TestServer_SPAFallback(t *testing.T) {
	_, srv := newTestServer(t)

	status, body := getBody(t, srv.URL+"/presenter")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "wall")

	// GET /upload is the participant page, POST /upload the endpoint
	status, body = getBody(t, srv.URL+"/upload")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "wall")

	status, body = getBody(t, srv.URL+"/app.js")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "console.log(1)", body)
}

func TestServer_Health(t *testing.T) {
	_, srv := newTestServer(t)

	status, body := getBody(t, srv.URL+"/health")
	require.Equal(t, http.StatusOK, status)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(body), &health))
	assert.Equal(t, "ok", health["status"])
	assert.NotContains(t, health, "nats_connected")
}

func TestServer_JoinQR(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/join/qr.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
}
