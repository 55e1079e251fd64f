package share

import (
	"bytes"
	"encoding/json"
	"image/png"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(publicURL string) *Handler {
	h := NewHandler(publicURL, "3001")
	h.lookupIP = func() string { return "192.168.1.20" }
	return h
}

func serve(t *testing.T, h *Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "http://192.168.1.20:3001/upload", newTestHandler("").JoinURL())
	assert.Equal(t, "https://wall.example.com/upload", newTestHandler("https://wall.example.com/").JoinURL())
}

func TestHandleIP(t *testing.T) {
	rec := serve(t, newTestHandler(""), "/api/ip")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "192.168.1.20", body["ip"])
}

func TestHandleJoinQR(t *testing.T) {
	rec := serve(t, newTestHandler(""), "/api/join/qr.png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, qrSize, img.Bounds().Dx())
}

func TestLocalIP(t *testing.T) {
	ip := net.ParseIP(LocalIP())
	require.NotNil(t, ip)
	assert.NotNil(t, ip.To4())
}
