package ingest

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("caption", "ignored"))
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func doUpload(t *testing.T, h *Handler, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleUpload_Success(t *testing.T) {
	svc, hub := newTestService(t, newFakeStore(), time.Second)
	h := NewHandler(svc, 1<<20)

	body, ct := multipartBody(t, FormField, "party.jpg", []byte("jpeg bytes"))
	rec := doUpload(t, h, body, ct)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp UploadResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.Success)
	require.Len(t, hub.Snapshot(), 1)
	assert.Equal(t, hub.Snapshot()[0].Reference, resp.URL)
	assert.Equal(t, hub.Snapshot()[0].ID, resp.ID)
}

func TestHandleUpload_NoFile(t *testing.T) {
	svc, hub := newTestService(t, newFakeStore(), time.Second)
	h := NewHandler(svc, 1<<20)

	body, ct := multipartBody(t, "", "", nil)
	rec := doUpload(t, h, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct = multipartBody(t, FormField, "empty.jpg", nil)
	rec = doUpload(t, h, body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doUpload(t, h, bytes.NewBufferString("raw"), "text/plain")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, hub.Snapshot())
	assert.Equal(t, uint64(0), hub.Stats().LastSeq)
}

func TestHandleUpload_ImageAsTextField(t *testing.T) {
	store := newFakeStore()
	svc, hub := newTestService(t, store, time.Second)
	viewer := hub.Subscribe()
	<-viewer.Messages()
	h := NewHandler(svc, 1<<20)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField(FormField, "just some text"))
	require.NoError(t, mw.Close())

	rec := doUpload(t, h, &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, hub.Snapshot())
	assert.Empty(t, store.saved)
	assert.Equal(t, 0, queued(viewer))
}

func TestHandleUpload_TooLarge(t *testing.T) {
	svc, hub := newTestService(t, newFakeStore(), time.Second)
	h := NewHandler(svc, 1024)

	body, ct := multipartBody(t, FormField, "huge.jpg", bytes.Repeat([]byte("x"), 8<<10))
	rec := doUpload(t, h, body, ct)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, hub.Snapshot())
	assert.Equal(t, uint64(0), hub.Stats().LastSeq)
}

func TestHandleUpload_StorageFailure(t *testing.T) {
	store := newFakeStore()
	store.err = assert.AnError
	svc, hub := newTestService(t, store, time.Second)
	h := NewHandler(svc, 1<<20)

	body, ct := multipartBody(t, FormField, "a.jpg", []byte("x"))
	rec := doUpload(t, h, body, ct)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, hub.Snapshot())
}

func TestHandleUpload_StorageTimeout(t *testing.T) {
	store := newFakeStore()
	store.block = true
	svc, _ := newTestService(t, store, 10*time.Millisecond)
	h := NewHandler(svc, 1<<20)

	body, ct := multipartBody(t, FormField, "a.jpg", []byte("x"))
	rec := doUpload(t, h, body, ct)
	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
}

func TestHandleUpload_MethodNotAllowed(t *testing.T) {
	svc, _ := newTestService(t, newFakeStore(), time.Second)
	h := NewHandler(svc, 0)

	rec := httptest.NewRecorder()
	h.HandleUpload(rec, httptest.NewRequest(http.MethodGet, "/upload", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
