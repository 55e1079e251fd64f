package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/rs/zerolog/log"
)

// FormField is the multipart field the image is sent in
const FormField = "image"

// UploadResponse is returned for a successful upload
type UploadResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
	ID      int64  `json:"id"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Handler exposes the ingestion service over HTTP
type Handler struct {
	service  *Service
	maxBytes int64
}

// NewHandler creates a new upload handler. maxBytes <= 0 disables the size limit.
func NewHandler(service *Service, maxBytes int64) *Handler {
	return &Handler{
		service:  service,
		maxBytes: maxBytes,
	}
}

// HandleUpload handles POST /upload with the image in multipart field "image".
// The part is streamed straight into storage.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart/form-data")
		return
	}

	part, err := nextImagePart(reader)
	if err != nil {
		if errors.Is(err, errNoImagePart) {
			writeError(w, http.StatusBadRequest, "no file uploaded")
			return
		}
		h.writeSubmitError(w, r, err)
		return
	}
	defer part.Close()

	record, err := h.service.Submit(r.Context(), part, part.FileName())
	if err != nil {
		h.writeSubmitError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(UploadResponse{
		Success: true,
		URL:     record.Reference,
		ID:      record.ID,
	}); err != nil {
		log.Error().Err(err).Msg("failed to encode upload response")
	}
}

// RegisterRoutes registers the upload route, wrapped by the given middleware
func (h *Handler) RegisterRoutes(mux *http.ServeMux, middleware ...func(http.Handler) http.Handler) {
	var handler http.Handler = http.HandlerFunc(h.HandleUpload)
	for i := len(middleware) - 1; i >= 0; i-- {
		handler = middleware[i](handler)
	}
	mux.Handle("POST /upload", handler)
}

var errNoImagePart = errors.New("no image part")

func nextImagePart(reader *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			return nil, errNoImagePart
		}
		if err != nil {
			return nil, err
		}
		// a plain form value named "image" carries no file
		if part.FormName() == FormField && part.FileName() != "" {
			return part, nil
		}
		part.Close()
	}
}

func (h *Handler) writeSubmitError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, ErrNoContent):
		writeError(w, http.StatusBadRequest, "no file uploaded")
	case errors.As(err, &maxErr):
		writeError(w, http.StatusRequestEntityTooLarge, "image too large")
	case errors.Is(err, context.DeadlineExceeded):
		log.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("upload timed out")
		writeError(w, http.StatusGatewayTimeout, "storage timed out")
	case errors.Is(err, context.Canceled):
		// client went away, nobody to answer
		log.Info().Str("remote_addr", r.RemoteAddr).Msg("upload aborted by client")
	default:
		log.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("upload failed")
		writeError(w, http.StatusInternalServerError, "upload failed")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Success: false, Error: message}); err != nil {
		log.Error().Err(err).Msg("failed to encode error response")
	}
}
