package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mcdev12/fotowall/go/internal/config"
	"github.com/mcdev12/fotowall/go/internal/ratelimit"
	"github.com/mcdev12/fotowall/go/internal/storage"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(cfg *config.Config, services *Services) *http.Server {
	handler := setupHandler(cfg, services)

	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func setupHandler(cfg *config.Config, services *Services) http.Handler {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	// Viewer WebSocket and gallery state
	services.Gateway.RegisterRoutes(mux)

	// Uploads
	services.Upload.RegisterRoutes(mux, ratelimit.Middleware(services.Limiter))

	// Join link and QR code
	services.Share.RegisterRoutes(mux)

	// Locally stored images
	if local, ok := services.Objects.(*storage.LocalStore); ok {
		prefix := strings.TrimSuffix(cfg.Storage.URLPrefix, "/") + "/"
		mux.Handle("GET "+prefix, http.StripPrefix(prefix, http.FileServer(http.Dir(local.Dir()))))
	}

	setupHealthCheck(mux, services)

	// Frontend
	if cfg.StaticDir != "" {
		mux.Handle("/", spaHandler{dir: cfg.StaticDir})
	}

	return c.Handler(mux)
}

func setupHealthCheck(mux *http.ServeMux, services *Services) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(services.health()); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}

// spaHandler serves the built frontend, answering unknown paths with index.html
// so client-side routes like /presenter and /upload load the app.
type spaHandler struct {
	dir string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path := filepath.Join(h.dir, filepath.FromSlash(filepath.Clean("/"+r.URL.Path)))
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		http.ServeFile(w, r, path)
		return
	}
	http.ServeFile(w, r, filepath.Join(h.dir, "index.html"))
}
