// Package share tells participants how to reach the wall: the host's LAN
// address and a QR code of the upload page.
package share

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"
)

// qrSize is the edge length in pixels of generated QR codes
const qrSize = 512

// Handler serves join information for the wall
type Handler struct {
	publicURL string
	port      string
	lookupIP  func() string
}

// NewHandler creates a share handler. publicURL overrides the LAN-derived join
// link, e.g. when the wall sits behind a tunnel or reverse proxy.
func NewHandler(publicURL, port string) *Handler {
	return &Handler{
		publicURL: strings.TrimSuffix(publicURL, "/"),
		port:      port,
		lookupIP:  LocalIP,
	}
}

// JoinURL is the page participants open to upload
func (h *Handler) JoinURL() string {
	if h.publicURL != "" {
		return h.publicURL + "/upload"
	}
	return fmt.Sprintf("http://%s/upload", net.JoinHostPort(h.lookupIP(), h.port))
}

// HandleIP handles GET /api/ip
func (h *Handler) HandleIP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"ip": h.lookupIP()})
}

// HandleJoin handles GET /api/join
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"url": h.JoinURL()})
}

// HandleJoinQR handles GET /api/join/qr.png
func (h *Handler) HandleJoinQR(w http.ResponseWriter, r *http.Request) {
	url := h.JoinURL()
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		log.Error().Err(err).Str("url", url).Msg("failed to generate join QR code")
		http.Error(w, "failed to generate QR code", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if _, err := w.Write(png); err != nil {
		log.Debug().Err(err).Msg("failed to write QR code")
	}
}

// RegisterRoutes registers the share routes
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/ip", h.HandleIP)
	mux.HandleFunc("GET /api/join", h.HandleJoin)
	mux.HandleFunc("GET /api/join/qr.png", h.HandleJoinQR)
}

// LocalIP returns the first non-loopback IPv4 address of an up interface,
// or 127.0.0.1 when there is none.
func LocalIP() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		log.Warn().Err(err).Msg("failed to list network interfaces")
		return "127.0.0.1"
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipNet.IP.To4(); ip4 != nil && !ip4.IsLinkLocalUnicast() {
				return ip4.String()
			}
		}
	}
	return "127.0.0.1"
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
