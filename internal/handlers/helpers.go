package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/mgoubin/screendrop/internal/config"
	"github.com/mgoubin/screendrop/internal/models"
)

// sendError writes a JSON error response with a stable machine-readable code
func sendError(w http.ResponseWriter, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(models.ErrorResponse{
		Status:  "error",
		Message: message,
		Code:    code,
	})
}

// sendJSON writes a JSON response with the given status code
func sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// buildDownloadURL constructs the full download URL for a token.
// Respects PUBLIC_URL config and reverse proxy headers.
func buildDownloadURL(r *http.Request, cfg *config.Config, token string) string {
	return baseURL(r, cfg) + cfg.APIPrefix + "/download/" + token
}

// buildViewURL constructs the full inline view URL for a token
func buildViewURL(r *http.Request, cfg *config.Config, token string) string {
	return baseURL(r, cfg) + cfg.APIPrefix + "/view/" + token
}

func baseURL(r *http.Request, cfg *config.Config) string {
	if cfg.PublicURL != "" {
		return strings.TrimSuffix(cfg.PublicURL, "/")
	}
	return getScheme(r) + "://" + getHost(r)
}

// getScheme returns the scheme (http/https) respecting reverse proxy headers
func getScheme(r *http.Request) string {
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// getHost returns the host respecting reverse proxy headers
func getHost(r *http.Request) string {
	if host := r.Header.Get("X-Forwarded-Host"); host != "" {
		return host
	}
	return r.Host
}

// getClientIP extracts the client IP address from the request
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	return r.RemoteAddr
}
