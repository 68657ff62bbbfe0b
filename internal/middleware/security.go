package middleware

import (
	"net/http"
	"strings"
)

// SecurityConfig holds configuration for security headers.
type SecurityConfig struct {
	// IsDevelopment disables HSTS so plain-HTTP local runs keep working.
	IsDevelopment bool
	// ConnectSources are added to the CSP connect-src after 'self', for a
	// notification socket served from another origin.
	ConnectSources []string
}

// Security sets the response security headers. Every response carries
// per-member data or sets session cookies, so nothing is cacheable.
func Security(cfg SecurityConfig) func(http.Handler) http.Handler {
	connect := "'self'"
	if len(cfg.ConnectSources) > 0 {
		connect += " " + strings.Join(cfg.ConnectSources, " ")
	}

	headers := [][2]string{
		{"X-Content-Type-Options", "nosniff"},
		{"X-Frame-Options", "DENY"},
		{"X-XSS-Protection", "0"},
		{"Referrer-Policy", "strict-origin-when-cross-origin"},
		{"Content-Security-Policy", "default-src 'none'; connect-src " + connect + "; frame-ancestors 'none'"},
		{"Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=(), usb=()"},
		{"Cache-Control", "no-store"},
	}
	if !cfg.IsDevelopment {
		headers = append(headers, [2]string{"Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload"})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range headers {
				h.Set(kv[0], kv[1])
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MaxBodySize rejects declared bodies over maxBytes with 413 and caps
// streamed bodies with http.MaxBytesReader.
func MaxBodySize(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusRequestEntityTooLarge)
				_, _ = w.Write([]byte(`{"error":{"code":"PAYLOAD_TOO_LARGE","message":"Request body too large"}}`))
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
