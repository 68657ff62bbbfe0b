package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSecurity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		cfg         SecurityConfig
		header      string
		wantPresent bool
		wantValue   string
	}{
		{"nosniff", SecurityConfig{}, "X-Content-Type-Options", true, "nosniff"},
		{"frame deny", SecurityConfig{}, "X-Frame-Options", true, "DENY"},
		{"referrer policy", SecurityConfig{}, "Referrer-Policy", true, "strict-origin-when-cross-origin"},
		{"no store", SecurityConfig{}, "Cache-Control", true, "no-store"},
		{"csp same origin socket", SecurityConfig{}, "Content-Security-Policy", true,
			"default-src 'none'; connect-src 'self'; frame-ancestors 'none'"},
		{"csp extra connect sources", SecurityConfig{ConnectSources: []string{"wss://rt.example.com"}}, "Content-Security-Policy", true,
			"default-src 'none'; connect-src 'self' wss://rt.example.com; frame-ancestors 'none'"},
		{"hsts in production", SecurityConfig{}, "Strict-Transport-Security", true, "max-age=31536000; includeSubDomains; preload"},
		{"no hsts in development", SecurityConfig{IsDevelopment: true}, "Strict-Transport-Security", false, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := Security(tt.cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard", nil))

			got := rec.Header().Get(tt.header)
			if !tt.wantPresent {
				if got != "" {
					t.Errorf("%s = %q, want absent", tt.header, got)
				}
				return
			}
			if got != tt.wantValue {
				t.Errorf("%s = %q, want %q", tt.header, got, tt.wantValue)
			}
		})
	}
}

func TestMaxBodySize(t *testing.T) {
	t.Parallel()

	const limit = 16

	tests := []struct {
		name       string
		body       string
		declare    bool
		wantStatus int
	}{
		{"small body", `{"a":1}`, true, http.StatusOK},
		{"declared too large", strings.Repeat("x", limit+1), true, http.StatusRequestEntityTooLarge},
		{"streamed too large", strings.Repeat("x", limit+1), false, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			handler := MaxBodySize(limit)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if _, err := io.ReadAll(r.Body); err != nil {
					w.WriteHeader(http.StatusRequestEntityTooLarge)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/applications", strings.NewReader(tt.body))
			if !tt.declare {
				req.ContentLength = -1
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
