package middleware

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// CORSConfig holds CORS configuration options.
type CORSConfig struct {
	// SelfOrigin is the origin the app itself is served from. Browsers send
	// it on same-origin POSTs; it passes without CORS headers.
	SelfOrigin string

	// AllowedOrigins lists extra origins (e.g. a separately hosted front
	// end). Entries may be "*.example.com" to allow subdomains.
	AllowedOrigins []string

	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string

	// AllowCredentials must stay true for cookie sessions to work
	// cross-origin; it is never combined with "*".
	AllowCredentials bool

	// MaxAge is the preflight cache lifetime in seconds.
	MaxAge int
}

// DefaultCORSConfig returns production-safe CORS defaults. Sessions travel
// in cookies, so credentials are allowed for the listed origins.
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Content-Type",
			"X-Request-ID",
			"Accept",
			"Accept-Language",
		},
		ExposedHeaders: []string{
			"X-Request-ID",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
		},
		AllowCredentials: true,
		MaxAge:           86400,
	}
}

// OriginOf returns the scheme://host[:port] origin of rawURL, or "" when
// rawURL is not absolute.
func OriginOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

// CORS handles cross-origin requests.
//
// The session is a cookie, so a cross-site form or fetch would carry it.
// Unsafe methods from an origin that is neither SelfOrigin nor allowed are
// therefore rejected with 403 instead of being left to the browser.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	exposed := strings.Join(cfg.ExposedHeaders, ", ")
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(cfg.MaxAge)
	}
	self := strings.ToLower(cfg.SelfOrigin)
	origins := newOriginSet(cfg.AllowedOrigins)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.ToLower(r.Header.Get("Origin"))
			if origin == "" || (self != "" && origin == self) {
				next.ServeHTTP(w, r)
				return
			}

			if !origins.allows(origin) {
				if r.Method != http.MethodGet && r.Method != http.MethodHead {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusForbidden)
					_, _ = w.Write([]byte(`{"error":{"code":"ORIGIN_NOT_ALLOWED","message":"Cross-origin request not allowed"}}`))
					return
				}
				// The browser withholds the response without CORS headers.
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", r.Header.Get("Origin"))
			h.Add("Vary", "Origin")
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
			if exposed != "" {
				h.Set("Access-Control-Expose-Headers", exposed)
			}

			if r.Method == http.MethodOptions {
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				if maxAge != "" {
					h.Set("Access-Control-Max-Age", maxAge)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type originSet struct {
	exact    map[string]struct{}
	suffixes []string
}

func newOriginSet(allowed []string) originSet {
	s := originSet{exact: make(map[string]struct{}, len(allowed))}
	for _, o := range allowed {
		o = strings.ToLower(strings.TrimSpace(o))
		switch {
		case o == "" || o == "*":
			// A bare wildcard is never honoured with credentials.
		case strings.HasPrefix(o, "*."):
			s.suffixes = append(s.suffixes, o[1:])
		default:
			s.exact[strings.TrimSuffix(o, "/")] = struct{}{}
		}
	}
	return s
}

func (s originSet) allows(origin string) bool {
	if _, ok := s.exact[origin]; ok {
		return true
	}
	host := origin
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}
	for _, suffix := range s.suffixes {
		if strings.HasSuffix(host, suffix) && len(host) > len(suffix) {
			return true
		}
	}
	return false
}
