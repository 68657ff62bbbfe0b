// Package session resolves the signed-in identity from the session cookies
// of a request. Tokens are validated live against the auth service on every
// call; nothing is cached.
package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/guildhall/guildhall/internal/authapi"
	"github.com/guildhall/guildhall/internal/metrics"
	"github.com/guildhall/guildhall/internal/model"
)

// Default cookie names, compatible with the hosted auth service helpers.
const (
	DefaultAccessCookie  = "sb-access-token"
	DefaultRefreshCookie = "sb-refresh-token"

	defaultMaxAge        = 7 * 24 * time.Hour
	defaultRefreshLeeway = 30 * time.Second
)

// ErrSessionExpired is returned when the cookies no longer map to a session.
var ErrSessionExpired = errors.New("session expired")

// AuthClient is the subset of the auth service the resolver needs.
type AuthClient interface {
	GetUser(ctx context.Context, accessToken string) (*model.Identity, error)
	Refresh(ctx context.Context, refreshToken string) (*authapi.Session, error)
}

// CookieConfig controls the names and attributes of the session cookies.
type CookieConfig struct {
	AccessName  string
	RefreshName string
	Domain      string
	Secure      bool
	MaxAge      time.Duration
}

func (c CookieConfig) withDefaults() CookieConfig {
	if c.AccessName == "" {
		c.AccessName = DefaultAccessCookie
	}
	if c.RefreshName == "" {
		c.RefreshName = DefaultRefreshCookie
	}
	if c.MaxAge <= 0 {
		c.MaxAge = defaultMaxAge
	}
	return c
}

// Resolver implements the request to identity step of the access gate.
type Resolver struct {
	auth          AuthClient
	cookies       CookieConfig
	logger        *slog.Logger
	metrics       metrics.Recorder
	refreshLeeway time.Duration
	now           func() time.Time
}

// NewResolver creates a Resolver.
func NewResolver(auth AuthClient, cookies CookieConfig, logger *slog.Logger, recorder metrics.Recorder) *Resolver {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Resolver{
		auth:          auth,
		cookies:       cookies.withDefaults(),
		logger:        logger.With("component", "session"),
		metrics:       recorder,
		refreshLeeway: defaultRefreshLeeway,
		now:           time.Now,
	}
}

// Resolve returns the identity behind the request cookies.
//
// No cookies yields (nil, nil). When the access token is expired or about
// to expire and a refresh token is present, the session is refreshed and
// both cookies are rewritten on w. Any error comes with a nil identity and
// callers treat it as "not signed in".
func (r *Resolver) Resolve(w http.ResponseWriter, req *http.Request) (*model.Identity, error) {
	access := cookieValue(req, r.cookies.AccessName)
	refresh := cookieValue(req, r.cookies.RefreshName)

	if access == "" && refresh == "" {
		r.metrics.IncSessionResolve(metrics.SessionAbsent)
		return nil, nil
	}

	ctx := req.Context()

	if access != "" && !r.expiresSoon(access) {
		identity, err := r.auth.GetUser(ctx, access)
		if err == nil {
			r.metrics.IncSessionResolve(metrics.SessionValid)
			return identity, nil
		}
		if !errors.Is(err, authapi.ErrUnauthorized) {
			r.fail("session validation failed", err)
			return nil, err
		}
	}

	if refresh == "" {
		r.Clear(w)
		r.fail("session expired without refresh token", ErrSessionExpired)
		return nil, ErrSessionExpired
	}

	s, err := r.auth.Refresh(ctx, refresh)
	if err != nil {
		if errors.Is(err, authapi.ErrUnauthorized) {
			r.Clear(w)
			r.fail("session refresh rejected", err)
			return nil, ErrSessionExpired
		}
		r.fail("session refresh failed", err)
		return nil, err
	}

	r.SetSession(w, s)
	r.metrics.IncSessionResolve(metrics.SessionRefreshed)
	identity := s.Identity
	return &identity, nil
}

// SetSession writes both session cookies.
func (r *Resolver) SetSession(w http.ResponseWriter, s *authapi.Session) {
	maxAge := int(r.cookies.MaxAge / time.Second)
	http.SetCookie(w, r.cookie(r.cookies.AccessName, s.AccessToken, maxAge))
	http.SetCookie(w, r.cookie(r.cookies.RefreshName, s.RefreshToken, maxAge))
}

// Clear expires both session cookies.
func (r *Resolver) Clear(w http.ResponseWriter) {
	http.SetCookie(w, r.cookie(r.cookies.AccessName, "", -1))
	http.SetCookie(w, r.cookie(r.cookies.RefreshName, "", -1))
}

// AccessToken returns the raw access token cookie of req, if any.
func (r *Resolver) AccessToken(req *http.Request) string {
	return cookieValue(req, r.cookies.AccessName)
}

func (r *Resolver) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   r.cookies.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   r.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// expiresSoon reads the exp claim without verifying the signature. The
// result only decides whether to refresh early; it never grants identity.
func (r *Resolver) expiresSoon(token string) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.Sub(r.now()) < r.refreshLeeway
}

func (r *Resolver) fail(msg string, err error) {
	r.metrics.IncSessionResolve(metrics.SessionError)
	r.logger.Warn(msg, "error", err)
}

func cookieValue(req *http.Request, name string) string {
	c, err := req.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
