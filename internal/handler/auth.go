package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/guildhall/guildhall/internal/authapi"
	"github.com/guildhall/guildhall/internal/handler/dto"
	"github.com/guildhall/guildhall/internal/middleware"
)

// PasswordAuthenticator signs users in and out against the hosted auth service.
type PasswordAuthenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*authapi.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

// SessionStore reads and writes the session cookies.
type SessionStore interface {
	SetSession(w http.ResponseWriter, s *authapi.Session)
	Clear(w http.ResponseWriter)
	AccessToken(r *http.Request) string
}

// AuthHandler serves sign-in, sign-out and the login pages.
type AuthHandler struct {
	auth     PasswordAuthenticator
	sessions SessionStore
	logger   *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth PasswordAuthenticator, sessions SessionStore, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:     auth,
		sessions: sessions,
		logger:   logger,
	}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Email and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	session, err := h.auth.SignInWithPassword(ctx, email, req.Password)
	if err != nil {
		if errors.Is(err, authapi.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password")
			return
		}
		h.logger.Error("sign in failed",
			"error", err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeError(w, http.StatusBadGateway, "AUTH_UNAVAILABLE", "Sign in is temporarily unavailable")
		return
	}

	h.sessions.SetSession(w, session)
	h.logger.Info("user signed in", "identity_id", session.Identity.ID)

	writeJSON(w, http.StatusOK, dto.RedirectResponse{
		Redirect: middleware.SafeRedirect(req.Redirect, "/dashboard"),
	})
}

// Logout handles POST /auth/logout. Revoking the hosted session is best
// effort; the cookies are always cleared.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := h.sessions.AccessToken(r); token != "" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		if err := h.auth.SignOut(ctx, token); err != nil {
			h.logger.Warn("sign out failed", "error", err)
		}
		cancel()
	}
	h.sessions.Clear(w)
	w.WriteHeader(http.StatusNoContent)
}

// MemberLoginPage handles GET /login.
func (h *AuthHandler) MemberLoginPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.LoginPageResponse{
		Action:   "/auth/login",
		Redirect: middleware.SafeRedirect(r.URL.Query().Get("redirect"), "/dashboard"),
	})
}

// AdminLoginPage handles GET /admin/login.
func (h *AuthHandler) AdminLoginPage(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, dto.LoginPageResponse{
		Action:   "/auth/login",
		Redirect: middleware.SafeRedirect(r.URL.Query().Get("redirect"), "/admin"),
		Admin:    true,
	})
}
