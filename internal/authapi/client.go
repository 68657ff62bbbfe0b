// Package authapi is a client for the hosted authentication service. It
// speaks the GoTrue REST dialect: bearer access tokens, refresh tokens and
// an "apikey" header carrying the project's public key.
package authapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/guildhall/guildhall/internal/model"
)

const (
	// DialTimeout is the connection timeout.
	DialTimeout = 5 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 5 * time.Second
	// ResponseHeaderTimeout is time to wait for response headers.
	ResponseHeaderTimeout = 10 * time.Second

	maxResponseBytes = 1 << 20
)

// Errors returned by the client.
var (
	ErrUnauthorized       = errors.New("authapi: session is not valid")
	ErrInvalidCredentials = errors.New("authapi: invalid credentials")
	ErrMalformedResponse  = errors.New("authapi: malformed response")
)

// StatusError is returned for unexpected non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("authapi: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("authapi: unexpected status %d: %s", e.StatusCode, e.Message)
}

// Session is a token pair issued by the auth service.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Identity     model.Identity
}

// Client talks to the hosted auth service.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewHTTPClient creates an HTTP client with bounded timeouts that does not
// follow redirects.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   TLSHandshakeTimeout,
			ResponseHeaderTimeout: ResponseHeaderTimeout,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   20,
			IdleConnTimeout:       90 * time.Second,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// New creates a Client for baseURL (e.g. https://project.example.co).
// A nil httpClient uses NewHTTPClient with a 10s timeout.
func New(baseURL, anonKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient(10 * time.Second)
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: httpClient,
	}
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         userResponse `json:"user"`
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e errorResponse) text() string {
	for _, s := range []string{e.ErrorDescription, e.Msg, e.Message, e.Error} {
		if s != "" {
			return s
		}
	}
	return ""
}

// GetUser validates accessToken live and returns the identity it belongs to.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*model.Identity, error) {
	if accessToken == "" {
		return nil, ErrUnauthorized
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/auth/v1/user", nil, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var user userResponse
	if err := c.do(req, &user, func(status int) error {
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return ErrUnauthorized
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if user.ID == "" {
		return nil, fmt.Errorf("%w: user without id", ErrMalformedResponse)
	}
	return &model.Identity{ID: user.ID, Email: user.Email}, nil
}

// Refresh exchanges refreshToken for a new session.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, ErrUnauthorized
	}
	return c.token(ctx, "refresh_token", map[string]string{"refresh_token": refreshToken}, func(status int) error {
		if status == http.StatusBadRequest || status == http.StatusUnauthorized {
			return ErrUnauthorized
		}
		return nil
	})
}

// SignInWithPassword starts a session from email and password.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	return c.token(ctx, "password", map[string]string{"email": email, "password": password}, func(status int) error {
		if status == http.StatusBadRequest || status == http.StatusUnauthorized {
			return ErrInvalidCredentials
		}
		return nil
	})
}

// SignOut revokes the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/v1/logout", nil, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	return c.do(req, nil, func(status int) error {
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			// Already gone.
			return errAlreadySignedOut
		}
		return nil
	})
}

var errAlreadySignedOut = errors.New("already signed out")

func (c *Client) token(ctx context.Context, grantType string, body map[string]string, classify func(int) error) (*Session, error) {
	query := url.Values{"grant_type": {grantType}}
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/v1/token", query, body)
	if err != nil {
		return nil, err
	}

	var tok tokenResponse
	if err := c.do(req, &tok, classify); err != nil {
		return nil, err
	}

	if tok.AccessToken == "" || tok.RefreshToken == "" || tok.User.ID == "" {
		return nil, fmt.Errorf("%w: incomplete token response", ErrMalformedResponse)
	}

	expiresAt := time.Unix(tok.ExpiresAt, 0)
	if tok.ExpiresAt == 0 {
		expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	}

	return &Session{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt,
		Identity:     model.Identity{ID: tok.User.ID, Email: tok.User.Email},
	}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends req and decodes a 2xx body into out. classify maps known
// failure statuses to sentinel errors.
func (c *Client) do(req *http.Request, out any, classify func(int) error) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("authapi request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if err := classify(resp.StatusCode); err != nil {
			if errors.Is(err, errAlreadySignedOut) {
				return nil
			}
			return err
		}
		var apiErr errorResponse
		_ = json.Unmarshal(body, &apiErr)
		return &StatusError{StatusCode: resp.StatusCode, Message: apiErr.text()}
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
