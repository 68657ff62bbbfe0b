package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/guildhall/guildhall/internal/handler/dto"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorBody {
	t.Helper()
	var resp dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error response: %v", err)
	}
	return resp.Error
}

func TestNotFound(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/nonexistent", nil)
	rec := httptest.NewRecorder()

	NotFound(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}
	if body := decodeError(t, rec); body.Code != "NOT_FOUND" {
		t.Errorf("unexpected error code: %s", body.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/api/applications", nil)
	rec := httptest.NewRecorder()

	MethodNotAllowed(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != "METHOD_NOT_ALLOWED" {
		t.Errorf("unexpected error code: %s", body.Code)
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		maxBytes   int64
		wantOK     bool
		wantStatus int
	}{
		{"valid", `{"status":"active"}`, 0, true, 0},
		{"empty", ``, 0, false, http.StatusBadRequest},
		{"malformed", `{"status":`, 0, false, http.StatusBadRequest},
		{"unknown field", `{"status":"active","role":"admin"}`, 0, false, http.StatusBadRequest},
		{"too large", `{"status":"` + strings.Repeat("a", 100) + `"}`, 16, false, http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			if tt.maxBytes > 0 {
				req.Body = http.MaxBytesReader(rec, req.Body, tt.maxBytes)
			}

			var v dto.UpdateStatusRequest
			ok := decodeJSON(rec, req, &v)
			if ok != tt.wantOK {
				t.Fatalf("decodeJSON() = %v, want %v", ok, tt.wantOK)
			}
			if !ok && rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestQueryLimit(t *testing.T) {
	t.Parallel()

	tests := map[string]int{
		"/x":            0,
		"/x?limit=25":   25,
		"/x?limit=-1":   0,
		"/x?limit=many": 0,
	}
	for target, want := range tests {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		if got := queryLimit(req); got != want {
			t.Errorf("queryLimit(%s) = %d, want %d", target, got, want)
		}
	}
}
