package main

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestRedactURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", ""},
		{"no credentials", "redis://localhost:6379/0", "redis://localhost:6379/0"},
		{"user and password", "postgres://guild:s3cret@db:5432/guildhall", "postgres://guild@db:5432/guildhall"},
		{"password only", "redis://:s3cret@cache:6379", "redis://redacted@cache:6379"},
		{"unparseable", "postgres://%zz", "[redacted]"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := redactURL(tt.raw); got != tt.want {
				t.Errorf("redactURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestSanitizeError(t *testing.T) {
	t.Parallel()

	dsn := "postgres://guild:s3cret@db:5432/guildhall"
	err := errors.New("dial " + dsn + ": connection refused (password=s3cret)")

	got := sanitizeError(err, dsn, "")
	if strings.Contains(got, "s3cret") {
		t.Fatalf("secret leaked: %q", got)
	}
	if !strings.Contains(got, "postgres://guild@db:5432/guildhall") {
		t.Errorf("redacted url missing: %q", got)
	}
	if !strings.Contains(got, "password=redacted") {
		t.Errorf("password pattern not replaced: %q", got)
	}

	if sanitizeError(nil) != "" {
		t.Error("nil error should sanitize to empty string")
	}
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLogLevel(in); got != want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
