// Package service provides business logic for the application.
package service

import (
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
)

// Service errors.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrApplicationNotFound = errors.New("application not found")
	ErrAlreadyReviewed     = errors.New("application already reviewed")
	ErrProfileNotFound     = errors.New("profile not found")
	ErrInvalidStatus       = errors.New("invalid status")
)

func newID() string {
	return ulid.Make().String()
}

func utcNow() time.Time {
	return time.Now().UTC()
}
