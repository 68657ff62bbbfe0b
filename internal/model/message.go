package model

import (
	"errors"
	"time"
)

// Message is a direct message between two members.
type Message struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// NotificationEvent is the wire shape of a messages insertion pushed by the
// realtime channel. Only the fields the notification path reads are decoded.
type NotificationEvent struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

// ErrInvalidEvent is returned when a pushed event is missing required fields.
var ErrInvalidEvent = errors.New("invalid notification event")

// Validate checks the fields every consumer relies on.
func (e *NotificationEvent) Validate() error {
	if e.SenderID == "" || e.RecipientID == "" {
		return ErrInvalidEvent
	}
	return nil
}
