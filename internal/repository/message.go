package repository

import (
	"context"
	"fmt"

	"github.com/guildhall/guildhall/internal/model"
)

// CreateMessage inserts a direct message. The database assigns id and
// created_at; the insert trigger publishes the realtime event.
func (r *Repository) CreateMessage(ctx context.Context, msg *model.Message) error {
	query := `
		INSERT INTO messages (sender_id, recipient_id, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query, msg.SenderID, msg.RecipientID, msg.Content).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		if isMalformedID(err) || pgErrorCode(err) == codeForeignKeyViolation {
			return ErrProfileNotFound
		}
		return fmt.Errorf("failed to create message: %w", err)
	}

	return nil
}

// ListConversation returns the messages exchanged between two members,
// newest first.
func (r *Repository) ListConversation(ctx context.Context, memberID, otherID string, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, sender_id, recipient_id, content, created_at
		FROM messages
		WHERE (sender_id = $1 AND recipient_id = $2)
		   OR (sender_id = $2 AND recipient_id = $1)
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.pool.Query(ctx, query, memberID, otherID, limit)
	if err != nil {
		if isMalformedID(err) {
			return []model.Message{}, nil
		}
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}
	defer rows.Close()

	messages := make([]model.Message, 0)
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}

	return messages, nil
}
