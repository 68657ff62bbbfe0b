package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/guildhall/guildhall/internal/metrics"
	"github.com/guildhall/guildhall/internal/middleware"
	"github.com/guildhall/guildhall/internal/model"
	"github.com/guildhall/guildhall/internal/repository"
)

// MemberStore persists profiles and direct messages.
type MemberStore interface {
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	ListProfiles(ctx context.Context, status model.Status, limit int) ([]model.Profile, error)
	UpdateProfileStatus(ctx context.Context, id string, status model.Status) (*model.Profile, error)
	CreateMessage(ctx context.Context, msg *model.Message) error
	ListConversation(ctx context.Context, memberID, otherID string, limit int) ([]model.Message, error)
}

// MemberService handles the member area and member administration.
type MemberService struct {
	store   MemberStore
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewMemberService creates a new MemberService.
func NewMemberService(store MemberStore, logger *slog.Logger, recorder metrics.Recorder) *MemberService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &MemberService{
		store:   store,
		logger:  logger.With("component", "service.member"),
		metrics: recorder,
	}
}

// Profile returns the profile of the given identity.
func (s *MemberService) Profile(ctx context.Context, id string) (*model.Profile, error) {
	p, err := s.store.GetProfile(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

// SendMessageInput defines input for a direct message.
type SendMessageInput struct {
	SenderID    string
	RecipientID string
	Content     string
}

// SendMessage stores a direct message. The insert is what triggers the
// recipient's realtime notification.
func (s *MemberService) SendMessage(ctx context.Context, input SendMessageInput) (*model.Message, error) {
	input.RecipientID = strings.TrimSpace(input.RecipientID)
	if err := middleware.ValidateMessage(input.SenderID, input.RecipientID, input.Content); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	msg := &model.Message{
		SenderID:    input.SenderID,
		RecipientID: input.RecipientID,
		Content:     input.Content,
	}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	s.logger.Debug("message sent", "message_id", msg.ID)
	return msg, nil
}

// Conversation lists messages between memberID and otherID, newest first.
func (s *MemberService) Conversation(ctx context.Context, memberID, otherID string, limit int) ([]model.Message, error) {
	if _, err := uuid.Parse(otherID); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, middleware.ErrRecipientInvalid)
	}
	return s.store.ListConversation(ctx, memberID, otherID, limit)
}

// List returns member profiles, optionally filtered by status.
func (s *MemberService) List(ctx context.Context, status string, limit int) ([]model.Profile, error) {
	st := model.Status(status)
	if st != "" && !st.IsValid() {
		return nil, ErrInvalidStatus
	}
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	return s.store.ListProfiles(ctx, st, limit)
}

// SetStatus changes a member's account status.
func (s *MemberService) SetStatus(ctx context.Context, id, status, actorID string) (*model.Profile, error) {
	st := model.Status(status)
	if !st.IsValid() {
		return nil, ErrInvalidStatus
	}

	p, err := s.store.UpdateProfileStatus(ctx, id, st)
	if err != nil {
		if errors.Is(err, repository.ErrProfileNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}

	s.logger.Info("member status changed",
		"member_id", p.ID,
		"status", p.Status,
		"actor_id", actorID,
	)
	return p, nil
}
