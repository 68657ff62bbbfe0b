package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/guildhall/guildhall/internal/auth"
	"github.com/guildhall/guildhall/internal/handler/dto"
	"github.com/guildhall/guildhall/internal/model"
	"github.com/guildhall/guildhall/internal/service"
)

// PendingNotice is shown to members whose account is not active yet.
const PendingNotice = "Your membership is pending approval. You will receive an email once an administrator has reviewed it."

// MemberArea is the member-facing service surface.
type MemberArea interface {
	Profile(ctx context.Context, id string) (*model.Profile, error)
	SendMessage(ctx context.Context, input service.SendMessageInput) (*model.Message, error)
	Conversation(ctx context.Context, memberID, otherID string, limit int) ([]model.Message, error)
}

// DashboardHandler serves the member area. Requests reach it only after
// the access gate attached an identity.
type DashboardHandler struct {
	members MemberArea
	logger  *slog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(members MemberArea, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{members: members, logger: logger}
}

// Get handles GET /dashboard.
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	identityID := auth.IdentityIDFromContext(r.Context())
	if identityID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in required")
		return
	}

	profile, err := h.members.Profile(r.Context(), identityID)
	if err != nil {
		if errors.Is(err, service.ErrProfileNotFound) {
			// Signed up with the auth service but not provisioned yet.
			writeJSON(w, http.StatusOK, dto.DashboardResponse{Notice: PendingNotice})
			return
		}
		writeInternalError(w, r, h.logger, "dashboard profile load failed", err)
		return
	}

	resp := dto.DashboardResponse{Profile: profile}
	if profile.Status != model.StatusActive {
		resp.Notice = PendingNotice
	}
	writeJSON(w, http.StatusOK, resp)
}

// SendMessage handles POST /dashboard/messages. Callers must be active,
// which middleware.RequireActive enforces on the route.
func (h *DashboardHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	identityID := auth.IdentityIDFromContext(r.Context())
	if identityID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in required")
		return
	}

	var req dto.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	msg, err := h.members.SendMessage(r.Context(), service.SendMessageInput{
		SenderID:    identityID,
		RecipientID: req.RecipientID,
		Content:     req.Content,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", validationMessage(err))
		case errors.Is(err, service.ErrProfileNotFound):
			writeError(w, http.StatusNotFound, "RECIPIENT_NOT_FOUND", "Recipient not found")
		default:
			writeInternalError(w, r, h.logger, "send message failed", err)
		}
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// Conversation handles GET /dashboard/messages?with={member_id}.
func (h *DashboardHandler) Conversation(w http.ResponseWriter, r *http.Request) {
	identityID := auth.IdentityIDFromContext(r.Context())
	if identityID == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in required")
		return
	}

	msgs, err := h.members.Conversation(r.Context(), identityID, r.URL.Query().Get("with"), queryLimit(r))
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", validationMessage(err))
			return
		}
		writeInternalError(w, r, h.logger, "conversation load failed", err)
		return
	}
	if msgs == nil {
		msgs = []model.Message{}
	}

	writeJSON(w, http.StatusOK, dto.MessageListResponse{Data: msgs})
}
