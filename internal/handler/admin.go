package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/guildhall/guildhall/internal/auth"
	"github.com/guildhall/guildhall/internal/handler/dto"
	"github.com/guildhall/guildhall/internal/model"
	"github.com/guildhall/guildhall/internal/service"
)

// ApplicationReviewer is the admin view of membership applications.
type ApplicationReviewer interface {
	List(ctx context.Context, status string, limit int) ([]model.Application, error)
	Counts(ctx context.Context) (model.ApplicationCounts, error)
	Approve(ctx context.Context, id, reviewerID string) (*model.Application, error)
	Reject(ctx context.Context, id, reviewerID string) (*model.Application, error)
}

// MemberAdmin is the admin view of member profiles.
type MemberAdmin interface {
	List(ctx context.Context, status string, limit int) ([]model.Profile, error)
	SetStatus(ctx context.Context, id, status, actorID string) (*model.Profile, error)
}

// AdminHandler serves the admin console. The access gate only lets
// identities with the admin role reach it.
type AdminHandler struct {
	apps    ApplicationReviewer
	members MemberAdmin
	logger  *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(apps ApplicationReviewer, members MemberAdmin, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		apps:    apps,
		members: members,
		logger:  logger,
	}
}

// Overview handles GET /admin.
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	counts, err := h.apps.Counts(r.Context())
	if err != nil {
		writeInternalError(w, r, h.logger, "application counts failed", err)
		return
	}
	writeJSON(w, http.StatusOK, dto.OverviewResponse{
		Applications: counts,
		Total:        counts.Total(),
	})
}

// ListApplications handles GET /admin/applications?status={status}.
func (h *AdminHandler) ListApplications(w http.ResponseWriter, r *http.Request) {
	apps, err := h.apps.List(r.Context(), r.URL.Query().Get("status"), queryLimit(r))
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			writeError(w, http.StatusBadRequest, "INVALID_STATUS", "Unknown application status")
			return
		}
		writeInternalError(w, r, h.logger, "list applications failed", err)
		return
	}
	if apps == nil {
		apps = []model.Application{}
	}
	writeJSON(w, http.StatusOK, dto.ApplicationListResponse{Data: apps, Total: len(apps)})
}

// ApproveApplication handles POST /admin/applications/{id}/approve.
func (h *AdminHandler) ApproveApplication(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.apps.Approve)
}

// RejectApplication handles POST /admin/applications/{id}/reject.
func (h *AdminHandler) RejectApplication(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.apps.Reject)
}

func (h *AdminHandler) review(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id, reviewerID string) (*model.Application, error)) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Application ID is required")
		return
	}

	app, err := fn(r.Context(), id, auth.IdentityIDFromContext(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrApplicationNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Application not found")
		case errors.Is(err, service.ErrAlreadyReviewed):
			writeError(w, http.StatusConflict, "ALREADY_REVIEWED", "Application has already been reviewed")
		default:
			writeInternalError(w, r, h.logger, "review application failed", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, app)
}

// ListMembers handles GET /admin/members?status={status}.
func (h *AdminHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.List(r.Context(), r.URL.Query().Get("status"), queryLimit(r))
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			writeError(w, http.StatusBadRequest, "INVALID_STATUS", "Unknown member status")
			return
		}
		writeInternalError(w, r, h.logger, "list members failed", err)
		return
	}
	if members == nil {
		members = []model.Profile{}
	}
	writeJSON(w, http.StatusOK, dto.MemberListResponse{Data: members, Total: len(members)})
}

// SetMemberStatus handles POST /admin/members/{id}/status.
func (h *AdminHandler) SetMemberStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "MISSING_ID", "Member ID is required")
		return
	}

	var req dto.UpdateStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	profile, err := h.members.SetStatus(r.Context(), id, req.Status, auth.IdentityIDFromContext(r.Context()))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, "INVALID_STATUS", "Status must be active, pending or suspended")
		case errors.Is(err, service.ErrProfileNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Member not found")
		default:
			writeInternalError(w, r, h.logger, "set member status failed", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
