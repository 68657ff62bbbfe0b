package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/guildhall/guildhall/internal/handler/dto"
	"github.com/guildhall/guildhall/internal/model"
	"github.com/guildhall/guildhall/internal/service"
)

// ApplicationSubmitter stores public membership applications.
type ApplicationSubmitter interface {
	Submit(ctx context.Context, input service.SubmitApplicationInput) (*model.Application, error)
}

// ApplicationHandler serves the public intake form.
type ApplicationHandler struct {
	svc    ApplicationSubmitter
	logger *slog.Logger
}

// NewApplicationHandler creates a new ApplicationHandler.
func NewApplicationHandler(svc ApplicationSubmitter, logger *slog.Logger) *ApplicationHandler {
	return &ApplicationHandler{svc: svc, logger: logger}
}

// Submit handles POST /api/applications.
func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req dto.SubmitApplicationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	app, err := h.svc.Submit(r.Context(), service.SubmitApplicationInput{
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     req.Phone,
		Company:   req.Company,
		Message:   req.Message,
		Interests: req.Interests,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", validationMessage(err))
			return
		}
		writeInternalError(w, r, h.logger, "application submit failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.SubmitApplicationResponse{
		ID:     app.ID,
		Status: app.Status,
	})
}

// validationMessage returns the innermost validation message, without the
// "invalid input: " prefix.
func validationMessage(err error) string {
	return strings.TrimPrefix(err.Error(), service.ErrInvalidInput.Error()+": ")
}
