// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"github.com/guildhall/guildhall/internal/model"
	"github.com/guildhall/guildhall/internal/toast"
)

// ErrorBody carries a machine-readable code and a human message.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// SubmitApplicationRequest is the public intake form.
type SubmitApplicationRequest struct {
	FullName  string   `json:"full_name"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone,omitempty"`
	Company   string   `json:"company,omitempty"`
	Message   string   `json:"message,omitempty"`
	Interests []string `json:"interests,omitempty"`
}

// SubmitApplicationResponse acknowledges a stored application.
type SubmitApplicationResponse struct {
	ID     string                  `json:"id"`
	Status model.ApplicationStatus `json:"status"`
}

// LoginRequest is the password sign-in body.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Redirect string `json:"redirect,omitempty"`
}

// RedirectResponse tells the client where to go next.
type RedirectResponse struct {
	Redirect string `json:"redirect"`
}

// LoginPageResponse describes a login form.
type LoginPageResponse struct {
	Action   string `json:"action"`
	Redirect string `json:"redirect"`
	Admin    bool   `json:"admin"`
}

// DashboardResponse is the member landing page. Notice is set while the
// account is not yet active.
type DashboardResponse struct {
	Profile *model.Profile `json:"profile"`
	Notice  string         `json:"notice,omitempty"`
}

// SendMessageRequest is a direct message to another member.
type SendMessageRequest struct {
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
}

// MessageListResponse lists messages of a conversation.
type MessageListResponse struct {
	Data []model.Message `json:"data"`
}

// OverviewResponse is the admin landing page.
type OverviewResponse struct {
	Applications model.ApplicationCounts `json:"applications"`
	Total        int64                   `json:"total"`
}

// ApplicationListResponse lists applications.
type ApplicationListResponse struct {
	Data  []model.Application `json:"data"`
	Total int                 `json:"total"`
}

// MemberListResponse lists member profiles.
type MemberListResponse struct {
	Data  []model.Profile `json:"data"`
	Total int             `json:"total"`
}

// UpdateStatusRequest sets a member's status.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// Websocket frame types.
const (
	FrameToasts  = "toasts"
	FrameDismiss = "dismiss"
	FrameError   = "error"
)

// ToastsFrame is pushed to the client whenever the toast queue changes.
type ToastsFrame struct {
	Type   string        `json:"type"`
	Toasts []toast.Toast `json:"toasts"`
}

// ClientFrame is a frame sent by the browser.
type ClientFrame struct {
	Type string `json:"type"`
	ID   string `json:"id,omitempty"`
}

// NewToastsFrame builds a snapshot frame. A nil slice is sent as [].
func NewToastsFrame(toasts []toast.Toast) ToastsFrame {
	if toasts == nil {
		toasts = []toast.Toast{}
	}
	return ToastsFrame{Type: FrameToasts, Toasts: toasts}
}
