// Package model defines domain entities for the application.
package model

import "time"

// Role is the authorization role stored on a member profile.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Status is the free-text account status stored on a member profile.
// The values below are the ones this service writes; others may exist.
type Status string

const (
	StatusActive    Status = "active"
	StatusPending   Status = "pending"
	StatusSuspended Status = "suspended"
)

// ValidStatuses contains the statuses an admin may assign.
var ValidStatuses = []Status{StatusActive, StatusPending, StatusSuspended}

// IsValid reports whether s is one of ValidStatuses.
func (s Status) IsValid() bool {
	for _, v := range ValidStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Identity is the authenticated principal resolved from session cookies.
// It is produced by the hosted auth service per request and never persisted here.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AuthorizationRecord is the single per-identity row carrying role and status.
type AuthorizationRecord struct {
	IdentityID string `json:"identity_id"`
	Role       Role   `json:"role"`
	Status     Status `json:"status"`
}

// IsAdmin reports whether the record grants admin access.
// A nil record is never admin.
func (r *AuthorizationRecord) IsAdmin() bool {
	return r != nil && r.Role == RoleAdmin
}

// IsActive reports whether the account has been approved.
func (r *AuthorizationRecord) IsActive() bool {
	return r != nil && r.Status == StatusActive
}

// SenderProfile is the display profile used to title notifications.
type SenderProfile struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
}

// DisplayName returns the full name, then the email, then "Someone".
func (p *SenderProfile) DisplayName() string {
	if p != nil {
		if p.FullName != "" {
			return p.FullName
		}
		if p.Email != "" {
			return p.Email
		}
	}
	return "Someone"
}

// Profile is a full member profile row as shown in the admin console.
type Profile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Record returns the authorization view of the profile.
func (p *Profile) Record() *AuthorizationRecord {
	return &AuthorizationRecord{
		IdentityID: p.ID,
		Role:       p.Role,
		Status:     p.Status,
	}
}
