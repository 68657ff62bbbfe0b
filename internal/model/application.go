package model

import (
	"time"
)

// ApplicationStatus represents the review state of a membership application.
type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	ApplicationRejected ApplicationStatus = "rejected"
)

// IsValid checks if the application status is known.
func (s ApplicationStatus) IsValid() bool {
	switch s {
	case ApplicationPending, ApplicationApproved, ApplicationRejected:
		return true
	}
	return false
}

// Application is a membership request submitted through the public intake form.
type Application struct {
	ID         string            `json:"id"`
	FullName   string            `json:"full_name"`
	Email      string            `json:"email"`
	Phone      string            `json:"phone,omitempty"`
	Company    string            `json:"company,omitempty"`
	Message    string            `json:"message,omitempty"`
	Interests  []string          `json:"interests"`
	Status     ApplicationStatus `json:"status"`
	ReviewedBy *string           `json:"reviewed_by,omitempty"`
	ReviewedAt *time.Time        `json:"reviewed_at,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	UpdatedAt  time.Time         `json:"updated_at"`
}

// IsReviewed returns true once an admin approved or rejected the application.
func (a *Application) IsReviewed() bool {
	return a.Status != ApplicationPending
}

// ApplicationCounts aggregates applications by status for the admin overview.
type ApplicationCounts struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// Total returns the number of applications across all statuses.
func (c ApplicationCounts) Total() int64 {
	return c.Pending + c.Approved + c.Rejected
}
