package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/guildhall/guildhall/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"
)

// Common errors for application repository operations.
var (
	ErrApplicationNotFound = errors.New("application not found")
	ErrApplicationReviewed = errors.New("application already reviewed")
)

const applicationColumns = `id, full_name, email, phone, company, message, interests, status, reviewed_by, reviewed_at, created_at, updated_at`

// CreateApplication inserts a new membership application.
func (r *Repository) CreateApplication(ctx context.Context, app *model.Application) error {
	query := `
		INSERT INTO applications (id, full_name, email, phone, company, message, interests, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	interests := app.Interests
	if interests == nil {
		interests = []string{}
	}

	_, err := r.pool.Exec(ctx, query,
		app.ID,
		app.FullName,
		app.Email,
		app.Phone,
		app.Company,
		app.Message,
		pq.Array(interests),
		string(app.Status),
		app.CreatedAt,
		app.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return nil
}

// GetApplication retrieves an application by id.
func (r *Repository) GetApplication(ctx context.Context, id string) (*model.Application, error) {
	query := `SELECT ` + applicationColumns + ` FROM applications WHERE id = $1`

	app, err := scanApplication(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}

	return app, nil
}

// ListApplications returns applications newest first, optionally filtered
// by status.
func (r *Repository) ListApplications(ctx context.Context, status model.ApplicationStatus, limit int) ([]model.Application, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT ` + applicationColumns + `
		FROM applications
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	apps := make([]model.Application, 0)
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate applications: %w", err)
	}

	return apps, nil
}

// ReviewApplication moves a pending application to approved or rejected.
// Reviewing an application twice returns ErrApplicationReviewed.
func (r *Repository) ReviewApplication(ctx context.Context, id string, status model.ApplicationStatus, reviewerID string, at time.Time) (*model.Application, error) {
	query := `
		UPDATE applications
		SET status = $2, reviewed_by = $3, reviewed_at = $4, updated_at = $4
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + applicationColumns

	app, err := scanApplication(r.pool.QueryRow(ctx, query, id, string(status), reviewerID, at))
	if err == nil {
		return app, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to review application: %w", err)
	}

	// No pending row: tell missing apart from already reviewed.
	if _, getErr := r.GetApplication(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, ErrApplicationReviewed
}

// CountApplications aggregates applications by status.
func (r *Repository) CountApplications(ctx context.Context) (model.ApplicationCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'rejected')
		FROM applications
	`

	var counts model.ApplicationCounts
	if err := r.pool.QueryRow(ctx, query).Scan(&counts.Pending, &counts.Approved, &counts.Rejected); err != nil {
		return model.ApplicationCounts{}, fmt.Errorf("failed to count applications: %w", err)
	}

	return counts, nil
}

func scanApplication(row pgx.Row) (*model.Application, error) {
	var app model.Application
	var interests []string
	if err := row.Scan(
		&app.ID,
		&app.FullName,
		&app.Email,
		&app.Phone,
		&app.Company,
		&app.Message,
		pq.Array(&interests),
		&app.Status,
		&app.ReviewedBy,
		&app.ReviewedAt,
		&app.CreatedAt,
		&app.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if interests == nil {
		interests = []string{}
	}
	app.Interests = interests
	return &app, nil
}
