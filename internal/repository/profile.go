package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/guildhall/guildhall/internal/model"
	"github.com/jackc/pgx/v5"
)

// Common errors for profile repository operations.
var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrEmailExists     = errors.New("email already exists")
)

// GetAuthorizationRecord loads the role and status row for an identity.
// It is a single point query; callers treat any error as "no record".
func (r *Repository) GetAuthorizationRecord(ctx context.Context, identityID string) (*model.AuthorizationRecord, error) {
	query := `SELECT id, role, status FROM profiles WHERE id = $1`

	var rec model.AuthorizationRecord
	err := r.pool.QueryRow(ctx, query, identityID).Scan(
		&rec.IdentityID,
		&rec.Role,
		&rec.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isMalformedID(err) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get authorization record: %w", err)
	}

	return &rec, nil
}

// GetSenderProfile loads the display fields of a message sender.
func (r *Repository) GetSenderProfile(ctx context.Context, id string) (*model.SenderProfile, error) {
	query := `SELECT id, full_name, email FROM profiles WHERE id = $1`

	var p model.SenderProfile
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.FullName, &p.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isMalformedID(err) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get sender profile: %w", err)
	}

	return &p, nil
}

// GetProfile retrieves a full profile by id.
func (r *Repository) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	query := `
		SELECT id, email, full_name, role, status, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	p, err := scanProfile(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isMalformedID(err) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return p, nil
}

// ListProfiles returns profiles, newest first.
func (r *Repository) ListProfiles(ctx context.Context, status model.Status, limit int) ([]model.Profile, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, email, full_name, role, status, created_at, updated_at
		FROM profiles
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	profiles := make([]model.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate profiles: %w", err)
	}

	return profiles, nil
}

// UpdateProfileStatus sets the membership status of a profile.
func (r *Repository) UpdateProfileStatus(ctx context.Context, id string, status model.Status) (*model.Profile, error) {
	query := `
		UPDATE profiles
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, email, full_name, role, status, created_at, updated_at
	`

	p, err := scanProfile(r.pool.QueryRow(ctx, query, id, string(status)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isMalformedID(err) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to update profile status: %w", err)
	}

	return p, nil
}

// UpsertProfile inserts a profile or updates role, status and name of an
// existing one with the same id.
func (r *Repository) UpsertProfile(ctx context.Context, p *model.Profile) error {
	query := `
		INSERT INTO profiles (id, email, full_name, role, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET full_name = COALESCE(NULLIF(EXCLUDED.full_name, ''), profiles.full_name),
		    role = EXCLUDED.role,
		    status = EXCLUDED.status,
		    updated_at = now()
		RETURNING created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		p.ID,
		p.Email,
		p.FullName,
		string(p.Role),
		string(p.Status),
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("failed to upsert profile: %w", err)
	}

	return nil
}

func scanProfile(row pgx.Row) (*model.Profile, error) {
	var p model.Profile
	if err := row.Scan(
		&p.ID,
		&p.Email,
		&p.FullName,
		&p.Role,
		&p.Status,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
