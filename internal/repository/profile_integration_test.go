//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/guildhall/guildhall/internal/model"
	"github.com/guildhall/guildhall/internal/testutil"
)

// ============================================================================
// Profile Repository Integration Tests
// ============================================================================

func newRepoTestEnv(t *testing.T) (context.Context, *Repository) {
	t.Helper()
	ctx, pool := testutil.NewDBPool(t)
	return ctx, NewWithPool(pool)
}

func TestIntegrationProfileRepository_GetAuthorizationRecord(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	admin := testutil.NewTestProfile(t, "Ada Admin")
	admin.Role = model.RoleAdmin
	testutil.InsertProfile(ctx, t, repo.Pool(), admin)

	rec, err := repo.GetAuthorizationRecord(ctx, admin.ID)
	if err != nil {
		t.Fatalf("GetAuthorizationRecord failed: %v", err)
	}
	if rec.IdentityID != admin.ID || !rec.IsAdmin() || !rec.IsActive() {
		t.Errorf("record = %+v", rec)
	}
}

func TestIntegrationProfileRepository_GetAuthorizationRecord_NotFound(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	for _, id := range []string{"8d3f6a2e-4c1b-4f7e-9a55-0f1e2d3c4b5a", "not-a-uuid"} {
		_, err := repo.GetAuthorizationRecord(ctx, id)
		if !errors.Is(err, ErrProfileNotFound) {
			t.Errorf("GetAuthorizationRecord(%q) error = %v, want ErrProfileNotFound", id, err)
		}
	}
}

func TestIntegrationProfileRepository_GetSenderProfile(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	p := testutil.NewTestProfile(t, "")
	testutil.InsertProfile(ctx, t, repo.Pool(), p)

	sender, err := repo.GetSenderProfile(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetSenderProfile failed: %v", err)
	}
	if sender.DisplayName() != p.Email {
		t.Errorf("DisplayName() = %q, want email %q", sender.DisplayName(), p.Email)
	}
}

func TestIntegrationProfileRepository_UpdateStatusAndList(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	p := testutil.NewTestProfile(t, "Pending Pat")
	p.Status = model.StatusPending
	testutil.InsertProfile(ctx, t, repo.Pool(), p)

	updated, err := repo.UpdateProfileStatus(ctx, p.ID, model.StatusActive)
	if err != nil {
		t.Fatalf("UpdateProfileStatus failed: %v", err)
	}
	if updated.Status != model.StatusActive {
		t.Errorf("Status = %q, want active", updated.Status)
	}

	active, err := repo.ListProfiles(ctx, model.StatusActive, 10)
	if err != nil {
		t.Fatalf("ListProfiles failed: %v", err)
	}
	if len(active) != 1 || active[0].ID != p.ID {
		t.Errorf("ListProfiles(active) = %+v", active)
	}

	pending, err := repo.ListProfiles(ctx, model.StatusPending, 10)
	if err != nil {
		t.Fatalf("ListProfiles failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("ListProfiles(pending) len = %d, want 0", len(pending))
	}

	if _, err := repo.UpdateProfileStatus(ctx, "8d3f6a2e-4c1b-4f7e-9a55-0f1e2d3c4b5a", model.StatusActive); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("UpdateProfileStatus(missing) error = %v", err)
	}
}

func TestIntegrationProfileRepository_Upsert(t *testing.T) {
	ctx, repo := newRepoTestEnv(t)

	p := testutil.NewTestProfile(t, "Grace")
	if err := repo.UpsertProfile(ctx, p); err != nil {
		t.Fatalf("UpsertProfile insert failed: %v", err)
	}

	p.Role = model.RoleAdmin
	p.FullName = ""
	if err := repo.UpsertProfile(ctx, p); err != nil {
		t.Fatalf("UpsertProfile update failed: %v", err)
	}

	got, err := repo.GetProfile(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if got.Role != model.RoleAdmin || got.FullName != "Grace" {
		t.Errorf("profile = %+v", got)
	}
}
