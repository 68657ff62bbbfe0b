package auth

import (
	"context"
	"testing"

	"github.com/guildhall/guildhall/internal/model"
)

func TestIdentityContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if IdentityFromContext(ctx) != nil || IdentityIDFromContext(ctx) != "" {
		t.Fatal("empty context should carry no identity")
	}

	ctx = ContextWithIdentity(ctx, &model.Identity{ID: "u-1", Email: "u@x.com"})
	if got := IdentityIDFromContext(ctx); got != "u-1" {
		t.Errorf("IdentityIDFromContext() = %q, want u-1", got)
	}
}

func TestRecordContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if RecordFromContext(ctx) != nil {
		t.Fatal("empty context should carry no record")
	}

	ctx = ContextWithRecord(ctx, &model.AuthorizationRecord{IdentityID: "u-1", Role: model.RoleAdmin})
	if !RecordFromContext(ctx).IsAdmin() {
		t.Error("record should be admin")
	}
}
