// Package auth carries the resolved identity and authorization record
// through a request context.
package auth

import (
	"context"

	"github.com/guildhall/guildhall/internal/model"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	identityContextKey contextKey = "identity"
	recordContextKey   contextKey = "authorization_record"
)

// ContextWithIdentity adds the signed-in identity to the context.
func ContextWithIdentity(ctx context.Context, identity *model.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the identity from the context.
// Returns nil if not present.
func IdentityFromContext(ctx context.Context) *model.Identity {
	identity, ok := ctx.Value(identityContextKey).(*model.Identity)
	if !ok {
		return nil
	}
	return identity
}

// IdentityIDFromContext is a convenience function to get the identity ID.
// Returns empty string if not signed in.
func IdentityIDFromContext(ctx context.Context) string {
	identity := IdentityFromContext(ctx)
	if identity == nil {
		return ""
	}
	return identity.ID
}

// ContextWithRecord adds the authorization record to the context.
func ContextWithRecord(ctx context.Context, record *model.AuthorizationRecord) context.Context {
	return context.WithValue(ctx, recordContextKey, record)
}

// RecordFromContext retrieves the authorization record, if the gate
// fetched one for this request.
func RecordFromContext(ctx context.Context) *model.AuthorizationRecord {
	record, ok := ctx.Value(recordContextKey).(*model.AuthorizationRecord)
	if !ok {
		return nil
	}
	return record
}
