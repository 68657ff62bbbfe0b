package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/guildhall/guildhall/internal/auth"
	"github.com/guildhall/guildhall/internal/guard"
	"github.com/guildhall/guildhall/internal/metrics"
	"github.com/guildhall/guildhall/internal/model"
	"github.com/guildhall/guildhall/internal/repository"
)

// SessionResolver turns request cookies into an identity. It may rewrite
// cookies on w when the session is refreshed.
type SessionResolver interface {
	Resolve(w http.ResponseWriter, r *http.Request) (*model.Identity, error)
}

// RecordLookup loads the authorization record of an identity.
type RecordLookup interface {
	GetAuthorizationRecord(ctx context.Context, identityID string) (*model.AuthorizationRecord, error)
}

// GateConfig holds the collaborators of the access gate.
type GateConfig struct {
	Logger   *slog.Logger
	Sessions SessionResolver
	Records  RecordLookup
	Paths    guard.Paths
	Metrics  metrics.Recorder
}

// Gate runs on every request. Unprotected paths pass straight through with
// no network call. Protected paths resolve the session, look up the
// authorization record on admin paths only, and then either redirect (307)
// or continue with the identity and record in the request context.
//
// Nothing is cached between requests.
func Gate(cfg GateConfig) func(http.Handler) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.NewNoop()
	}
	logger := cfg.Logger.With("component", "gate")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			class := cfg.Paths.Classify(path)
			if class == guard.Unprotected {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := cfg.Sessions.Resolve(w, r)
			if err != nil {
				// The resolver has already logged the cause.
				identity = nil
			}

			var record *model.AuthorizationRecord
			if identity != nil && cfg.Paths.NeedsRecord(path) {
				record = lookupRecord(r.Context(), cfg, logger, identity.ID)
			}

			decision := guard.Decide(cfg.Paths, path, identity, record)
			cfg.Metrics.IncGateDecision(class.String(), decision.Action.String())

			if !decision.Allowed() {
				logger.Info("access redirected",
					slog.String("path", path),
					slog.String("class", class.String()),
					slog.String("action", decision.Action.String()),
					slog.Bool("signed_in", identity != nil),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				http.Redirect(w, r, decision.Location, http.StatusTemporaryRedirect)
				return
			}

			ctx := auth.ContextWithIdentity(r.Context(), identity)
			if record != nil {
				ctx = auth.ContextWithRecord(ctx, record)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// lookupRecord fails closed: any error yields no record.
func lookupRecord(ctx context.Context, cfg GateConfig, logger *slog.Logger, identityID string) *model.AuthorizationRecord {
	record, err := cfg.Records.GetAuthorizationRecord(ctx, identityID)
	switch {
	case err == nil:
		cfg.Metrics.IncRoleLookup(metrics.LookupFound)
		return record
	case errors.Is(err, repository.ErrProfileNotFound):
		cfg.Metrics.IncRoleLookup(metrics.LookupNotFound)
	default:
		cfg.Metrics.IncRoleLookup(metrics.LookupError)
		logger.Error("authorization record lookup failed",
			slog.String("identity_id", identityID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}
