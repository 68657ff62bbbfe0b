package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/guildhall/guildhall/internal/auth"
	"github.com/guildhall/guildhall/internal/handler/dto"
	"github.com/guildhall/guildhall/internal/model"
)

// RequireStatus returns middleware that only lets members whose profile
// status is one of allowed through. Must be applied after Gate.
//
// The gate does not fetch the record on member paths, so it is loaded here
// when the context does not carry one. Lookup failures deny.
func RequireStatus(logger *slog.Logger, records RecordLookup, allowed ...model.Status) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := auth.IdentityFromContext(r.Context())
			if identity == nil {
				writeStatusError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Sign in required")
				return
			}

			record := auth.RecordFromContext(r.Context())
			if record == nil {
				var err error
				record, err = records.GetAuthorizationRecord(r.Context(), identity.ID)
				if err != nil {
					logger.Warn("status check failed",
						slog.String("identity_id", identity.ID),
						slog.String("error", err.Error()),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					record = nil
				}
			}

			if record == nil || !slices.Contains(allowed, record.Status) {
				writeStatusError(w, http.StatusForbidden, "FORBIDDEN",
					fmt.Sprintf("Membership status must be %s", allowed[0]))
				return
			}

			ctx := auth.ContextWithRecord(r.Context(), record)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireActive is a convenience middleware for approved members.
func RequireActive(logger *slog.Logger, records RecordLookup) func(http.Handler) http.Handler {
	return RequireStatus(logger, records, model.StatusActive)
}

func writeStatusError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error: dto.ErrorBody{Code: code, Message: message},
	})
}
