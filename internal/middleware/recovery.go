package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"runtime/debug"
)

const panicBody = `{"error":{"code":"INTERNAL_ERROR","message":"An unexpected error occurred"}}`

// Recoverer turns a handler panic into a logged 500 with the standard
// error body. http.ErrAbortHandler is re-raised so net/http can abort the
// response as intended.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	logger = logger.With("component", "recoverer")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if err, ok := rvr.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(rvr)
				}

				logger.Error("panic recovered",
					slog.String("request_id", GetRequestID(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("panic", rvr),
					slog.String("stack", string(debug.Stack())),
				)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(panicBody))
			}()

			next.ServeHTTP(w, r)
		})
	}
}
