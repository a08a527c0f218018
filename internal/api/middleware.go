package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/IlyasAtabaev731/solvy-ledger/internal/lib/jwt"
	"github.com/google/uuid"
)

type contextKey string

const (
	sessionKey   contextKey = "session"
	requestIDKey contextKey = "requestID"
)

const requestIDHeader = "X-Request-ID"

func sessionFromContext(ctx context.Context) (jwt.Session, bool) {
	session, ok := ctx.Value(sessionKey).(jwt.Session)
	return session, ok
}

func requestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// authenticate rejects requests without a valid bearer token. The reason is never returned to
// the caller.
func (s *APIServer) authenticate(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenHeader := r.Header.Get("Authorization")
		if tokenHeader == "" {
			writeError(w, http.StatusUnauthorized, errNotAuthenticated)
			return
		}

		parts := strings.Split(tokenHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(w, http.StatusUnauthorized, errNotAuthenticated)
			return
		}

		session, err := s.auth.Authenticate(parts[1])
		if err != nil {
			s.logger.Debug("Rejected token", slog.String("request_id", requestIDFromContext(r.Context())), "error", err)
			writeError(w, http.StatusUnauthorized, errNotAuthenticated)
			return
		}

		r = r.WithContext(context.WithValue(r.Context(), sessionKey, session))
		next(w, r)
	}
}

func (s *APIServer) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *APIServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", requestIDFromContext(r.Context())),
		)
	})
}
