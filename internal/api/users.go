package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/IlyasAtabaev731/solvy-ledger/internal/auth"
	"github.com/IlyasAtabaev731/solvy-ledger/internal/domain/models"
)

type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

func (s *APIServer) registerHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AuthRequest
		if !decodeBody(w, r, &req) {
			return
		}

		ctx, cancel := s.requestContext(r)
		defer cancel()

		user, token, err := s.auth.Register(ctx, req.Username, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidInput):
				writeError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, auth.ErrUserExists):
				writeError(w, http.StatusConflict, "Username is already taken")
			default:
				s.logger.Error("Failed to register user", "error", err)
				writeError(w, http.StatusInternalServerError, errInternal)
			}
			return
		}

		writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
	}
}

func (s *APIServer) loginHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AuthRequest
		if !decodeBody(w, r, &req) {
			return
		}

		ctx, cancel := s.requestContext(r)
		defer cancel()

		user, token, err := s.auth.Login(ctx, req.Username, req.Password)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrInvalidInput):
				writeError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, auth.ErrInvalidCredentials):
				writeError(w, http.StatusUnauthorized, "Invalid credentials")
			default:
				s.logger.Error("Failed to log in", "error", err)
				writeError(w, http.StatusInternalServerError, errInternal)
			}
			return
		}

		s.logger.Info("User logged in", slog.Int64("user_id", user.ID))

		writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
	}
}

func (s *APIServer) userHandler() func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := sessionFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, errNotAuthenticated)
			return
		}

		ctx, cancel := s.requestContext(r)
		defer cancel()

		user, err := s.auth.User(ctx, session.UserID)
		if err != nil {
			if errors.Is(err, auth.ErrUserNotFound) {
				writeError(w, http.StatusUnauthorized, errNotAuthenticated)
				return
			}
			s.logger.Error("Failed to get user", "error", err)
			writeError(w, http.StatusInternalServerError, errInternal)
			return
		}

		writeJSON(w, http.StatusOK, user)
	}
}
