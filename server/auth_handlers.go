package server

import (
	"errors"
	"net/http"

	"github.com/jrsteele09/go-todo-server/auth"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type loginResponse struct {
	User         userResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
			return
		}
		if req.Username == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
			return
		}

		user, err := s.sessions.Register(r.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrAlreadyExists) {
				writeError(w, http.StatusBadRequest, "already_exists", "username is already taken")
				return
			}
			writeInternalError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, userResponse{ID: user.ID, Username: user.Username})
	}
}

func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
			return
		}

		user, pair, err := s.sessions.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid username or password")
				return
			}
			writeInternalError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, loginResponse{
			User:         userResponse{ID: user.ID, Username: user.Username},
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
		})
	}
}

func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
			return
		}

		access, err := s.sessions.Refresh(r.Context(), req.RefreshToken)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrMissingToken):
				writeError(w, http.StatusUnauthorized, "missing_token", "refresh token is required")
			case errors.Is(err, auth.ErrInvalidOrExpired):
				writeError(w, http.StatusForbidden, "invalid_or_expired", "refresh token is invalid or expired")
			case errors.Is(err, auth.ErrRevoked):
				writeError(w, http.StatusForbidden, "revoked", "refresh token has been revoked")
			default:
				writeInternalError(w, err)
			}
			return
		}

		writeJSON(w, http.StatusOK, refreshResponse{AccessToken: access})
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserIDFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing authentication")
			return
		}

		if err := s.sessions.Logout(r.Context(), userID); err != nil {
			writeInternalError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
	}
}
