package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/engage/internal/apperror"
	"github.com/sakif/engage/internal/auth"
	"github.com/sakif/engage/internal/model"
)

// AccountService is what AuthHandler needs from service.AuthService.
type AccountService interface {
	SignUp(ctx context.Context, email, password, name string) (*model.Credentials, error)
	SignIn(ctx context.Context, email, password string) (*model.Credentials, error)
	Refresh(ctx context.Context, token string) (*model.Credentials, error)
	SignOut(ctx context.Context, token string) error
}

// ProfileEnsurer creates the profile of a freshly signed-in identity.
type ProfileEnsurer interface {
	EnsureProfile(ctx context.Context, identity *model.Identity) (*model.Profile, error)
}

// AuthHandler manages sign-up, sign-in and the bearer session lifecycle.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignUp  → create the account, issue a token, ensure the profile
//   - HandleSignIn  → verify credentials, issue a token, ensure the profile
//   - HandleRefresh → swap a valid token for a fresh one
//   - HandleSignOut → revoke the presented token
type AuthHandler struct {
	accounts AccountService
	profiles ProfileEnsurer
	logger   *slog.Logger
}

func NewAuthHandler(accounts AccountService, profiles ProfileEnsurer, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, profiles: profiles, logger: logger}
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse is the body of every call that issues a token. When the
// profile could not be ensured the session is still valid: Profile is nil and
// ProfileError carries the reason, so the client can retry.
type sessionResponse struct {
	*model.Credentials
	Profile      *model.Profile `json:"profile,omitempty"`
	ProfileError string         `json:"profileError,omitempty"`
}

// HandleSignUp creates an account.
//
// HTTP: POST /api/auth/signup
// REQUEST BODY: {"email": "...", "password": "...", "name": "..."}
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	creds, err := h.accounts.SignUp(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.withProfile(r.Context(), creds))
}

// HandleSignIn verifies credentials.
//
// HTTP: POST /api/auth/signin
// REQUEST BODY: {"email": "...", "password": "..."}
func (h *AuthHandler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	creds, err := h.accounts.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.withProfile(r.Context(), creds))
}

// HandleRefresh exchanges the bearer token for a fresh one. The old token is
// revoked.
//
// HTTP: POST /api/auth/refresh
// Auth: Authorization: Bearer <token>
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	token, ok := auth.BearerToken(r)
	if !ok {
		writeError(w, errUnauthenticated)
		return
	}

	creds, err := h.accounts.Refresh(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Credentials: creds})
}

// HandleSignOut revokes the bearer token.
//
// HTTP: POST /api/auth/signout
//
// WHY POST AND NOT GET?
// Sign-out changes state. A GET could be triggered by link prefetching.
func (h *AuthHandler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	if token, ok := auth.BearerToken(r); ok {
		if err := h.accounts.SignOut(r.Context(), token); err != nil {
			writeError(w, err)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// withProfile is the server side of a sign-in event: the profile is ensured
// before the first screen asks for it.
func (h *AuthHandler) withProfile(ctx context.Context, creds *model.Credentials) sessionResponse {
	resp := sessionResponse{Credentials: creds}
	profile, err := h.profiles.EnsureProfile(ctx, creds.Identity)
	if err != nil {
		h.logger.Error("ensuring profile after sign-in failed",
			slog.String("userID", creds.Identity.ID),
			slog.String("error", err.Error()),
		)
		resp.ProfileError = apperror.Reason(err)
		return resp
	}
	resp.Profile = profile
	return resp
}
