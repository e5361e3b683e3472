package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/engage/internal/auth"
	"github.com/sakif/engage/internal/model"
)

// ProfileManager is what ProfileHandler needs from service.ProfileService.
type ProfileManager interface {
	EnsureProfile(ctx context.Context, identity *model.Identity) (*model.Profile, error)
	UpdateProfile(ctx context.Context, id string, update model.ProfileUpdate) (*model.Profile, error)
	RefreshStats(ctx context.Context, id string) (*model.Profile, error)
}

// ProfileHandler serves the signed-in user's own profile.
type ProfileHandler struct {
	profiles ProfileManager
	logger   *slog.Logger
}

func NewProfileHandler(profiles ProfileManager, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// HandleGet returns the profile, creating it first if this identity has none
// yet (e.g. the account predates its profile).
//
// HTTP: GET /api/me/profile
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, errUnauthenticated)
		return
	}

	profile, err := h.profiles.EnsureProfile(r.Context(), identity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleUpdate edits name and avatar.
//
// HTTP: PATCH /api/me/profile
// REQUEST BODY: {"name": "...", "avatarUrl": "..."}  (both optional)
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var update model.ProfileUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.profiles.UpdateProfile(r.Context(), id, update)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleRefreshStats recomputes the engagement counters.
//
// HTTP: POST /api/me/profile/refresh-stats
func (h *ProfileHandler) HandleRefreshStats(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.profiles.RefreshStats(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
