package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/engage/internal/model"
)

// PreferencesManager is what PreferencesHandler needs from
// service.PreferencesService.
type PreferencesManager interface {
	SavePreferences(ctx context.Context, in model.PreferencesInput) (*model.Preferences, error)
	GetPreferences(ctx context.Context, userID string) (*model.Preferences, error)
	UpdateNotificationSettings(ctx context.Context, userID string, patch model.NotificationPatch) (*model.Preferences, error)
}

type PreferencesHandler struct {
	prefs  PreferencesManager
	logger *slog.Logger
}

func NewPreferencesHandler(prefs PreferencesManager, logger *slog.Logger) *PreferencesHandler {
	return &PreferencesHandler{prefs: prefs, logger: logger}
}

// savePreferencesRequest is PreferencesInput without the user: the owner
// always comes from the token, never from the body.
type savePreferencesRequest struct {
	InterestAreas    []string                 `json:"interestAreas"`
	TimePreferences  []string                 `json:"timePreferences"`
	CommitmentLevels []string                 `json:"commitmentLevels"`
	Notifications    *model.NotificationPatch `json:"notificationSettings,omitempty"`
}

// HandleGet returns the saved preferences, or 204 when the user has none yet.
//
// HTTP: GET /api/me/preferences
func (h *PreferencesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	prefs, err := h.prefs.GetPreferences(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if prefs == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// HandleSave replaces the tag lists wholesale. Notification flags left out of
// the body keep their stored value.
//
// HTTP: PUT /api/me/preferences
func (h *PreferencesHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req savePreferencesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	prefs, err := h.prefs.SavePreferences(r.Context(), model.PreferencesInput{
		UserID:           id,
		InterestAreas:    req.InterestAreas,
		TimePreferences:  req.TimePreferences,
		CommitmentLevels: req.CommitmentLevels,
		Notifications:    req.Notifications,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

// HandleUpdateNotifications patches only the notification flags.
//
// HTTP: PATCH /api/me/preferences/notifications
// REQUEST BODY: {"email": false, "push": true}  (any subset)
func (h *PreferencesHandler) HandleUpdateNotifications(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var patch model.NotificationPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}

	prefs, err := h.prefs.UpdateNotificationSettings(r.Context(), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}
