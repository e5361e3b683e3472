package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/engage/internal/model"
	"github.com/sakif/engage/internal/service"
)

// ActivityManager is what ActivityHandler needs from service.ActivityService.
type ActivityManager interface {
	GetUserActivities(ctx context.Context, userID string, limit int) (*service.Feed, error)
	LogVolunteerSession(ctx context.Context, userID string, session model.VolunteerSession) (*model.VolunteerSession, error)
	RegisterForEvent(ctx context.Context, userID, eventID, eventTitle string) (*model.EventRegistration, error)
	UpdateEventAttendance(ctx context.Context, userID, registrationID string, status model.AttendanceStatus) (*model.EventRegistration, error)
	RecordDonation(ctx context.Context, userID string, d model.Donation) (*model.Donation, error)
}

// ActivityHandler serves the unified feed and records new activity.
type ActivityHandler struct {
	activities ActivityManager
	logger     *slog.Logger
}

func NewActivityHandler(activities ActivityManager, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{activities: activities, logger: logger}
}

// HandleFeed returns the merged history, newest first.
//
// HTTP: GET /api/me/activities?limit=20
//
// A partially degraded feed is still 200: the body's "degraded" list names
// the sources that could not be read. Only when all of them fail is it 503.
func (h *ActivityHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	feed, err := h.activities.GetUserActivities(r.Context(), id, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}

type logSessionRequest struct {
	OpportunityID string              `json:"opportunityId"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	HoursWorked   float64             `json:"hoursWorked"`
	SessionDate   time.Time           `json:"sessionDate"`
	Location      string              `json:"location"`
	Status        model.SessionStatus `json:"status"`
}

// HandleLogSession
//
// HTTP: POST /api/me/sessions
func (h *ActivityHandler) HandleLogSession(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req logSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.activities.LogVolunteerSession(r.Context(), id, model.VolunteerSession{
		OpportunityID: req.OpportunityID,
		Title:         req.Title,
		Description:   req.Description,
		HoursWorked:   req.HoursWorked,
		SessionDate:   req.SessionDate,
		Location:      req.Location,
		Status:        req.Status,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

type registerRequest struct {
	EventID    string `json:"eventId"`
	EventTitle string `json:"eventTitle"`
}

// HandleRegister
//
// HTTP: POST /api/me/registrations
func (h *ActivityHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	reg, err := h.activities.RegisterForEvent(r.Context(), id, req.EventID, req.EventTitle)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

type attendanceRequest struct {
	AttendanceStatus model.AttendanceStatus `json:"attendanceStatus"`
}

// HandleUpdateAttendance
//
// HTTP: PATCH /api/me/registrations/{id}
//
// URL PARAMETERS:
// chi.URLParam(r, "id") returns "abc123" for PATCH /api/me/registrations/abc123.
func (h *ActivityHandler) HandleUpdateAttendance(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req attendanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	reg, err := h.activities.UpdateEventAttendance(r.Context(), id, chi.URLParam(r, "id"), req.AttendanceStatus)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

type donationRequest struct {
	Amount       float64              `json:"amount"`
	Currency     string               `json:"currency"`
	DonationType model.DonationType   `json:"donationType"`
	Description  string               `json:"description"`
	DonationDate time.Time            `json:"donationDate"`
	Status       model.DonationStatus `json:"status"`
}

// HandleRecordDonation books a donation. Payment capture is not done here.
//
// HTTP: POST /api/me/donations
func (h *ActivityHandler) HandleRecordDonation(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req donationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	d, err := h.activities.RecordDonation(r.Context(), id, model.Donation{
		Amount:       req.Amount,
		Currency:     req.Currency,
		DonationType: req.DonationType,
		Description:  req.Description,
		DonationDate: req.DonationDate,
		Status:       req.Status,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}
