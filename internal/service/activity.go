package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sakif/engage/internal/apperror"
	"github.com/sakif/engage/internal/model"
	"github.com/sakif/engage/internal/repository"
)

const (
	DefaultActivityLimit = 20
	MaxActivityLimit     = 100
	MaxActivityTitle     = 200
	DefaultCurrency      = "USD"

	// SyntheticIDPrefix marks placeholder activities that were never stored.
	SyntheticIDPrefix = "sample-"
)

// Source names used in degradation reports.
const (
	SourceVolunteerSessions  = "volunteer_sessions"
	SourceEventRegistrations = "event_registrations"
	SourceDonations          = "donations"
)

// SourceFailure is one activity source that could not be read.
type SourceFailure struct {
	Source string `json:"source"`
	Reason string `json:"reason"`
}

// Feed is the merged activity history of a user. Degraded lists the sources
// that failed; their records are missing from Activities.
type Feed struct {
	Activities  []model.Activity `json:"activities"`
	Degraded    []SourceFailure  `json:"degraded,omitempty"`
	Placeholder bool             `json:"placeholder,omitempty"`
}

type ActivityOption func(*ActivityService)

// WithPlaceholders enables the illustrative feed for users with no history.
func WithPlaceholders(enabled bool) ActivityOption {
	return func(s *ActivityService) { s.placeholders = enabled }
}

// WithClock overrides time.Now. Used by tests.
func WithClock(now func() time.Time) ActivityOption {
	return func(s *ActivityService) { s.now = now }
}

// ActivityService aggregates and records volunteer sessions, event
// registrations and donations.
type ActivityService struct {
	repo         repository.ActivityRepository
	logger       *slog.Logger
	placeholders bool
	now          func() time.Time
}

func NewActivityService(repo repository.ActivityRepository, logger *slog.Logger, opts ...ActivityOption) *ActivityService {
	s := &ActivityService{repo: repo, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetUserActivities reads the three sources concurrently and merges them
// newest first.
//
// SETTLE-ALL JOIN:
// Each goroutine records its own outcome and returns nil to the errgroup, so
// one failing source never cancels or hides the others. A failed source adds
// a Degraded entry; only when all three fail is the call itself an error.
//
// Each source is bounded by limit, and the cut to limit happens again after
// the global sort, so a busy source can fill the page when the others are
// sparse.
func (s *ActivityService) GetUserActivities(ctx context.Context, userID string, limit int) (*Feed, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}
	limit = clampActivityLimit(limit)

	type outcome struct {
		source     string
		activities []model.Activity
		err        error
	}
	outcomes := make([]outcome, 3)

	var g errgroup.Group
	g.Go(func() error {
		rows, err := s.repo.ListVolunteerSessions(ctx, userID, limit)
		o := outcome{source: SourceVolunteerSessions, err: err}
		for i := range rows {
			o.activities = append(o.activities, rows[i].Activity())
		}
		outcomes[0] = o
		return nil
	})
	g.Go(func() error {
		rows, err := s.repo.ListEventRegistrations(ctx, userID, limit)
		o := outcome{source: SourceEventRegistrations, err: err}
		for i := range rows {
			o.activities = append(o.activities, rows[i].Activity())
		}
		outcomes[1] = o
		return nil
	})
	g.Go(func() error {
		rows, err := s.repo.ListDonations(ctx, userID, limit)
		o := outcome{source: SourceDonations, err: err}
		for i := range rows {
			o.activities = append(o.activities, rows[i].Activity())
		}
		outcomes[2] = o
		return nil
	})
	_ = g.Wait() // every func returns nil

	feed := &Feed{Activities: []model.Activity{}}
	var failed []string
	for _, o := range outcomes {
		if o.err != nil {
			failed = append(failed, o.source)
			feed.Degraded = append(feed.Degraded, SourceFailure{Source: o.source, Reason: apperror.Reason(o.err)})
			s.logger.Warn("activity source failed",
				slog.String("userID", userID),
				slog.String("source", o.source),
				slog.String("error", o.err.Error()),
			)
			continue
		}
		feed.Activities = append(feed.Activities, o.activities...)
	}

	if len(failed) == len(outcomes) {
		s.logger.Error("all activity sources failed", slog.String("userID", userID))
		return nil, apperror.Unavailable("activities", failed...)
	}

	slices.SortStableFunc(feed.Activities, model.CompareActivities)
	if len(feed.Activities) > limit {
		feed.Activities = feed.Activities[:limit]
	}

	if len(feed.Activities) == 0 && len(failed) == 0 && s.placeholders {
		feed.Activities = placeholderActivities(s.now(), limit)
		feed.Placeholder = true
	}

	s.logger.Debug("activities aggregated",
		slog.String("userID", userID),
		slog.Int("count", len(feed.Activities)),
		slog.Int("degraded", len(feed.Degraded)),
	)
	return feed, nil
}

// placeholderActivities is the illustrative empty-state feed. Every entry
// carries SyntheticIDPrefix and Synthetic=true.
func placeholderActivities(now time.Time, limit int) []model.Activity {
	hours := 3.0
	amount := 25.0
	day := 24 * time.Hour
	samples := []model.Activity{
		{
			ID:            SyntheticIDPrefix + "volunteer-1",
			Type:          model.ActivityVolunteer,
			Title:         "Community garden cleanup",
			Date:          now.Add(-3 * day),
			Location:      "Riverside Park",
			Hours:         &hours,
			Status:        string(model.SessionCompleted),
			DisplayStatus: model.SessionCompleted.Display(),
			Synthetic:     true,
		},
		{
			ID:            SyntheticIDPrefix + "event-1",
			Type:          model.ActivityEvent,
			Title:         "Charity fun run",
			Date:          now.Add(-7 * day),
			Status:        string(model.AttendanceRegistered),
			DisplayStatus: model.AttendanceRegistered.Display(),
			Synthetic:     true,
		},
		{
			ID:            SyntheticIDPrefix + "donation-1",
			Type:          model.ActivityDonation,
			Title:         "Food bank donation",
			Date:          now.Add(-14 * day),
			Amount:        &amount,
			Currency:      DefaultCurrency,
			Status:        string(model.DonationCompleted),
			DisplayStatus: model.DonationCompleted.Display(),
			Synthetic:     true,
		},
	}
	return samples[:min(limit, len(samples))]
}

func clampActivityLimit(limit int) int {
	if limit <= 0 {
		return DefaultActivityLimit
	}
	return min(limit, MaxActivityLimit)
}

// --- Recording ---

// LogVolunteerSession stores a session for userID. Status defaults to
// completed.
func (s *ActivityService) LogVolunteerSession(ctx context.Context, userID string, session model.VolunteerSession) (*model.VolunteerSession, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}
	session.UserID = userID
	session.Title = strings.TrimSpace(session.Title)
	if err := validateTitle("title", session.Title); err != nil {
		return nil, err
	}
	if session.HoursWorked < 0 || math.IsNaN(session.HoursWorked) || math.IsInf(session.HoursWorked, 0) {
		return nil, apperror.ValidationFailed("hoursWorked", "hours worked must be a non-negative number")
	}
	if session.SessionDate.IsZero() {
		return nil, apperror.ValidationFailed("sessionDate", "session date is required")
	}
	if session.Status == "" {
		session.Status = model.SessionCompleted
	}
	if !session.Status.Valid() {
		return nil, apperror.ValidationFailed("status",
			fmt.Sprintf("status must be one of %s, %s, %s", model.SessionRegistered, model.SessionCompleted, model.SessionCancelled))
	}

	if err := s.repo.CreateVolunteerSession(ctx, &session); err != nil {
		s.logger.Error("failed to log volunteer session",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("logging volunteer session: %w", err)
	}

	s.logger.Info("volunteer session logged",
		slog.String("userID", userID),
		slog.String("id", session.ID),
		slog.Float64("hours", session.HoursWorked),
	)
	return &session, nil
}

// RegisterForEvent records a registration dated now.
func (s *ActivityService) RegisterForEvent(ctx context.Context, userID, eventID, eventTitle string) (*model.EventRegistration, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}
	eventTitle = strings.TrimSpace(eventTitle)
	if err := validateTitle("eventTitle", eventTitle); err != nil {
		return nil, err
	}

	reg := &model.EventRegistration{
		UserID:           userID,
		EventID:          strings.TrimSpace(eventID),
		EventTitle:       eventTitle,
		RegistrationDate: s.now(),
		AttendanceStatus: model.AttendanceRegistered,
	}
	if err := s.repo.CreateEventRegistration(ctx, reg); err != nil {
		return nil, fmt.Errorf("registering for event: %w", err)
	}

	s.logger.Info("event registration recorded",
		slog.String("userID", userID),
		slog.String("id", reg.ID),
		slog.String("eventID", reg.EventID),
	)
	return reg, nil
}

// UpdateEventAttendance sets the attendance of one of the user's
// registrations. Registrations of other users are NotFound.
func (s *ActivityService) UpdateEventAttendance(ctx context.Context, userID, registrationID string, status model.AttendanceStatus) (*model.EventRegistration, error) {
	registrationID = strings.TrimSpace(registrationID)
	if registrationID == "" {
		return nil, apperror.ValidationFailed("id", "registration ID is required")
	}
	if !status.Valid() {
		return nil, apperror.ValidationFailed("attendanceStatus",
			fmt.Sprintf("attendance status must be one of %s, %s, %s, %s",
				model.AttendanceRegistered, model.AttendanceAttended, model.AttendanceNoShow, model.AttendanceCancelled))
	}

	reg, err := s.repo.UpdateAttendance(ctx, userID, registrationID, status)
	if err != nil {
		return nil, err
	}

	s.logger.Info("attendance updated",
		slog.String("userID", userID),
		slog.String("id", registrationID),
		slog.String("status", string(status)),
	)
	return reg, nil
}

// RecordDonation books a donation captured elsewhere. Currency defaults to
// USD, status to completed and the date to now.
func (s *ActivityService) RecordDonation(ctx context.Context, userID string, d model.Donation) (*model.Donation, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}
	d.UserID = userID
	if d.Amount < 0 || math.IsNaN(d.Amount) || math.IsInf(d.Amount, 0) {
		return nil, apperror.ValidationFailed("amount", "amount must be a non-negative number")
	}
	if !d.DonationType.Valid() {
		return nil, apperror.ValidationFailed("donationType",
			fmt.Sprintf("donation type must be %s or %s", model.DonationMonetary, model.DonationInKind))
	}
	d.Currency = strings.ToUpper(strings.TrimSpace(d.Currency))
	if d.Currency == "" {
		d.Currency = DefaultCurrency
	}
	if len(d.Currency) != 3 {
		return nil, apperror.ValidationFailed("currency", "currency must be a 3-letter code")
	}
	if d.Status == "" {
		d.Status = model.DonationCompleted
	}
	if !d.Status.Valid() {
		return nil, apperror.ValidationFailed("status",
			fmt.Sprintf("status must be one of %s, %s, %s", model.DonationCompleted, model.DonationPending, model.DonationCancelled))
	}
	if d.DonationDate.IsZero() {
		d.DonationDate = s.now()
	}
	d.Description = strings.TrimSpace(d.Description)

	if err := s.repo.CreateDonation(ctx, &d); err != nil {
		s.logger.Error("failed to record donation",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("recording donation: %w", err)
	}

	s.logger.Info("donation recorded",
		slog.String("userID", userID),
		slog.String("id", d.ID),
		slog.Float64("amount", d.Amount),
		slog.String("currency", d.Currency),
	)
	return &d, nil
}

func validateTitle(field, title string) error {
	if title == "" {
		return apperror.ValidationFailed(field, field+" is required")
	}
	if len(title) > MaxActivityTitle {
		return apperror.ValidationFailed(field,
			fmt.Sprintf("%s must be %d characters or less", field, MaxActivityTitle))
	}
	return nil
}
