package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/xid"
	"github.com/sakif/engage/internal/apperror"
	"github.com/sakif/engage/internal/model"
	"github.com/sakif/engage/internal/repository"
)

var _ repository.ActivityRepository = (*DB)(nil)

// --- Volunteer sessions ---

func (db *DB) CreateVolunteerSession(ctx context.Context, s *model.VolunteerSession) error {
	s.ID = xid.New().String()
	now := db.now()
	s.CreatedAt = now
	s.UpdatedAt = now
	s.SessionDate = s.SessionDate.UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO user_volunteer_sessions
			(id, user_id, opportunity_id, title, description, hours_worked, session_date, location, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.OpportunityID, s.Title, s.Description, s.HoursWorked,
		s.SessionDate, s.Location, string(s.Status), s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating volunteer session: %w", err)
	}
	return nil
}

func (db *DB) ListVolunteerSessions(ctx context.Context, userID string, limit int) ([]model.VolunteerSession, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, opportunity_id, title, description, hours_worked, session_date, location, status, created_at, updated_at
		 FROM user_volunteer_sessions
		 WHERE user_id = ?
		 ORDER BY session_date DESC, id DESC
		 LIMIT ?`,
		userID, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing volunteer sessions for %s: %w", userID, err)
	}
	defer rows.Close()

	var sessions []model.VolunteerSession
	for rows.Next() {
		var (
			s      model.VolunteerSession
			status string
		)
		if err := rows.Scan(&s.ID, &s.UserID, &s.OpportunityID, &s.Title, &s.Description, &s.HoursWorked,
			&s.SessionDate, &s.Location, &status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning volunteer session row: %w", err)
		}
		s.Status = model.SessionStatus(status)
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating volunteer sessions: %w", err)
	}
	return sessions, nil
}

// --- Event registrations ---

func (db *DB) CreateEventRegistration(ctx context.Context, r *model.EventRegistration) error {
	r.ID = xid.New().String()
	now := db.now()
	r.CreatedAt = now
	r.UpdatedAt = now
	if r.RegistrationDate.IsZero() {
		r.RegistrationDate = now
	}
	r.RegistrationDate = r.RegistrationDate.UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO user_event_registrations
			(id, user_id, event_id, event_title, registration_date, attendance_status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserID, r.EventID, r.EventTitle, r.RegistrationDate,
		string(r.AttendanceStatus), r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating event registration: %w", err)
	}
	return nil
}

const registrationColumns = `id, user_id, event_id, event_title, registration_date, attendance_status, created_at, updated_at`

func scanRegistration(row interface{ Scan(...any) error }) (*model.EventRegistration, error) {
	var (
		r      model.EventRegistration
		status string
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.EventID, &r.EventTitle, &r.RegistrationDate,
		&status, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	r.AttendanceStatus = model.AttendanceStatus(status)
	return &r, nil
}

func (db *DB) ListEventRegistrations(ctx context.Context, userID string, limit int) ([]model.EventRegistration, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+registrationColumns+`
		 FROM user_event_registrations
		 WHERE user_id = ?
		 ORDER BY registration_date DESC, id DESC
		 LIMIT ?`,
		userID, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing event registrations for %s: %w", userID, err)
	}
	defer rows.Close()

	var regs []model.EventRegistration
	for rows.Next() {
		r, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning event registration row: %w", err)
		}
		regs = append(regs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating event registrations: %w", err)
	}
	return regs, nil
}

func (db *DB) UpdateAttendance(ctx context.Context, userID, id string, status model.AttendanceStatus) (*model.EventRegistration, error) {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE user_event_registrations SET attendance_status = ?, updated_at = ?
		 WHERE id = ? AND user_id = ?`,
		string(status), db.now(), id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: updating attendance for %s: %w", id, err)
	}
	if err := expectRow(result, "event registration", id); err != nil {
		return nil, err
	}

	r, err := scanRegistration(db.conn.QueryRowContext(ctx,
		`SELECT `+registrationColumns+` FROM user_event_registrations WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("event registration", id)
		}
		return nil, fmt.Errorf("sqlite: reading event registration %s: %w", id, err)
	}
	return r, nil
}

// --- Donations ---

func (db *DB) CreateDonation(ctx context.Context, d *model.Donation) error {
	d.ID = xid.New().String()
	now := db.now()
	d.CreatedAt = now
	d.UpdatedAt = now
	d.DonationDate = d.DonationDate.UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO user_donations
			(id, user_id, amount, currency, donation_type, description, donation_date, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.UserID, d.Amount, d.Currency, string(d.DonationType), d.Description,
		d.DonationDate, string(d.Status), d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating donation: %w", err)
	}
	return nil
}

func (db *DB) ListDonations(ctx context.Context, userID string, limit int) ([]model.Donation, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, amount, currency, donation_type, description, donation_date, status, created_at, updated_at
		 FROM user_donations
		 WHERE user_id = ?
		 ORDER BY donation_date DESC, id DESC
		 LIMIT ?`,
		userID, clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing donations for %s: %w", userID, err)
	}
	defer rows.Close()

	var donations []model.Donation
	for rows.Next() {
		var (
			d            model.Donation
			kind, status string
		)
		if err := rows.Scan(&d.ID, &d.UserID, &d.Amount, &d.Currency, &kind, &d.Description,
			&d.DonationDate, &status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning donation row: %w", err)
		}
		d.DonationType = model.DonationType(kind)
		d.Status = model.DonationStatus(status)
		donations = append(donations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating donations: %w", err)
	}
	return donations, nil
}
