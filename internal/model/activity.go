package model

import (
	"fmt"
	"time"
)

// ActivityType tags the source an Activity was derived from.
type ActivityType string

const (
	ActivityVolunteer ActivityType = "volunteer"
	ActivityEvent     ActivityType = "event"
	ActivityDonation  ActivityType = "donation"
)

// rank orders types when two activities share a date.
func (t ActivityType) rank() int {
	switch t {
	case ActivityVolunteer:
		return 0
	case ActivityEvent:
		return 1
	case ActivityDonation:
		return 2
	}
	return 3
}

// DisplayStatus is the one status vocabulary screens render. Each source keeps
// its own closed set and converts at display time.
type DisplayStatus string

const (
	DisplayUpcoming  DisplayStatus = "upcoming"
	DisplayDone      DisplayStatus = "done"
	DisplayPending   DisplayStatus = "pending"
	DisplayMissed    DisplayStatus = "missed"
	DisplayCancelled DisplayStatus = "cancelled"
	DisplayUnknown   DisplayStatus = "unknown"
)

// SessionStatus is the lifecycle of a volunteer session.
type SessionStatus string

const (
	SessionRegistered SessionStatus = "registered"
	SessionCompleted  SessionStatus = "completed"
	SessionCancelled  SessionStatus = "cancelled"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionRegistered, SessionCompleted, SessionCancelled:
		return true
	}
	return false
}

func (s SessionStatus) Display() DisplayStatus {
	switch s {
	case SessionRegistered:
		return DisplayUpcoming
	case SessionCompleted:
		return DisplayDone
	case SessionCancelled:
		return DisplayCancelled
	}
	return DisplayUnknown
}

// AttendanceStatus is the lifecycle of an event registration.
type AttendanceStatus string

const (
	AttendanceRegistered AttendanceStatus = "registered"
	AttendanceAttended   AttendanceStatus = "attended"
	AttendanceNoShow     AttendanceStatus = "no_show"
	AttendanceCancelled  AttendanceStatus = "cancelled"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceRegistered, AttendanceAttended, AttendanceNoShow, AttendanceCancelled:
		return true
	}
	return false
}

func (s AttendanceStatus) Display() DisplayStatus {
	switch s {
	case AttendanceRegistered:
		return DisplayUpcoming
	case AttendanceAttended:
		return DisplayDone
	case AttendanceNoShow:
		return DisplayMissed
	case AttendanceCancelled:
		return DisplayCancelled
	}
	return DisplayUnknown
}

// DonationStatus is the bookkeeping state of a donation record.
type DonationStatus string

const (
	DonationCompleted DonationStatus = "completed"
	DonationPending   DonationStatus = "pending"
	DonationCancelled DonationStatus = "cancelled"
)

func (s DonationStatus) Valid() bool {
	switch s {
	case DonationCompleted, DonationPending, DonationCancelled:
		return true
	}
	return false
}

func (s DonationStatus) Display() DisplayStatus {
	switch s {
	case DonationCompleted:
		return DisplayDone
	case DonationPending:
		return DisplayPending
	case DonationCancelled:
		return DisplayCancelled
	}
	return DisplayUnknown
}

type DonationType string

const (
	DonationMonetary DonationType = "monetary"
	DonationInKind   DonationType = "in_kind"
)

func (t DonationType) Valid() bool {
	return t == DonationMonetary || t == DonationInKind
}

// VolunteerSession is a row of the volunteer sessions collection.
type VolunteerSession struct {
	ID            string        `json:"id"`
	UserID        string        `json:"userId"`
	OpportunityID string        `json:"opportunityId,omitempty"`
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	HoursWorked   float64       `json:"hoursWorked"`
	SessionDate   time.Time     `json:"sessionDate"`
	Location      string        `json:"location,omitempty"`
	Status        SessionStatus `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// EventRegistration is a row of the event registrations collection.
type EventRegistration struct {
	ID               string           `json:"id"`
	UserID           string           `json:"userId"`
	EventID          string           `json:"eventId,omitempty"`
	EventTitle       string           `json:"eventTitle"`
	RegistrationDate time.Time        `json:"registrationDate"`
	AttendanceStatus AttendanceStatus `json:"attendanceStatus"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// Donation is a row of the donations collection. Payment capture happens
// elsewhere; this is bookkeeping only.
type Donation struct {
	ID           string         `json:"id"`
	UserID       string         `json:"userId"`
	Amount       float64        `json:"amount"`
	Currency     string         `json:"currency"`
	DonationType DonationType   `json:"donationType"`
	Description  string         `json:"description,omitempty"`
	DonationDate time.Time      `json:"donationDate"`
	Status       DonationStatus `json:"status"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

// Activity is the unified, read-only feed entry. It is derived on every read
// and never stored.
type Activity struct {
	ID            string        `json:"id"`
	Type          ActivityType  `json:"type"`
	Title         string        `json:"title"`
	Date          time.Time     `json:"date"`
	Location      string        `json:"location,omitempty"`
	Hours         *float64      `json:"hours,omitempty"`
	Amount        *float64      `json:"amount,omitempty"`
	Currency      string        `json:"currency,omitempty"`
	Status        string        `json:"status"`
	DisplayStatus DisplayStatus `json:"displayStatus"`
	Synthetic     bool          `json:"synthetic,omitempty"`
}

func (s *VolunteerSession) Activity() Activity {
	hours := s.HoursWorked
	return Activity{
		ID:            s.ID,
		Type:          ActivityVolunteer,
		Title:         s.Title,
		Date:          s.SessionDate,
		Location:      s.Location,
		Hours:         &hours,
		Status:        string(s.Status),
		DisplayStatus: s.Status.Display(),
	}
}

func (r *EventRegistration) Activity() Activity {
	return Activity{
		ID:            r.ID,
		Type:          ActivityEvent,
		Title:         r.EventTitle,
		Date:          r.RegistrationDate,
		Status:        string(r.AttendanceStatus),
		DisplayStatus: r.AttendanceStatus.Display(),
	}
}

// Activity titles a donation by its description, or "<type> donation" when
// none was recorded.
func (d *Donation) Activity() Activity {
	amount := d.Amount
	title := d.Description
	if title == "" {
		title = fmt.Sprintf("%s donation", d.DonationType)
	}
	return Activity{
		ID:            d.ID,
		Type:          ActivityDonation,
		Title:         title,
		Date:          d.DonationDate,
		Amount:        &amount,
		Currency:      d.Currency,
		Status:        string(d.Status),
		DisplayStatus: d.Status.Display(),
	}
}

// CompareActivities orders newest first. Ties fall back to type and then id so
// the order is total.
func CompareActivities(a, b Activity) int {
	if c := b.Date.Compare(a.Date); c != 0 {
		return c
	}
	if c := a.Type.rank() - b.Type.rank(); c != 0 {
		return c
	}
	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	}
	return 0
}
