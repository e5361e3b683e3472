package model

import "time"

// Profile is the application-owned record for one identity: display name plus
// aggregate engagement counters. ID equals the Identity ID.
type Profile struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"` // informational copy, never authoritative
	AvatarURL      string    `json:"avatarUrl,omitempty"`
	VolunteerHours int       `json:"volunteerHours"`
	EventsAttended int       `json:"eventsAttended"`
	DonationsMade  int       `json:"donationsMade"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ProfileUpdate lists the user-editable profile fields. A nil pointer leaves
// the stored value alone. Email and the counters are deliberately absent.
type ProfileUpdate struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}

func (u ProfileUpdate) IsEmpty() bool {
	return u.Name == nil && u.AvatarURL == nil
}
