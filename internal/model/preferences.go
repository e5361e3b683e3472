package model

import (
	"slices"
	"strings"
	"time"
)

// FlexibleSchedule is the time preference that matches any opportunity date.
const FlexibleSchedule = "Flexible Schedule"

// Preferences is the single volunteering-preference row of a user.
type Preferences struct {
	ID               string               `json:"id"`
	UserID           string               `json:"userId"`
	InterestAreas    []string             `json:"interestAreas"`
	TimePreferences  []string             `json:"timePreferences"`
	CommitmentLevels []string             `json:"commitmentLevels"`
	Notifications    NotificationSettings `json:"notificationSettings"`
	CreatedAt        time.Time            `json:"createdAt"`
	UpdatedAt        time.Time            `json:"updatedAt"`
}

// HasInterestArea reports exact membership; the empty area never matches.
func (p *Preferences) HasInterestArea(area string) bool {
	return area != "" && slices.Contains(p.InterestAreas, area)
}

type NotificationSettings struct {
	Email             bool `json:"email"`
	Push              bool `json:"push"`
	WeeklyDigest      bool `json:"weeklyDigest"`
	OpportunityAlerts bool `json:"opportunityAlerts"`
	Reminders         bool `json:"reminders"`
}

// DefaultNotificationSettings enables every channel.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		Email:             true,
		Push:              true,
		WeeklyDigest:      true,
		OpportunityAlerts: true,
		Reminders:         true,
	}
}

// NotificationPatch is a partial NotificationSettings; nil flags are omitted.
type NotificationPatch struct {
	Email             *bool `json:"email,omitempty"`
	Push              *bool `json:"push,omitempty"`
	WeeklyDigest      *bool `json:"weeklyDigest,omitempty"`
	OpportunityAlerts *bool `json:"opportunityAlerts,omitempty"`
	Reminders         *bool `json:"reminders,omitempty"`
}

// Apply returns base with every non-nil flag of p written over it.
func (p *NotificationPatch) Apply(base NotificationSettings) NotificationSettings {
	if p == nil {
		return base
	}
	set := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	set(&base.Email, p.Email)
	set(&base.Push, p.Push)
	set(&base.WeeklyDigest, p.WeeklyDigest)
	set(&base.OpportunityAlerts, p.OpportunityAlerts)
	set(&base.Reminders, p.Reminders)
	return base
}

// PreferencesInput is what a save writes. Notifications may be nil or
// partial: on insert omitted flags default to enabled, on update they keep
// their stored value.
type PreferencesInput struct {
	UserID           string             `json:"userId"`
	InterestAreas    []string           `json:"interestAreas"`
	TimePreferences  []string           `json:"timePreferences"`
	CommitmentLevels []string           `json:"commitmentLevels"`
	Notifications    *NotificationPatch `json:"notificationSettings,omitempty"`
}

// NormalizeTags trims every tag, drops empties and duplicates, and keeps the
// order of first occurrence. The result is never nil.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
