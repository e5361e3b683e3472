package model

import "time"

// Opportunity is a volunteering engagement a user can be matched against.
// A nil Date means "to be determined".
type Opportunity struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	InterestArea string     `json:"interestArea,omitempty"`
	Location     string     `json:"location,omitempty"`
	Date         *time.Time `json:"date,omitempty"`
	Description  string     `json:"description,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}
