package models

import (
	"time"

	"github.com/google/uuid"
)

// EventStatus governs public visibility: only accepted events appear on the
// public calendar.
type EventStatus string

const (
	EventPending  EventStatus = "pending"
	EventAccepted EventStatus = "accepted"
	EventRejected EventStatus = "rejected"
)

// Event is one calendar entry.
//
// Datetime is the human-readable schedule string shown on the site (e.g.
// "mercredi 21 mai 2025 à 16h30") and is not machine-sortable. Date is the
// authoritative sortable field, an ISO YYYY-MM-DD string; it may be empty for
// legacy entries that were never validated.
type Event struct {
	ID         uuid.UUID   `json:"id"`
	Name       string      `json:"name"`
	Datetime   string      `json:"datetime"`
	Date       string      `json:"date,omitempty"`
	EndTime    string      `json:"end_time,omitempty"`
	Place      string      `json:"place,omitempty"`
	City       string      `json:"city"`
	Department string      `json:"department,omitempty"`
	Price      string      `json:"price,omitempty"`
	Audience   string      `json:"audience,omitempty"`
	Emoji      string      `json:"emoji,omitempty"`
	URL        string      `json:"url,omitempty"`
	ImageURL   string      `json:"image_url,omitempty"`
	ThemeID    *uuid.UUID  `json:"theme_id,omitempty"`
	Theme      *Theme      `json:"theme,omitempty"`
	Status     EventStatus `json:"status"`
	// OrganizationID is nil for global events, visible across scopes.
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	// CreatedBy is a snapshot of the proposer captured at submission time,
	// never updated afterwards.
	CreatedBy *Proposer `json:"createdby,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Proposer identifies who submitted a public event proposal.
type Proposer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}
