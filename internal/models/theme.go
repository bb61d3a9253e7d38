package models

import (
	"time"

	"github.com/google/uuid"
)

// Theme is a cosmetic skin optionally attached to an event. Events hold a
// weak reference: deleting a theme leaves referencing events intact.
type Theme struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	ImageURL      string    `json:"image_url,omitempty"`
	ImageURLLight string    `json:"image_url_light,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
