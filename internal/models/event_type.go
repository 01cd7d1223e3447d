package models

import "time"

// EventType is a bookable service a provider offers. Duration drives slot
// length; buffer pads the appointment on both sides when checking conflicts.
type EventType struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	Name            string    `db:"name" json:"name"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	BufferMinutes   int       `db:"buffer_minutes" json:"buffer_minutes"`
	Active          bool      `db:"active" json:"active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}
