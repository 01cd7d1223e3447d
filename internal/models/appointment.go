package models

import "time"

// AppointmentStatus is the closed set of appointment lifecycle states.
type AppointmentStatus string

const (
	StatusScheduled   AppointmentStatus = "SCHEDULED"
	StatusCanceled    AppointmentStatus = "CANCELED"
	StatusCompleted   AppointmentStatus = "COMPLETED"
	StatusRescheduled AppointmentStatus = "RESCHEDULED"
)

// Valid reports whether s is a known status value.
func (s AppointmentStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusCanceled, StatusCompleted, StatusRescheduled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s AppointmentStatus) Terminal() bool {
	return s.Valid() && s != StatusScheduled
}

// Appointment is a booked (or historical) client appointment. Rows are never
// deleted; cancellation and rescheduling only change the status.
type Appointment struct {
	ID            string            `db:"id" json:"id"`
	UserID        string            `db:"user_id" json:"user_id"`
	EventTypeID   *string           `db:"event_type_id" json:"event_type_id,omitempty"`
	Date          time.Time         `db:"date" json:"date"`
	StartTime     string            `db:"start_time" json:"start_time"`
	EndTime       string            `db:"end_time" json:"end_time"`
	BufferMinutes int               `db:"buffer_minutes" json:"buffer_minutes"`
	Status        AppointmentStatus `db:"status" json:"status"`
	ClientName    string            `db:"client_name" json:"client_name"`
	ClientEmail   string            `db:"client_email" json:"client_email"`
	CancelToken   string            `db:"cancel_token" json:"-"`
	CreatedAt     time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time         `db:"updated_at" json:"updated_at"`
}

// AppointmentFilter selects a provider's appointments for listing.
type AppointmentFilter struct {
	UserID   string
	From     time.Time
	To       time.Time
	Status   AppointmentStatus
	Page     int
	PageSize int
}
