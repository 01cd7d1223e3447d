package models

import "time"

// WeeklyRule is one recurring availability block on a weekday. A provider may
// have several rules for the same weekday (e.g. a morning and an afternoon
// block); rules are replaced wholesale, never edited in place.
type WeeklyRule struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	StartTime string    `db:"start_time" json:"start_time"`
	EndTime   string    `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DateOverride replaces the weekly rules for a single calendar date. A nil
// StartTime marks the whole day off.
type DateOverride struct {
	UserID    string    `db:"user_id" json:"user_id"`
	Date      time.Time `db:"date" json:"date"`
	StartTime *string   `db:"start_time" json:"start_time"`
	EndTime   *string   `db:"end_time" json:"end_time"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// DayOff reports whether the override blocks the whole date.
func (o *DateOverride) DayOff() bool {
	return o != nil && o.StartTime == nil
}

// Slot is a bookable interval of exactly the requested duration.
type Slot struct {
	Start string `json:"start"`
	End   string `json:"end"`
}
