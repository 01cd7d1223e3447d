package models

import "time"

// ProviderSettings holds a provider's booking policy. Missing rows fall back
// to DefaultMinLeadTimeHours / DefaultMaxFutureDays.
type ProviderSettings struct {
	UserID           string    `db:"user_id" json:"user_id"`
	MinLeadTimeHours int       `db:"min_lead_time_hours" json:"min_lead_time_hours"`
	MaxFutureDays    int       `db:"max_future_days" json:"max_future_days"`
	PlanID           string    `db:"plan_id" json:"plan_id"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// Policy defaults applied when a provider has no settings row.
const (
	DefaultMinLeadTimeHours = 2
	DefaultMaxFutureDays    = 30
)

// Plan describes a subscription tier's booking quota.
type Plan struct {
	ID                      string `json:"id"`
	Name                    string `json:"name"`
	MaxAppointmentsPerMonth int    `json:"max_appointments_per_month"`
}

// Pagination carries list metadata in response envelopes.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
