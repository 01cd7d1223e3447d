package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/slotbook/slotbook-api/internal/models"
)

// ProviderRepository provides persistence for provider booking settings.
type ProviderRepository struct {
	db *sqlx.DB
}

// NewProviderRepository creates a new provider repository.
func NewProviderRepository(db *sqlx.DB) *ProviderRepository {
	return &ProviderRepository{db: db}
}

// GetSettings loads a provider's settings. Absence is normal (the caller
// applies policy defaults) and returns (nil, nil).
func (r *ProviderRepository) GetSettings(ctx context.Context, userID string) (*models.ProviderSettings, error) {
	const query = `SELECT user_id, min_lead_time_hours, max_future_days, plan_id, created_at, updated_at FROM provider_settings WHERE user_id = $1`
	var settings models.ProviderSettings
	if err := r.db.GetContext(ctx, &settings, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get provider settings: %w", err)
	}
	return &settings, nil
}

// UpsertSettings creates or updates a provider's settings row.
func (r *ProviderRepository) UpsertSettings(ctx context.Context, settings *models.ProviderSettings) error {
	now := time.Now().UTC()
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = now
	}
	settings.UpdatedAt = now

	const query = `INSERT INTO provider_settings (user_id, min_lead_time_hours, max_future_days, plan_id, created_at, updated_at)
		VALUES (:user_id, :min_lead_time_hours, :max_future_days, :plan_id, :created_at, :updated_at)
		ON CONFLICT (user_id) DO UPDATE SET min_lead_time_hours = EXCLUDED.min_lead_time_hours, max_future_days = EXCLUDED.max_future_days, plan_id = EXCLUDED.plan_id, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, settings); err != nil {
		return fmt.Errorf("upsert provider settings: %w", err)
	}
	return nil
}
