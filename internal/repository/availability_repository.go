package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/slotbook/slotbook-api/internal/models"
)

// AvailabilityRepository provides persistence for weekly rules and per-date
// overrides.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository creates a new availability repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListWeeklyRules returns all recurring rules for a provider ordered by
// weekday and start time.
func (r *AvailabilityRepository) ListWeeklyRules(ctx context.Context, userID string) ([]models.WeeklyRule, error) {
	const query = `SELECT id, user_id, day_of_week, start_time, end_time, created_at FROM weekly_rules WHERE user_id = $1 ORDER BY day_of_week ASC, start_time ASC`
	var rules []models.WeeklyRule
	if err := r.db.SelectContext(ctx, &rules, query, userID); err != nil {
		return nil, fmt.Errorf("list weekly rules: %w", err)
	}
	return rules, nil
}

// ListWeeklyRulesForDay returns the rules matching one weekday, preserving
// stored order.
func (r *AvailabilityRepository) ListWeeklyRulesForDay(ctx context.Context, userID string, dayOfWeek int) ([]models.WeeklyRule, error) {
	const query = `SELECT id, user_id, day_of_week, start_time, end_time, created_at FROM weekly_rules WHERE user_id = $1 AND day_of_week = $2 ORDER BY start_time ASC, id ASC`
	var rules []models.WeeklyRule
	if err := r.db.SelectContext(ctx, &rules, query, userID, dayOfWeek); err != nil {
		return nil, fmt.Errorf("list weekly rules for day: %w", err)
	}
	return rules, nil
}

// ReplaceWeeklyRules swaps a provider's full rule set atomically
// (delete-all-then-insert-all).
func (r *AvailabilityRepository) ReplaceWeeklyRules(ctx context.Context, userID string, rules []models.WeeklyRule) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace weekly rules: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM weekly_rules WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear weekly rules: %w", err)
	}

	now := time.Now().UTC()
	for i := range rules {
		payload := rules[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		payload.UserID = userID
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		if _, err = sqlx.NamedExecContext(ctx, tx, `INSERT INTO weekly_rules (id, user_id, day_of_week, start_time, end_time, created_at) VALUES (:id, :user_id, :day_of_week, :start_time, :end_time, :created_at)`, &payload); err != nil {
			return fmt.Errorf("insert weekly rule: %w", err)
		}
		rules[i] = payload
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace weekly rules: %w", err)
	}
	return nil
}

// FindOverride loads the override for a provider and date. Absence is normal
// and returns (nil, nil).
func (r *AvailabilityRepository) FindOverride(ctx context.Context, userID string, date time.Time) (*models.DateOverride, error) {
	const query = `SELECT user_id, date, start_time, end_time, created_at, updated_at FROM date_overrides WHERE user_id = $1 AND date = $2`
	var override models.DateOverride
	if err := r.db.GetContext(ctx, &override, query, userID, date); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find override: %w", err)
	}
	return &override, nil
}

// UpsertOverride creates or replaces the override for (user, date).
func (r *AvailabilityRepository) UpsertOverride(ctx context.Context, override *models.DateOverride) error {
	now := time.Now().UTC()
	if override.CreatedAt.IsZero() {
		override.CreatedAt = now
	}
	override.UpdatedAt = now

	const query = `INSERT INTO date_overrides (user_id, date, start_time, end_time, created_at, updated_at)
		VALUES (:user_id, :date, :start_time, :end_time, :created_at, :updated_at)
		ON CONFLICT (user_id, date) DO UPDATE SET start_time = EXCLUDED.start_time, end_time = EXCLUDED.end_time, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, override); err != nil {
		return fmt.Errorf("upsert override: %w", err)
	}
	return nil
}

// DeleteOverride removes the override for (user, date).
func (r *AvailabilityRepository) DeleteOverride(ctx context.Context, userID string, date time.Time) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM date_overrides WHERE user_id = $1 AND date = $2`, userID, date); err != nil {
		return fmt.Errorf("delete override: %w", err)
	}
	return nil
}
