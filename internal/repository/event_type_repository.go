package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/slotbook/slotbook-api/internal/models"
)

// EventTypeRepository provides persistence for bookable services.
type EventTypeRepository struct {
	db *sqlx.DB
}

// NewEventTypeRepository creates a new event type repository.
func NewEventTypeRepository(db *sqlx.DB) *EventTypeRepository {
	return &EventTypeRepository{db: db}
}

// ListByUser returns a provider's event types ordered by name.
func (r *EventTypeRepository) ListByUser(ctx context.Context, userID string) ([]models.EventType, error) {
	const query = `SELECT id, user_id, name, duration_minutes, buffer_minutes, active, created_at, updated_at FROM event_types WHERE user_id = $1 ORDER BY name ASC`
	var types []models.EventType
	if err := r.db.SelectContext(ctx, &types, query, userID); err != nil {
		return nil, fmt.Errorf("list event types: %w", err)
	}
	return types, nil
}

// FindByID loads an event type by id.
func (r *EventTypeRepository) FindByID(ctx context.Context, id string) (*models.EventType, error) {
	const query = `SELECT id, user_id, name, duration_minutes, buffer_minutes, active, created_at, updated_at FROM event_types WHERE id = $1`
	var et models.EventType
	if err := r.db.GetContext(ctx, &et, query, id); err != nil {
		return nil, err
	}
	return &et, nil
}

// Create stores a new event type.
func (r *EventTypeRepository) Create(ctx context.Context, et *models.EventType) error {
	if et.ID == "" {
		et.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if et.CreatedAt.IsZero() {
		et.CreatedAt = now
	}
	et.UpdatedAt = now

	const query = `INSERT INTO event_types (id, user_id, name, duration_minutes, buffer_minutes, active, created_at, updated_at)
		VALUES (:id, :user_id, :name, :duration_minutes, :buffer_minutes, :active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, et); err != nil {
		return fmt.Errorf("create event type: %w", err)
	}
	return nil
}

// Update modifies an event type.
func (r *EventTypeRepository) Update(ctx context.Context, et *models.EventType) error {
	et.UpdatedAt = time.Now().UTC()
	const query = `UPDATE event_types SET name = :name, duration_minutes = :duration_minutes, buffer_minutes = :buffer_minutes, active = :active, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, et); err != nil {
		return fmt.Errorf("update event type: %w", err)
	}
	return nil
}
