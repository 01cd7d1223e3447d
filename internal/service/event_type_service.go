package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/slotbook/slotbook-api/internal/models"
	appErrors "github.com/slotbook/slotbook-api/pkg/errors"
)

type eventTypeRepository interface {
	ListByUser(ctx context.Context, userID string) ([]models.EventType, error)
	FindByID(ctx context.Context, id string) (*models.EventType, error)
	Create(ctx context.Context, et *models.EventType) error
	Update(ctx context.Context, et *models.EventType) error
}

// CreateEventTypeRequest describes a new bookable service.
type CreateEventTypeRequest struct {
	Name            string `json:"name" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,gt=0"`
	BufferMinutes   int    `json:"buffer_minutes" validate:"gte=0"`
}

// UpdateEventTypeRequest modifies an existing service.
type UpdateEventTypeRequest struct {
	Name            string `json:"name" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"required,gt=0"`
	BufferMinutes   int    `json:"buffer_minutes" validate:"gte=0"`
	Active          bool   `json:"active"`
}

// EventTypeService manages a provider's bookable services.
type EventTypeService struct {
	repo      eventTypeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEventTypeService instantiates EventTypeService.
func NewEventTypeService(repo eventTypeRepository, validate *validator.Validate, logger *zap.Logger) *EventTypeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventTypeService{repo: repo, validator: validate, logger: logger}
}

// List returns the provider's event types.
func (s *EventTypeService) List(ctx context.Context, userID string) ([]models.EventType, error) {
	types, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list event types")
	}
	return types, nil
}

// Create adds a new event type for the provider.
func (s *EventTypeService) Create(ctx context.Context, userID string, req CreateEventTypeRequest) (*models.EventType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event type payload")
	}

	et := &models.EventType{
		UserID:          userID,
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		BufferMinutes:   req.BufferMinutes,
		Active:          true,
	}
	if err := s.repo.Create(ctx, et); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create event type")
	}
	return et, nil
}

// Update modifies one of the provider's event types.
func (s *EventTypeService) Update(ctx context.Context, userID, id string, req UpdateEventTypeRequest) (*models.EventType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event type payload")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event type")
	}
	if existing.UserID != userID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "event type not found")
	}

	existing.Name = req.Name
	existing.DurationMinutes = req.DurationMinutes
	existing.BufferMinutes = req.BufferMinutes
	existing.Active = req.Active

	if err := s.repo.Update(ctx, existing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event type")
	}
	return existing, nil
}
