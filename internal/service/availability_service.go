package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/slotbook/slotbook-api/internal/models"
	"github.com/slotbook/slotbook-api/internal/timeutil"
	appErrors "github.com/slotbook/slotbook-api/pkg/errors"
)

type availabilityRepository interface {
	ListWeeklyRules(ctx context.Context, userID string) ([]models.WeeklyRule, error)
	ListWeeklyRulesForDay(ctx context.Context, userID string, dayOfWeek int) ([]models.WeeklyRule, error)
	ReplaceWeeklyRules(ctx context.Context, userID string, rules []models.WeeklyRule) error
	FindOverride(ctx context.Context, userID string, date time.Time) (*models.DateOverride, error)
	UpsertOverride(ctx context.Context, override *models.DateOverride) error
	DeleteOverride(ctx context.Context, userID string, date time.Time) error
}

type providerRepository interface {
	GetSettings(ctx context.Context, userID string) (*models.ProviderSettings, error)
	UpsertSettings(ctx context.Context, settings *models.ProviderSettings) error
}

type eventTypeReader interface {
	FindByID(ctx context.Context, id string) (*models.EventType, error)
}

type scheduledReader interface {
	ListScheduledForDate(ctx context.Context, userID string, date time.Time) ([]models.Appointment, error)
}

// SlotQuery describes one availability request.
type SlotQuery struct {
	ProviderID      string `validate:"required"`
	Date            string `validate:"required"`
	EventTypeID     string
	DurationMinutes int `validate:"gte=0"`
	BufferMinutes   int `validate:"gte=0"`
}

// WeeklyRuleInput is one block in a replace-all weekly rules request.
type WeeklyRuleInput struct {
	DayOfWeek int    `json:"day_of_week" validate:"gte=0,lte=6"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time" validate:"required"`
}

// ReplaceWeeklyRulesRequest replaces a provider's full weekly rule set.
type ReplaceWeeklyRulesRequest struct {
	Rules []WeeklyRuleInput `json:"rules" validate:"dive"`
}

// SetOverrideRequest creates or replaces a per-date override. Omitting both
// times marks the day off.
type SetOverrideRequest struct {
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
}

// UpdateSettingsRequest changes a provider's booking policy.
type UpdateSettingsRequest struct {
	MinLeadTimeHours int    `json:"min_lead_time_hours" validate:"gte=0"`
	MaxFutureDays    int    `json:"max_future_days" validate:"gte=0"`
	PlanID           string `json:"plan_id"`
}

// AvailabilityService orchestrates slot computation and availability
// management. Slot computation itself is the pure ResolveSlots function; this
// service only gathers its inputs and caches the result.
type AvailabilityService struct {
	availability availabilityRepository
	providers    providerRepository
	eventTypes   eventTypeReader
	appointments scheduledReader
	cache        *CacheService
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
	now          func() time.Time
}

// NewAvailabilityService instantiates AvailabilityService.
func NewAvailabilityService(availability availabilityRepository, providers providerRepository, eventTypes eventTypeReader, appointments scheduledReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		availability: availability,
		providers:    providers,
		eventTypes:   eventTypes,
		appointments: appointments,
		cache:        cache,
		metrics:      metrics,
		validator:    validate,
		logger:       logger,
		now:          time.Now,
	}
}

// GetSlots returns the bookable slots for one provider and day. The list is
// advisory: the booking path re-validates inside its transaction.
func (s *AvailabilityService) GetSlots(ctx context.Context, query SlotQuery) ([]models.Slot, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability query")
	}

	date, err := timeutil.ParseDate(query.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date, expected YYYY-MM-DD")
	}

	duration, buffer, err := s.resolveDurations(ctx, query.ProviderID, query.EventTypeID, query.DurationMinutes, query.BufferMinutes)
	if err != nil {
		return nil, err
	}

	cacheKey := SlotCacheKey(query.ProviderID, query.Date, duration, buffer)
	var cached []models.Slot
	if s.cache.Get(ctx, cacheKey, &cached) {
		return cached, nil
	}

	settings, err := s.providers.GetSettings(ctx, query.ProviderID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load provider settings")
	}

	override, err := s.availability.FindOverride(ctx, query.ProviderID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load override")
	}

	var rules []models.WeeklyRule
	if override == nil {
		rules, err = s.availability.ListWeeklyRulesForDay(ctx, query.ProviderID, int(date.Weekday()))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load weekly rules")
		}
	}

	appts, err := s.appointments.ListScheduledForDate(ctx, query.ProviderID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointments")
	}

	slots, err := ResolveSlots(ResolveSlotsInput{
		Settings:        settings,
		WeeklyRules:     rules,
		Override:        override,
		Appointments:    appts,
		Date:            date,
		DurationMinutes: duration,
		BufferMinutes:   buffer,
		Now:             s.now(),
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute slots")
	}
	if slots == nil {
		slots = []models.Slot{}
	}

	s.metrics.RecordSlotsReturned(len(slots))
	s.cache.Set(ctx, cacheKey, slots)
	return slots, nil
}

func (s *AvailabilityService) resolveDurations(ctx context.Context, providerID, eventTypeID string, duration, buffer int) (int, int, error) {
	if eventTypeID != "" {
		et, err := s.eventTypes.FindByID(ctx, eventTypeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return 0, 0, appErrors.Clone(appErrors.ErrNotFound, "event type not found")
			}
			return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event type")
		}
		if et.UserID != providerID || !et.Active {
			return 0, 0, appErrors.Clone(appErrors.ErrNotFound, "event type not found")
		}
		return et.DurationMinutes, et.BufferMinutes, nil
	}
	if duration <= 0 {
		return 0, 0, appErrors.Clone(appErrors.ErrValidation, "duration must be positive")
	}
	return duration, buffer, nil
}

// GetWeeklyRules returns the provider's full recurring rule set.
func (s *AvailabilityService) GetWeeklyRules(ctx context.Context, userID string) ([]models.WeeklyRule, error) {
	rules, err := s.availability.ListWeeklyRules(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list weekly rules")
	}
	return rules, nil
}

// ReplaceWeeklyRules swaps the provider's recurring availability wholesale.
func (s *AvailabilityService) ReplaceWeeklyRules(ctx context.Context, userID string, req ReplaceWeeklyRulesRequest) ([]models.WeeklyRule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid weekly rules payload")
	}

	rules := make([]models.WeeklyRule, 0, len(req.Rules))
	for _, item := range req.Rules {
		if _, err := timeutil.ParseClock(item.StartTime); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time, expected HH:MM")
		}
		if _, err := timeutil.ParseClock(item.EndTime); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end time, expected HH:MM")
		}
		rules = append(rules, models.WeeklyRule{
			UserID:    userID,
			DayOfWeek: item.DayOfWeek,
			StartTime: item.StartTime,
			EndTime:   item.EndTime,
		})
	}

	if err := s.availability.ReplaceWeeklyRules(ctx, userID, rules); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace weekly rules")
	}

	s.cache.InvalidateProvider(ctx, userID)
	return rules, nil
}

// SetOverride creates or replaces the override for one date.
func (s *AvailabilityService) SetOverride(ctx context.Context, userID, dateStr string, req SetOverrideRequest) (*models.DateOverride, error) {
	date, err := timeutil.ParseDate(dateStr)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date, expected YYYY-MM-DD")
	}

	if (req.StartTime == nil) != (req.EndTime == nil) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start_time and end_time must be provided together")
	}
	if req.StartTime != nil {
		if _, err := timeutil.ParseClock(*req.StartTime); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time, expected HH:MM")
		}
		if _, err := timeutil.ParseClock(*req.EndTime); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end time, expected HH:MM")
		}
	}

	override := &models.DateOverride{
		UserID:    userID,
		Date:      date,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	}
	if err := s.availability.UpsertOverride(ctx, override); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save override")
	}

	s.cache.InvalidateProvider(ctx, userID)
	return override, nil
}

// GetOverride returns the override for one date, or NOT_FOUND when the date
// falls back to weekly rules.
func (s *AvailabilityService) GetOverride(ctx context.Context, userID, dateStr string) (*models.DateOverride, error) {
	date, err := timeutil.ParseDate(dateStr)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date, expected YYYY-MM-DD")
	}
	override, err := s.availability.FindOverride(ctx, userID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load override")
	}
	if override == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no override for this date")
	}
	return override, nil
}

// DeleteOverride removes the override for one date, restoring weekly rules.
func (s *AvailabilityService) DeleteOverride(ctx context.Context, userID, dateStr string) error {
	date, err := timeutil.ParseDate(dateStr)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date, expected YYYY-MM-DD")
	}
	if err := s.availability.DeleteOverride(ctx, userID, date); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete override")
	}
	s.cache.InvalidateProvider(ctx, userID)
	return nil
}

// GetSettings returns the provider's policy, applying defaults when no row
// exists yet.
func (s *AvailabilityService) GetSettings(ctx context.Context, userID string) (*models.ProviderSettings, error) {
	settings, err := s.providers.GetSettings(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	if settings == nil {
		settings = &models.ProviderSettings{
			UserID:           userID,
			MinLeadTimeHours: models.DefaultMinLeadTimeHours,
			MaxFutureDays:    models.DefaultMaxFutureDays,
			PlanID:           PlanFree,
		}
	}
	return settings, nil
}

// UpdateSettings changes the provider's booking policy.
func (s *AvailabilityService) UpdateSettings(ctx context.Context, userID string, req UpdateSettingsRequest) (*models.ProviderSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}

	settings := &models.ProviderSettings{
		UserID:           userID,
		MinLeadTimeHours: req.MinLeadTimeHours,
		MaxFutureDays:    req.MaxFutureDays,
		PlanID:           req.PlanID,
	}
	if settings.PlanID == "" {
		settings.PlanID = PlanFree
	}
	if err := s.providers.UpsertSettings(ctx, settings); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save settings")
	}

	s.cache.InvalidateProvider(ctx, userID)
	return settings, nil
}
