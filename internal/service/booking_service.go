package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/slotbook/slotbook-api/internal/models"
	"github.com/slotbook/slotbook-api/internal/timeutil"
	appErrors "github.com/slotbook/slotbook-api/pkg/errors"
)

const minutesPerDay = 24 * 60

type bookingStore interface {
	WithSerializableTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
	ListScheduledForDateTx(ctx context.Context, tx *sqlx.Tx, userID string, date time.Time) ([]models.Appointment, error)
	CountCreatedSinceTx(ctx context.Context, tx *sqlx.Tx, userID string, since time.Time) (int, error)
	CreateTx(ctx context.Context, tx *sqlx.Tx, appt *models.Appointment) error
	FindByCancelToken(ctx context.Context, token string) (*models.Appointment, error)
	FindByCancelTokenTx(ctx context.Context, tx *sqlx.Tx, token string) (*models.Appointment, error)
	TransitionStatus(ctx context.Context, id string, from, to models.AppointmentStatus) (bool, error)
	UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id string, status models.AppointmentStatus) error
	List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error)
}

type settingsReader interface {
	GetSettings(ctx context.Context, userID string) (*models.ProviderSettings, error)
}

type planResolver interface {
	Lookup(planID string) models.Plan
}

// BookAppointmentRequest describes one booking attempt. Either EventTypeID or
// an explicit duration must be supplied.
type BookAppointmentRequest struct {
	ProviderID      string `json:"-" validate:"required"`
	EventTypeID     string `json:"event_type_id"`
	Date            string `json:"date" validate:"required"`
	StartTime       string `json:"start_time" validate:"required"`
	DurationMinutes int    `json:"duration_minutes" validate:"gte=0"`
	BufferMinutes   int    `json:"buffer_minutes" validate:"gte=0"`
	ClientName      string `json:"client_name" validate:"required"`
	ClientEmail     string `json:"client_email" validate:"required,email"`
}

// RescheduleRequest moves an appointment to a new date and start time.
type RescheduleRequest struct {
	Date      string `json:"date" validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
}

// BookingService is the concurrency-safe booking write path. The advisory
// slot list seen by the client may be stale by submit time, so every decision
// here is made against rows re-read inside one serializable transaction: two
// concurrent attempts on overlapping windows for the same provider and date
// cannot both commit.
type BookingService struct {
	store      bookingStore
	providers  settingsReader
	eventTypes eventTypeReader
	plans      planResolver
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
}

// NewBookingService instantiates BookingService.
func NewBookingService(store bookingStore, providers settingsReader, eventTypes eventTypeReader, plans planResolver, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		store:      store,
		providers:  providers,
		eventTypes: eventTypes,
		plans:      plans,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		now:        time.Now,
	}
}

// TryBook validates the requested window against current state and commits
// the appointment, or reports why it cannot.
func (s *BookingService) TryBook(ctx context.Context, req BookAppointmentRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordBooking(BookingOutcomeValidation)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	date, err := timeutil.ParseDate(req.Date)
	if err != nil {
		s.metrics.RecordBooking(BookingOutcomeValidation)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date, expected YYYY-MM-DD")
	}
	startMin, err := timeutil.ParseClock(req.StartTime)
	if err != nil {
		s.metrics.RecordBooking(BookingOutcomeValidation)
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time, expected HH:MM")
	}

	duration := req.DurationMinutes
	buffer := req.BufferMinutes
	var eventTypeID *string
	if req.EventTypeID != "" {
		et, err := s.eventTypes.FindByID(ctx, req.EventTypeID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "event type not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event type")
		}
		if et.UserID != req.ProviderID || !et.Active {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "event type not found")
		}
		duration = et.DurationMinutes
		buffer = et.BufferMinutes
		eventTypeID = &et.ID
	}

	endMin := startMin + duration
	if endMin <= startMin || endMin > minutesPerDay {
		s.metrics.RecordBooking(BookingOutcomeValidation)
		return nil, appErrors.Clone(appErrors.ErrValidation, "appointment must start before it ends, within the day")
	}

	settings, err := s.providers.GetSettings(ctx, req.ProviderID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load provider settings")
	}
	planID := PlanFree
	if settings != nil {
		planID = settings.PlanID
	}
	plan := s.plans.Lookup(planID)

	appt := &models.Appointment{
		UserID:        req.ProviderID,
		EventTypeID:   eventTypeID,
		Date:          timeutil.StartOfDay(date),
		StartTime:     timeutil.FormatClock(startMin),
		EndTime:       timeutil.FormatClock(endMin),
		BufferMinutes: buffer,
		Status:        models.StatusScheduled,
		ClientName:    req.ClientName,
		ClientEmail:   req.ClientEmail,
	}

	err = s.store.WithSerializableTx(ctx, func(tx *sqlx.Tx) error {
		if plan.MaxAppointmentsPerMonth > 0 {
			count, err := s.store.CountCreatedSinceTx(ctx, tx, req.ProviderID, timeutil.StartOfMonth(s.now()))
			if err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check plan quota")
			}
			if count >= plan.MaxAppointmentsPerMonth {
				return appErrors.ErrPlanLimit
			}
		}

		existing, err := s.store.ListScheduledForDateTx(ctx, tx, req.ProviderID, appt.Date)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to re-check appointments")
		}
		if err := ensureWindowFree(startMin, endMin, buffer, existing); err != nil {
			return err
		}

		if err := s.store.CreateTx(ctx, tx, appt); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create appointment")
		}
		return nil
	})
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	s.metrics.RecordBooking(BookingOutcomeBooked)
	s.cache.InvalidateProvider(ctx, req.ProviderID)
	s.logger.Info("appointment booked",
		zap.String("appointment_id", appt.ID),
		zap.String("provider_id", appt.UserID),
		zap.String("date", timeutil.FormatDate(appt.Date)),
		zap.String("start", appt.StartTime),
	)
	return appt, nil
}

// Cancel transitions a SCHEDULED appointment to CANCELED via its token.
func (s *BookingService) Cancel(ctx context.Context, token string) (*models.Appointment, error) {
	appt, err := s.store.FindByCancelToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
	}
	if appt.Status != models.StatusScheduled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "appointment is no longer scheduled")
	}

	// Conditional on the status we just read: a concurrent reschedule that
	// wins the race leaves zero rows affected instead of a CANCELED copy.
	ok, err := s.store.TransitionStatus(ctx, appt.ID, models.StatusScheduled, models.StatusCanceled)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel appointment")
	}
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrConflict, "appointment is no longer scheduled")
	}
	appt.Status = models.StatusCanceled

	s.metrics.RecordBooking(BookingOutcomeCanceled)
	s.cache.InvalidateProvider(ctx, appt.UserID)
	return appt, nil
}

// Reschedule moves an appointment to a new window. The old row becomes
// RESCHEDULED and the replacement is validated like any fresh booking, in the
// same transaction, so the vacated window is already free for the new one.
func (s *BookingService) Reschedule(ctx context.Context, token string, req RescheduleRequest) (*models.Appointment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid reschedule payload")
	}
	date, err := timeutil.ParseDate(req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid date, expected YYYY-MM-DD")
	}
	startMin, err := timeutil.ParseClock(req.StartTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time, expected HH:MM")
	}

	var created *models.Appointment
	var oldUserID string
	err = s.store.WithSerializableTx(ctx, func(tx *sqlx.Tx) error {
		old, err := s.store.FindByCancelTokenTx(ctx, tx, token)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return appErrors.Clone(appErrors.ErrNotFound, "appointment not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load appointment")
		}
		if old.Status != models.StatusScheduled {
			return appErrors.Clone(appErrors.ErrConflict, "appointment is no longer scheduled")
		}
		oldUserID = old.UserID

		oldStart, err := timeutil.ParseClock(old.StartTime)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored appointment has malformed times")
		}
		oldEnd, err := timeutil.ParseClock(old.EndTime)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored appointment has malformed times")
		}

		duration := oldEnd - oldStart
		endMin := startMin + duration
		if endMin > minutesPerDay {
			return appErrors.Clone(appErrors.ErrValidation, "appointment must end within the day")
		}

		if err := s.store.UpdateStatusTx(ctx, tx, old.ID, models.StatusRescheduled); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to release old appointment")
		}

		day := timeutil.StartOfDay(date)
		existing, err := s.store.ListScheduledForDateTx(ctx, tx, old.UserID, day)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to re-check appointments")
		}
		if err := ensureWindowFree(startMin, endMin, old.BufferMinutes, existing); err != nil {
			return err
		}

		replacement := &models.Appointment{
			UserID:        old.UserID,
			EventTypeID:   old.EventTypeID,
			Date:          day,
			StartTime:     timeutil.FormatClock(startMin),
			EndTime:       timeutil.FormatClock(endMin),
			BufferMinutes: old.BufferMinutes,
			Status:        models.StatusScheduled,
			ClientName:    old.ClientName,
			ClientEmail:   old.ClientEmail,
		}
		if err := s.store.CreateTx(ctx, tx, replacement); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create replacement appointment")
		}
		created = replacement
		return nil
	})
	if err != nil {
		s.recordFailure(err)
		return nil, err
	}

	s.metrics.RecordBooking(BookingOutcomeRescheduled)
	s.cache.InvalidateProvider(ctx, oldUserID)
	return created, nil
}

// List returns a provider's appointments with pagination metadata.
func (s *BookingService) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, *models.Pagination, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown appointment status")
	}
	appts, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list appointments")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return appts, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ensureWindowFree applies the buffered overlap test between the requested
// window and every scheduled appointment. Padding is the requested buffer
// plus the existing appointment's own buffer, on both sides.
func ensureWindowFree(startMin, endMin, requestedBuffer int, existing []models.Appointment) error {
	for _, a := range existing {
		s, err := timeutil.ParseClock(a.StartTime)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored appointment has malformed times")
		}
		e, err := timeutil.ParseClock(a.EndTime)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored appointment has malformed times")
		}
		pad := requestedBuffer + a.BufferMinutes
		if timeutil.Overlaps(startMin, endMin, s-pad, e+pad) {
			return appErrors.ErrSlotConflict
		}
	}
	return nil
}

func (s *BookingService) recordFailure(err error) {
	appErr := appErrors.FromError(err)
	switch appErr.Code {
	case appErrors.ErrSlotConflict.Code:
		s.metrics.RecordBooking(BookingOutcomeConflict)
	case appErrors.ErrPlanLimit.Code:
		s.metrics.RecordBooking(BookingOutcomeLimit)
	case appErrors.ErrValidation.Code:
		s.metrics.RecordBooking(BookingOutcomeValidation)
	default:
		s.metrics.RecordBooking(BookingOutcomeError)
	}
}
