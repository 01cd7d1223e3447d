package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slotbook/slotbook-api/internal/models"
	"github.com/slotbook/slotbook-api/pkg/config"
	appErrors "github.com/slotbook/slotbook-api/pkg/errors"
)

// fakeBookingStore keeps appointments in memory and serializes transactions
// with a mutex, mirroring what the serializable isolation level guarantees:
// the rows a transaction reads cannot change before it commits. On a callback
// error the pre-transaction state is restored, like a rollback.
type fakeBookingStore struct {
	mu        sync.Mutex
	appts     []models.Appointment
	clock     func() time.Time
	afterFind func() // runs after FindByCancelToken releases the lock
}

func newFakeBookingStore() *fakeBookingStore {
	return &fakeBookingStore{clock: time.Now}
}

func (f *fakeBookingStore) WithSerializableTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	snapshot := make([]models.Appointment, len(f.appts))
	copy(snapshot, f.appts)
	if err := fn(nil); err != nil {
		f.appts = snapshot
		return err
	}
	return nil
}

func (f *fakeBookingStore) ListScheduledForDateTx(ctx context.Context, tx *sqlx.Tx, userID string, date time.Time) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range f.appts {
		if a.UserID == userID && a.Date.Equal(date) && a.Status == models.StatusScheduled {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeBookingStore) CountCreatedSinceTx(ctx context.Context, tx *sqlx.Tx, userID string, since time.Time) (int, error) {
	count := 0
	for _, a := range f.appts {
		if a.UserID == userID && !a.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeBookingStore) CreateTx(ctx context.Context, tx *sqlx.Tx, appt *models.Appointment) error {
	appt.ID = uuid.NewString()
	appt.CancelToken = uuid.NewString()
	appt.CreatedAt = f.clock()
	f.appts = append(f.appts, *appt)
	return nil
}

func (f *fakeBookingStore) findByToken(token string) (*models.Appointment, error) {
	for i := range f.appts {
		if f.appts[i].CancelToken == token {
			found := f.appts[i]
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeBookingStore) FindByCancelToken(ctx context.Context, token string) (*models.Appointment, error) {
	f.mu.Lock()
	appt, err := f.findByToken(token)
	f.mu.Unlock()
	if f.afterFind != nil {
		f.afterFind()
	}
	return appt, err
}

func (f *fakeBookingStore) FindByCancelTokenTx(ctx context.Context, tx *sqlx.Tx, token string) (*models.Appointment, error) {
	return f.findByToken(token)
}

func (f *fakeBookingStore) updateStatus(id string, status models.AppointmentStatus) error {
	for i := range f.appts {
		if f.appts[i].ID == id {
			f.appts[i].Status = status
			return nil
		}
	}
	return sql.ErrNoRows
}

func (f *fakeBookingStore) TransitionStatus(ctx context.Context, id string, from, to models.AppointmentStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.appts {
		if f.appts[i].ID == id && f.appts[i].Status == from {
			f.appts[i].Status = to
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeBookingStore) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id string, status models.AppointmentStatus) error {
	return f.updateStatus(id, status)
}

func (f *fakeBookingStore) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Appointment
	for _, a := range f.appts {
		if a.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		out = append(out, a)
	}
	return out, len(out), nil
}

func (f *fakeBookingStore) byID(id string) *models.Appointment {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.appts {
		if f.appts[i].ID == id {
			found := f.appts[i]
			return &found
		}
	}
	return nil
}

type fakeSettingsReader struct {
	settings *models.ProviderSettings
}

func (f *fakeSettingsReader) GetSettings(ctx context.Context, userID string) (*models.ProviderSettings, error) {
	return f.settings, nil
}

type fakeEventTypeReader struct {
	types map[string]*models.EventType
}

func (f *fakeEventTypeReader) FindByID(ctx context.Context, id string) (*models.EventType, error) {
	et, ok := f.types[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return et, nil
}

type bookingFixture struct {
	store    *fakeBookingStore
	settings *fakeSettingsReader
	types    *fakeEventTypeReader
	svc      *BookingService
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	store := newFakeBookingStore()
	settings := &fakeSettingsReader{}
	types := &fakeEventTypeReader{types: map[string]*models.EventType{}}
	plans := NewPlanRegistry(config.PlansConfig{FreeMonthlyLimit: 2, ProMonthlyLimit: 0})
	svc := NewBookingService(store, settings, types, plans, nil, nil, nil, nil)
	svc.now = func() time.Time { return monday.Add(7 * time.Hour) }
	store.clock = svc.now
	return &bookingFixture{store: store, settings: settings, types: types, svc: svc}
}

func bookingRequest() BookAppointmentRequest {
	return BookAppointmentRequest{
		ProviderID:      "prov-1",
		Date:            "2026-03-02",
		StartTime:       "10:00",
		DurationMinutes: 30,
		ClientName:      "Ada Lovelace",
		ClientEmail:     "ada@example.com",
	}
}

func errorCode(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return appErrors.FromError(err).Code
}

func TestTryBook_Succeeds(t *testing.T) {
	fx := newBookingFixture(t)

	appt, err := fx.svc.TryBook(context.Background(), bookingRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, appt.ID)
	assert.NotEmpty(t, appt.CancelToken)
	assert.Equal(t, "10:00", appt.StartTime)
	assert.Equal(t, "10:30", appt.EndTime)
	assert.Equal(t, models.StatusScheduled, appt.Status)
	assert.True(t, appt.Date.Equal(monday))

	stored := fx.store.byID(appt.ID)
	require.NotNil(t, stored)
	assert.Equal(t, models.StatusScheduled, stored.Status)
}

func TestTryBook_OverlappingWindowConflicts(t *testing.T) {
	fx := newBookingFixture(t)

	_, err := fx.svc.TryBook(context.Background(), bookingRequest())
	require.NoError(t, err)

	overlapping := bookingRequest()
	overlapping.StartTime = "10:15"
	_, err = fx.svc.TryBook(context.Background(), overlapping)
	assert.Equal(t, appErrors.ErrSlotConflict.Code, errorCode(t, err))
}

func TestTryBook_BufferedWindowsCannotAbut(t *testing.T) {
	fx := newBookingFixture(t)

	first := bookingRequest()
	first.BufferMinutes = 15
	_, err := fx.svc.TryBook(context.Background(), first)
	require.NoError(t, err)

	// The 10:00-10:30 appointment carries a 15-minute buffer, so 10:30 is
	// still inside its padding even with no buffer on the new request.
	adjacent := bookingRequest()
	adjacent.StartTime = "10:30"
	_, err = fx.svc.TryBook(context.Background(), adjacent)
	assert.Equal(t, appErrors.ErrSlotConflict.Code, errorCode(t, err))

	// 10:45 sits exactly on the padded edge, which is free.
	clear := bookingRequest()
	clear.StartTime = "10:45"
	_, err = fx.svc.TryBook(context.Background(), clear)
	assert.NoError(t, err)
}

func TestTryBook_ConcurrentAttemptsAdmitExactlyOne(t *testing.T) {
	fx := newBookingFixture(t)
	// Pro plan so quota never interferes.
	fx.settings.settings = &models.ProviderSettings{UserID: "prov-1", MinLeadTimeHours: 2, MaxFutureDays: 30, PlanID: PlanPro}

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := bookingRequest()
			req.StartTime = "10:15" // all overlap [10:00, 11:00)
			req.DurationMinutes = 45
			_, err := fx.svc.TryBook(context.Background(), req)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	booked, conflicts := 0, 0
	for err := range errs {
		if err == nil {
			booked++
			continue
		}
		assert.Equal(t, appErrors.ErrSlotConflict.Code, appErrors.FromError(err).Code)
		conflicts++
	}
	assert.Equal(t, 1, booked)
	assert.Equal(t, attempts-1, conflicts)
}

func TestTryBook_PlanQuotaCountsAllCreated(t *testing.T) {
	fx := newBookingFixture(t)

	first := bookingRequest()
	first.StartTime = "09:00"
	appt, err := fx.svc.TryBook(context.Background(), first)
	require.NoError(t, err)

	// Canceling does not refund the monthly quota.
	_, err = fx.svc.Cancel(context.Background(), appt.CancelToken)
	require.NoError(t, err)

	second := bookingRequest()
	second.StartTime = "11:00"
	_, err = fx.svc.TryBook(context.Background(), second)
	require.NoError(t, err)

	third := bookingRequest()
	third.StartTime = "13:00"
	_, err = fx.svc.TryBook(context.Background(), third)
	assert.Equal(t, appErrors.ErrPlanLimit.Code, errorCode(t, err))
}

func TestTryBook_ProPlanIsUnlimited(t *testing.T) {
	fx := newBookingFixture(t)
	fx.settings.settings = &models.ProviderSettings{UserID: "prov-1", MinLeadTimeHours: 2, MaxFutureDays: 30, PlanID: PlanPro}

	starts := []string{"09:00", "10:00", "11:00", "13:00"}
	for _, start := range starts {
		req := bookingRequest()
		req.StartTime = start
		_, err := fx.svc.TryBook(context.Background(), req)
		require.NoError(t, err, "booking at %s", start)
	}
}

func TestTryBook_ValidationFailures(t *testing.T) {
	fx := newBookingFixture(t)

	cases := map[string]func(r *BookAppointmentRequest){
		"missing client email": func(r *BookAppointmentRequest) { r.ClientEmail = "" },
		"malformed email":      func(r *BookAppointmentRequest) { r.ClientEmail = "not-an-email" },
		"missing client name":  func(r *BookAppointmentRequest) { r.ClientName = "" },
		"malformed date":       func(r *BookAppointmentRequest) { r.Date = "03/02/2026" },
		"malformed start time": func(r *BookAppointmentRequest) { r.StartTime = "10am" },
		"zero duration":        func(r *BookAppointmentRequest) { r.DurationMinutes = 0 },
		"runs past midnight": func(r *BookAppointmentRequest) {
			r.StartTime = "23:45"
			r.DurationMinutes = 30
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := bookingRequest()
			mutate(&req)
			_, err := fx.svc.TryBook(context.Background(), req)
			assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
		})
	}
}

func TestTryBook_EventTypeResolution(t *testing.T) {
	fx := newBookingFixture(t)
	fx.types.types["et-1"] = &models.EventType{
		ID: "et-1", UserID: "prov-1", Name: "Intro call",
		DurationMinutes: 60, BufferMinutes: 10, Active: true,
	}
	fx.types.types["et-foreign"] = &models.EventType{
		ID: "et-foreign", UserID: "prov-other", DurationMinutes: 30, Active: true,
	}
	fx.types.types["et-inactive"] = &models.EventType{
		ID: "et-inactive", UserID: "prov-1", DurationMinutes: 30, Active: false,
	}

	req := bookingRequest()
	req.EventTypeID = "et-1"
	req.DurationMinutes = 0
	appt, err := fx.svc.TryBook(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "11:00", appt.EndTime)
	assert.Equal(t, 10, appt.BufferMinutes)
	require.NotNil(t, appt.EventTypeID)
	assert.Equal(t, "et-1", *appt.EventTypeID)

	for _, id := range []string{"et-missing", "et-foreign", "et-inactive"} {
		req := bookingRequest()
		req.EventTypeID = id
		req.StartTime = "13:00"
		_, err := fx.svc.TryBook(context.Background(), req)
		assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err), "event type %s", id)
	}
}

func TestCancel(t *testing.T) {
	fx := newBookingFixture(t)
	appt, err := fx.svc.TryBook(context.Background(), bookingRequest())
	require.NoError(t, err)

	canceled, err := fx.svc.Cancel(context.Background(), appt.CancelToken)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCanceled, canceled.Status)
	assert.Equal(t, models.StatusCanceled, fx.store.byID(appt.ID).Status)

	// Canceling twice is a conflict, not idempotent success.
	_, err = fx.svc.Cancel(context.Background(), appt.CancelToken)
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))

	_, err = fx.svc.Cancel(context.Background(), "no-such-token")
	assert.Equal(t, appErrors.ErrNotFound.Code, errorCode(t, err))
}

func TestCancel_LosesRaceAgainstReschedule(t *testing.T) {
	fx := newBookingFixture(t)
	appt, err := fx.svc.TryBook(context.Background(), bookingRequest())
	require.NoError(t, err)

	// The appointment is rescheduled between Cancel's read and its status
	// update. The conditional transition must refuse rather than flip the
	// RESCHEDULED row to CANCELED.
	fx.store.afterFind = func() {
		fx.store.afterFind = nil
		_, err := fx.svc.Reschedule(context.Background(), appt.CancelToken, RescheduleRequest{
			Date:      "2026-03-02",
			StartTime: "11:00",
		})
		require.NoError(t, err)
	}

	_, err = fx.svc.Cancel(context.Background(), appt.CancelToken)
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
	assert.Equal(t, models.StatusRescheduled, fx.store.byID(appt.ID).Status)
}

func TestCancel_FreesTheWindow(t *testing.T) {
	fx := newBookingFixture(t)
	appt, err := fx.svc.TryBook(context.Background(), bookingRequest())
	require.NoError(t, err)

	_, err = fx.svc.Cancel(context.Background(), appt.CancelToken)
	require.NoError(t, err)

	rebooked, err := fx.svc.TryBook(context.Background(), bookingRequest())
	require.NoError(t, err)
	assert.NotEqual(t, appt.ID, rebooked.ID)
}

func TestReschedule_MovesAppointment(t *testing.T) {
	fx := newBookingFixture(t)
	req := bookingRequest()
	req.BufferMinutes = 15
	appt, err := fx.svc.TryBook(context.Background(), req)
	require.NoError(t, err)

	moved, err := fx.svc.Reschedule(context.Background(), appt.CancelToken, RescheduleRequest{
		Date:      "2026-03-03",
		StartTime: "14:00",
	})
	require.NoError(t, err)

	assert.Equal(t, "14:00", moved.StartTime)
	assert.Equal(t, "14:30", moved.EndTime, "duration carries over")
	assert.Equal(t, 15, moved.BufferMinutes, "buffer carries over")
	assert.Equal(t, appt.ClientEmail, moved.ClientEmail)
	assert.NotEqual(t, appt.ID, moved.ID)
	assert.NotEqual(t, appt.CancelToken, moved.CancelToken)
	assert.Equal(t, models.StatusRescheduled, fx.store.byID(appt.ID).Status)
}

func TestReschedule_OwnWindowDoesNotBlock(t *testing.T) {
	fx := newBookingFixture(t)
	appt, err := fx.svc.TryBook(context.Background(), bookingRequest())
	require.NoError(t, err)

	// Shifting 15 minutes overlaps the original window; the old row is
	// released inside the same transaction so this must succeed.
	moved, err := fx.svc.Reschedule(context.Background(), appt.CancelToken, RescheduleRequest{
		Date:      "2026-03-02",
		StartTime: "10:15",
	})
	require.NoError(t, err)
	assert.Equal(t, "10:15", moved.StartTime)
}

func TestReschedule_ConflictRestoresOriginal(t *testing.T) {
	fx := newBookingFixture(t)
	fx.settings.settings = &models.ProviderSettings{UserID: "prov-1", PlanID: PlanPro}

	blocker := bookingRequest()
	blocker.StartTime = "14:00"
	_, err := fx.svc.TryBook(context.Background(), blocker)
	require.NoError(t, err)

	appt, err := fx.svc.TryBook(context.Background(), bookingRequest())
	require.NoError(t, err)

	_, err = fx.svc.Reschedule(context.Background(), appt.CancelToken, RescheduleRequest{
		Date:      "2026-03-02",
		StartTime: "14:15",
	})
	assert.Equal(t, appErrors.ErrSlotConflict.Code, errorCode(t, err))

	// The transaction rolled back: the original stays scheduled.
	assert.Equal(t, models.StatusScheduled, fx.store.byID(appt.ID).Status)
}

func TestReschedule_TerminalAppointment(t *testing.T) {
	fx := newBookingFixture(t)
	appt, err := fx.svc.TryBook(context.Background(), bookingRequest())
	require.NoError(t, err)
	_, err = fx.svc.Cancel(context.Background(), appt.CancelToken)
	require.NoError(t, err)

	_, err = fx.svc.Reschedule(context.Background(), appt.CancelToken, RescheduleRequest{
		Date:      "2026-03-03",
		StartTime: "09:00",
	})
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
}

func TestList(t *testing.T) {
	fx := newBookingFixture(t)
	_, err := fx.svc.TryBook(context.Background(), bookingRequest())
	require.NoError(t, err)

	appts, pagination, err := fx.svc.List(context.Background(), models.AppointmentFilter{UserID: "prov-1"})
	require.NoError(t, err)
	assert.Len(t, appts, 1)
	require.NotNil(t, pagination)
	assert.Equal(t, 1, pagination.Page)
	assert.Equal(t, 20, pagination.PageSize)
	assert.Equal(t, 1, pagination.TotalCount)

	_, _, err = fx.svc.List(context.Background(), models.AppointmentFilter{UserID: "prov-1", Status: "BOGUS"})
	assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
}
