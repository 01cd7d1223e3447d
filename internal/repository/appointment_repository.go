package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/slotbook/slotbook-api/internal/models"
	appErrors "github.com/slotbook/slotbook-api/pkg/errors"
)

const appointmentColumns = "id, user_id, event_type_id, date, start_time, end_time, buffer_minutes, status, client_name, client_email, cancel_token, created_at, updated_at"

// AppointmentRepository provides persistence for appointments. The booking
// write path runs through WithSerializableTx plus the Tx-scoped methods so
// the read-then-insert sequence is atomic per provider and date.
type AppointmentRepository struct {
	db *sqlx.DB
}

// NewAppointmentRepository creates a new appointment repository.
func NewAppointmentRepository(db *sqlx.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// WithSerializableTx runs fn inside a SERIALIZABLE transaction, rolling back
// on any error and committing otherwise. An aborted transaction leaves no
// partial appointment row.
//
// FOR UPDATE only locks rows that already exist, so two bookings racing on an
// empty window are caught by the serializable check instead, usually at
// commit. That abort means another writer won the window, and callers see it
// as the same conflict as an explicit overlap.
func (r *AppointmentRepository) WithSerializableTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin booking tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(tx); err != nil {
		if isSerializationFailure(err) {
			err = appErrors.ErrSlotConflict
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		if isSerializationFailure(err) {
			err = appErrors.ErrSlotConflict
			return err
		}
		return fmt.Errorf("commit booking tx: %w", err)
	}
	return nil
}

// isSerializationFailure recognizes the Postgres errors raised when a
// concurrent transaction invalidated ours: serialization_failure,
// deadlock_detected and lock_not_available.
func isSerializationFailure(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "40001", "40P01", "55P03":
		return true
	}
	return false
}

// ListScheduledForDate returns SCHEDULED appointments blocking availability
// on a date, ordered by start time.
func (r *AppointmentRepository) ListScheduledForDate(ctx context.Context, userID string, date time.Time) ([]models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE user_id = $1 AND date = $2 AND status = $3 ORDER BY start_time ASC`, appointmentColumns)
	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, userID, date, models.StatusScheduled); err != nil {
		return nil, fmt.Errorf("list scheduled appointments: %w", err)
	}
	return appts, nil
}

// ListScheduledForDateTx is the in-transaction variant of
// ListScheduledForDate. FOR UPDATE locks the rows so a concurrent booking for
// the same provider and date serializes behind this transaction.
func (r *AppointmentRepository) ListScheduledForDateTx(ctx context.Context, tx *sqlx.Tx, userID string, date time.Time) ([]models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE user_id = $1 AND date = $2 AND status = $3 ORDER BY start_time ASC FOR UPDATE`, appointmentColumns)
	var appts []models.Appointment
	if err := tx.SelectContext(ctx, &appts, query, userID, date, models.StatusScheduled); err != nil {
		return nil, fmt.Errorf("list scheduled appointments for update: %w", err)
	}
	return appts, nil
}

// CountCreatedSinceTx counts a provider's appointments created at or after
// the given instant, regardless of current status.
func (r *AppointmentRepository) CountCreatedSinceTx(ctx context.Context, tx *sqlx.Tx, userID string, since time.Time) (int, error) {
	var count int
	if err := tx.GetContext(ctx, &count, `SELECT COUNT(*) FROM appointments WHERE user_id = $1 AND created_at >= $2`, userID, since); err != nil {
		return 0, fmt.Errorf("count appointments since: %w", err)
	}
	return count, nil
}

// CreateTx inserts a new appointment within the booking transaction.
func (r *AppointmentRepository) CreateTx(ctx context.Context, tx *sqlx.Tx, appt *models.Appointment) error {
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	if appt.CancelToken == "" {
		appt.CancelToken = uuid.NewString()
	}
	now := time.Now().UTC()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	appt.UpdatedAt = now

	const query = `INSERT INTO appointments (id, user_id, event_type_id, date, start_time, end_time, buffer_minutes, status, client_name, client_email, cancel_token, created_at, updated_at)
		VALUES (:id, :user_id, :event_type_id, :date, :start_time, :end_time, :buffer_minutes, :status, :client_name, :client_email, :cancel_token, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, tx, query, appt); err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}
	return nil
}

// FindByCancelToken loads an appointment by its cancel token.
func (r *AppointmentRepository) FindByCancelToken(ctx context.Context, token string) (*models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE cancel_token = $1`, appointmentColumns)
	var appt models.Appointment
	if err := r.db.GetContext(ctx, &appt, query, token); err != nil {
		return nil, err
	}
	return &appt, nil
}

// FindByCancelTokenTx loads and locks an appointment by cancel token inside a
// transaction.
func (r *AppointmentRepository) FindByCancelTokenTx(ctx context.Context, tx *sqlx.Tx, token string) (*models.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE cancel_token = $1 FOR UPDATE`, appointmentColumns)
	var appt models.Appointment
	if err := tx.GetContext(ctx, &appt, query, token); err != nil {
		return nil, err
	}
	return &appt, nil
}

// TransitionStatus moves an appointment from one status to another in a
// single conditional update. It reports false when the row was no longer in
// the expected status, so concurrent transitions cannot stack on top of each
// other.
func (r *AppointmentRepository) TransitionStatus(ctx context.Context, id string, from, to models.AppointmentStatus) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE appointments SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`, to, time.Now().UTC(), id, from)
	if err != nil {
		return false, fmt.Errorf("transition appointment status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition appointment status: %w", err)
	}
	return affected > 0, nil
}

// UpdateStatusTx updates an appointment's status inside a transaction whose
// caller already holds the row lock.
func (r *AppointmentRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id string, status models.AppointmentStatus) error {
	if _, err := tx.ExecContext(ctx, `UPDATE appointments SET status = $1, updated_at = $2 WHERE id = $3`, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	return nil
}

// List returns a provider's appointments with optional filtering and
// pagination. History is retained, so CANCELED and RESCHEDULED rows appear
// unless filtered out.
func (r *AppointmentRepository) List(ctx context.Context, filter models.AppointmentFilter) ([]models.Appointment, int, error) {
	base := "FROM appointments WHERE user_id = $1"
	args := []interface{}{filter.UserID}

	var conditions []string
	if !filter.From.IsZero() {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, filter.From)
	}
	if !filter.To.IsZero() {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, filter.To)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY date ASC, start_time ASC LIMIT %d OFFSET %d", appointmentColumns, base, size, offset)
	var appts []models.Appointment
	if err := r.db.SelectContext(ctx, &appts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	return appts, total, nil
}
