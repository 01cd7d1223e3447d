package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/slotbook/slotbook-api/internal/models"
)

func newAvailabilityRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func weeklyRuleRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "day_of_week", "start_time", "end_time", "created_at"})
}

func TestAvailabilityRepositoryListWeeklyRulesForDay(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()

	repo := NewAvailabilityRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = $1 AND day_of_week = $2 ORDER BY start_time ASC, id ASC")).
		WithArgs("prov-1", 1).
		WillReturnRows(weeklyRuleRows().
			AddRow("rule-1", "prov-1", 1, "09:00", "12:00", time.Now()).
			AddRow("rule-2", "prov-1", 1, "13:00", "17:00", time.Now()))

	rules, err := repo.ListWeeklyRulesForDay(context.Background(), "prov-1", 1)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	require.Equal(t, "09:00", rules[0].StartTime)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryReplaceWeeklyRules(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()

	repo := NewAvailabilityRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM weekly_rules WHERE user_id = $1")).
		WithArgs("prov-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO weekly_rules")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO weekly_rules")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rules := []models.WeeklyRule{
		{DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00"},
		{DayOfWeek: 3, StartTime: "10:00", EndTime: "16:00"},
	}
	require.NoError(t, repo.ReplaceWeeklyRules(context.Background(), "prov-1", rules))
	require.NotEmpty(t, rules[0].ID, "ids are assigned on insert")
	require.Equal(t, "prov-1", rules[1].UserID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryReplaceWeeklyRulesRollsBack(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()

	repo := NewAvailabilityRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM weekly_rules WHERE user_id = $1")).
		WithArgs("prov-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO weekly_rules")).
		WillReturnError(sqlmock.ErrCancelled)
	mock.ExpectRollback()

	err := repo.ReplaceWeeklyRules(context.Background(), "prov-1", []models.WeeklyRule{
		{DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00"},
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryFindOverrideAbsence(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()

	repo := NewAvailabilityRepository(db)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM date_overrides WHERE user_id = $1 AND date = $2")).
		WithArgs("prov-1", date).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "date", "start_time", "end_time", "created_at", "updated_at"}))

	override, err := repo.FindOverride(context.Background(), "prov-1", date)
	require.NoError(t, err)
	require.Nil(t, override, "missing override is not an error")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryFindOverrideDayOff(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()

	repo := NewAvailabilityRepository(db)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM date_overrides WHERE user_id = $1 AND date = $2")).
		WithArgs("prov-1", date).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "date", "start_time", "end_time", "created_at", "updated_at"}).
			AddRow("prov-1", date, nil, nil, time.Now(), time.Now()))

	override, err := repo.FindOverride(context.Background(), "prov-1", date)
	require.NoError(t, err)
	require.NotNil(t, override)
	require.True(t, override.DayOff())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryUpsertOverride(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()

	repo := NewAvailabilityRepository(db)
	start := "10:00"
	end := "15:00"

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id, date) DO UPDATE")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	override := &models.DateOverride{
		UserID:    "prov-1",
		Date:      time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		StartTime: &start,
		EndTime:   &end,
	}
	require.NoError(t, repo.UpsertOverride(context.Background(), override))
	require.False(t, override.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAvailabilityRepositoryDeleteOverride(t *testing.T) {
	db, mock, cleanup := newAvailabilityRepoMock(t)
	defer cleanup()

	repo := NewAvailabilityRepository(db)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM date_overrides WHERE user_id = $1 AND date = $2")).
		WithArgs("prov-1", date).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.DeleteOverride(context.Background(), "prov-1", date))
	require.NoError(t, mock.ExpectationsWereMet())
}
