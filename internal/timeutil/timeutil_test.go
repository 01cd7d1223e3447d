package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	m, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, m)

	m, err = ParseClock("00:00")
	require.NoError(t, err)
	assert.Equal(t, 0, m)

	_, err = ParseClock("25:00")
	assert.Error(t, err)
	_, err = ParseClock("9am")
	assert.Error(t, err)
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "09:05", FormatClock(545))
	assert.Equal(t, "00:00", FormatClock(0))
	assert.Equal(t, "23:45", FormatClock(1425))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-17")
	require.NoError(t, err)
	assert.Equal(t, time.Monday, d.Weekday())

	_, err = ParseDate("17-03-2025")
	assert.Error(t, err)
}

func TestAt(t *testing.T) {
	date := time.Date(2025, 3, 17, 13, 22, 11, 0, time.UTC)
	got := At(date, 570)
	assert.Equal(t, time.Date(2025, 3, 17, 9, 30, 0, 0, time.UTC), got)
}

func TestRebase(t *testing.T) {
	tokyo := time.FixedZone("UTC+9", 9*60*60)
	local := time.Date(2026, 3, 2, 8, 30, 0, 0, tokyo)

	got := Rebase(local, time.UTC)
	assert.Equal(t, time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC), got)

	// Same location comes back untouched.
	utc := time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC)
	assert.Equal(t, utc, Rebase(utc, time.UTC))
}

func TestStartOfMonth(t *testing.T) {
	d := time.Date(2025, 3, 17, 13, 22, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), StartOfMonth(d))
}

func TestOverlaps(t *testing.T) {
	// Touching boundaries do not conflict.
	assert.False(t, Overlaps(540, 600, 600, 660))
	assert.False(t, Overlaps(600, 660, 540, 600))

	assert.True(t, Overlaps(540, 601, 600, 660))
	assert.True(t, Overlaps(600, 660, 540, 601))
	assert.True(t, Overlaps(540, 660, 570, 600)) // containment
	assert.True(t, Overlaps(570, 600, 540, 660))
}
