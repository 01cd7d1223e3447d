package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/slotbook/slotbook-api/internal/models"
	"github.com/slotbook/slotbook-api/internal/timeutil"
)

// SlotStepMinutes is the fixed granularity of candidate slot start times.
const SlotStepMinutes = 15

// ResolveSlotsInput bundles everything the resolver needs. The resolver is a
// pure function of this input: no I/O, no clock reads, identical output for
// identical input.
type ResolveSlotsInput struct {
	// Settings may be nil; policy defaults then apply.
	Settings *models.ProviderSettings
	// WeeklyRules are the provider's recurring blocks matching Date's weekday.
	WeeklyRules []models.WeeklyRule
	// Override, when present, replaces the weekly rules for Date entirely.
	Override *models.DateOverride
	// Appointments are the provider's SCHEDULED appointments on Date.
	Appointments []models.Appointment
	// Date is the requested calendar day.
	Date time.Time
	// DurationMinutes is the requested service length.
	DurationMinutes int
	// BufferMinutes is the requested service's padding, combined additively
	// with each existing appointment's own buffer.
	BufferMinutes int
	// Now is the caller's wall clock, used for lead-time and horizon checks.
	Now time.Time
}

type blockedWindow struct {
	start int
	end   int
}

// ResolveSlots computes the bookable slots for one day, ascending by start
// time. Valid-but-unbookable days (past the horizon, day off, fully booked)
// yield an empty list, not an error; errors are reserved for malformed time
// strings and non-positive durations.
func ResolveSlots(in ResolveSlotsInput) ([]models.Slot, error) {
	if in.DurationMinutes <= 0 {
		return nil, fmt.Errorf("duration must be positive, got %d", in.DurationMinutes)
	}

	leadHours := models.DefaultMinLeadTimeHours
	horizonDays := models.DefaultMaxFutureDays
	if in.Settings != nil {
		leadHours = in.Settings.MinLeadTimeHours
		horizonDays = in.Settings.MaxFutureDays
	}

	// Dates arrive parsed at midnight in one zone while Now carries the
	// server's zone. All comparisons happen on the provider's wall clock, so
	// rebase Now's reading into the date's zone before deriving anything.
	day := timeutil.StartOfDay(in.Date)
	now := timeutil.Rebase(in.Now, day.Location())

	horizon := timeutil.StartOfDay(now).AddDate(0, 0, horizonDays)
	if day.After(horizon) {
		return nil, nil
	}

	blocks, err := baseBlocks(in)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, nil
	}

	blocked, err := blockedWindows(in.Appointments, in.BufferMinutes)
	if err != nil {
		return nil, err
	}

	leadCutoff := now.Add(time.Duration(leadHours) * time.Hour)

	var slots []models.Slot
	for _, block := range blocks {
		for t := block.start; t+in.DurationMinutes <= block.end; t += SlotStepMinutes {
			end := t + in.DurationMinutes
			if timeutil.At(day, t).Before(leadCutoff) {
				continue
			}
			if conflictsAny(t, end, blocked) {
				continue
			}
			slots = append(slots, models.Slot{
				Start: timeutil.FormatClock(t),
				End:   timeutil.FormatClock(end),
			})
		}
	}

	// Blocks are walked in their given order; a later block may start before
	// an earlier one. Order the result by start time, keeping duplicates from
	// overlapping blocks.
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Start < slots[j].Start })
	return slots, nil
}

type baseBlock struct {
	start int
	end   int
}

func baseBlocks(in ResolveSlotsInput) ([]baseBlock, error) {
	if in.Override != nil {
		if in.Override.DayOff() {
			return nil, nil
		}
		start, err := timeutil.ParseClock(*in.Override.StartTime)
		if err != nil {
			return nil, fmt.Errorf("override start: %w", err)
		}
		if in.Override.EndTime == nil {
			return nil, fmt.Errorf("override for %s has start but no end", timeutil.FormatDate(in.Override.Date))
		}
		end, err := timeutil.ParseClock(*in.Override.EndTime)
		if err != nil {
			return nil, fmt.Errorf("override end: %w", err)
		}
		return []baseBlock{{start: start, end: end}}, nil
	}

	blocks := make([]baseBlock, 0, len(in.WeeklyRules))
	for _, rule := range in.WeeklyRules {
		start, err := timeutil.ParseClock(rule.StartTime)
		if err != nil {
			return nil, fmt.Errorf("weekly rule %s start: %w", rule.ID, err)
		}
		end, err := timeutil.ParseClock(rule.EndTime)
		if err != nil {
			return nil, fmt.Errorf("weekly rule %s end: %w", rule.ID, err)
		}
		// A rule with start >= end simply yields no candidates.
		blocks = append(blocks, baseBlock{start: start, end: end})
	}
	return blocks, nil
}

// blockedWindows expands each scheduled appointment by the requested buffer
// plus the appointment's own buffer, symmetrically on both sides, so two
// buffered services never abut within either one's padding.
func blockedWindows(appts []models.Appointment, requestedBuffer int) ([]blockedWindow, error) {
	windows := make([]blockedWindow, 0, len(appts))
	for _, a := range appts {
		if a.Status != models.StatusScheduled {
			continue
		}
		start, err := timeutil.ParseClock(a.StartTime)
		if err != nil {
			return nil, fmt.Errorf("appointment %s start: %w", a.ID, err)
		}
		end, err := timeutil.ParseClock(a.EndTime)
		if err != nil {
			return nil, fmt.Errorf("appointment %s end: %w", a.ID, err)
		}
		pad := requestedBuffer + a.BufferMinutes
		windows = append(windows, blockedWindow{start: start - pad, end: end + pad})
	}
	return windows, nil
}

func conflictsAny(start, end int, blocked []blockedWindow) bool {
	for _, w := range blocked {
		if timeutil.Overlaps(start, end, w.start, w.end) {
			return true
		}
	}
	return false
}
