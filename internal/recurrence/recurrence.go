package recurrence

import (
	"time"

	"github.com/docwatch/docwatch/internal/models"
)

// NextRun returns the next instant strictly after now at which a schedule
// with the given time of day and frequency becomes due. The candidate is
// "today at runAt" in now's location; a candidate that is not strictly after
// now (including an exact second match) counts as already elapsed and rolls
// forward one full period, so a slot never fires twice.
func NextRun(now time.Time, runAt models.TimeOfDay, freq models.Frequency) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), runAt.Hour, runAt.Minute, 0, 0, now.Location())
	if candidate.After(now) {
		return candidate
	}
	return advance(candidate, freq)
}

// advance moves t forward by one period. Monthly preserves the day of month
// where possible and clamps to the last day of shorter months.
func advance(t time.Time, freq models.Frequency) time.Time {
	switch freq {
	case models.FrequencyWeekly:
		return t.AddDate(0, 0, 7)
	case models.FrequencyMonthly:
		return addMonthClamped(t)
	default:
		return t.AddDate(0, 0, 1)
	}
}

func addMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()
	// Day 0 of month+2 normalizes to the last day of month+1.
	last := time.Date(year, month+2, 0, 0, 0, 0, 0, t.Location()).Day()
	if day > last {
		day = last
	}
	return time.Date(year, month+1, day, t.Hour(), t.Minute(), 0, 0, t.Location())
}
