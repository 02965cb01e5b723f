package deposit

import (
	"fmt"
	"time"
)

// =============================================================================
// CALENDAR ARITHMETIC
// =============================================================================
// Dates are calendar days in UTC. Month and year arithmetic clamps to the
// last valid day of the target month, so Jan 31 + 1 month is Feb 28 (or 29)
// and Feb 29 + 1 year is Feb 28. time.AddDate would roll over into March.

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// AddMonthsClamped adds n calendar months to d.
func AddMonthsClamped(d time.Time, n int) time.Time {
	d = DateOf(d)
	first := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	day := d.Day()
	if last := daysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// MaturityDate returns the date a deposit opened on start matures.
func MaturityDate(start time.Time, value int, unit TenureUnit) (time.Time, error) {
	switch unit {
	case TenureDays:
		return DateOf(start).AddDate(0, 0, value), nil
	case TenureMonths:
		return AddMonthsClamped(start, value), nil
	case TenureYears:
		return AddMonthsClamped(start, value*12), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownTenureUnit, unit)
	}
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
