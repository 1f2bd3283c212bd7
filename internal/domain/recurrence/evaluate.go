package recurrence

import (
	"fmt"
	"time"
)

// maxForecastDays bounds the forward walk in NextDeliveryDate. Every kind
// occurs at least once a year, so 366 days is enough to find the next hit
// for any initialized rule.
const maxForecastDays = 366

// ShouldDeliverOn reports whether date is an occurrence day for the rule.
//
// The date is first re-expressed in loc so the decision is made from the
// recipient's calendar day rather than the server's. Evaluation is a pure
// function: identical inputs always yield identical output, which is what
// makes reprocessing idempotent and the engine testable without a clock.
//
// Random rules must be initialized before evaluation; an uninitialized rule
// returns ErrRandomNotInitialized rather than silently defaulting.
func ShouldDeliverOn(r Rule, date time.Time, loc *time.Location) (bool, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := date.In(loc)
	year, month, day := local.Date()

	switch r.kind {
	case KindDaily:
		return true, nil

	case KindWeekly, KindRandomWeekly:
		if r.kind == KindRandomWeekly && !r.initialized {
			return false, fmt.Errorf("%w: kind %s", ErrRandomNotInitialized, r.kind)
		}
		return isoWeekday(local) == r.dayOfWeek, nil

	case KindMonthly, KindRandomMonthly:
		if r.kind == KindRandomMonthly && !r.initialized {
			return false, fmt.Errorf("%w: kind %s", ErrRandomNotInitialized, r.kind)
		}
		// Months shorter than the target day never deliver that cycle.
		if r.dayOfMonth > daysIn(year, month) {
			return false, nil
		}
		return day == r.dayOfMonth, nil

	case KindYearly:
		if month != r.month {
			return false, nil
		}
		// A Feb-29 rule delivers only in leap years.
		if r.dayOfMonth > daysIn(year, month) {
			return false, nil
		}
		return day == r.dayOfMonth, nil

	case KindRandomDateRange:
		if !r.initialized {
			return false, fmt.Errorf("%w: kind %s", ErrRandomNotInitialized, r.kind)
		}
		return month == r.randomMonth && day == r.randomDay, nil

	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownKind, r.kind)
	}
}

// NextDeliveryDate walks forward from the day after fromDate, up to 366
// days, and returns the first occurrence day. The boolean is false if the
// window is exhausted without a hit (possible for a Feb-29 yearly rule in
// the years before a leap year). Used for forecasting, not by the
// processing path.
func NextDeliveryDate(r Rule, fromDate time.Time, loc *time.Location) (time.Time, bool, error) {
	if loc == nil {
		loc = time.UTC
	}
	local := fromDate.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	for i := 1; i <= maxForecastDays; i++ {
		candidate := day.AddDate(0, 0, i)
		due, err := ShouldDeliverOn(r, candidate, loc)
		if err != nil {
			return time.Time{}, false, err
		}
		if due {
			return candidate, true, nil
		}
	}
	return time.Time{}, false, nil
}

// isoWeekday maps time.Weekday (Sunday=0) to ISO numbering (Monday=1,
// Sunday=7).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}
