package recurrence

import (
	"fmt"
	"math/rand"
	"time"
)

// Source supplies random draws for rule initialization. *rand.Rand satisfies
// it, and tests inject a seeded source to force determinism.
type Source interface {
	// Intn returns a non-negative pseudo-random number in [0, n).
	Intn(n int) int
}

var _ Source = (*rand.Rand)(nil)

// Initialize returns a rule with its random occurrence value drawn and
// fixed. It is a pure transition: the receiver is unchanged and the result
// is a new value. Non-random kinds and already-initialized rules are
// returned as-is, so calling Initialize more than once never redraws.
//
//   - RANDOM_WEEKLY draws an ISO weekday uniformly from 1-7.
//   - RANDOM_MONTHLY draws a day of month uniformly from 1-28, deliberately
//     avoiding 29-31 so the chosen day exists in every month.
//   - RANDOM_DATE_RANGE draws a concrete (month, day) uniformly from the
//     configured window.
func Initialize(r Rule, src Source) (Rule, error) {
	if r.initialized || !r.kind.IsRandom() {
		return r, nil
	}

	switch r.kind {
	case KindRandomWeekly:
		r.dayOfWeek = 1 + src.Intn(7)

	case KindRandomMonthly:
		r.dayOfMonth = 1 + src.Intn(28)

	case KindRandomDateRange:
		if r.startMonth == 0 || r.endMonth == 0 || r.startDay == 0 || r.endDay == 0 {
			return Rule{}, ErrDateRangeIncomplete
		}
		month, day, err := drawFromRange(r, src)
		if err != nil {
			return Rule{}, err
		}
		r.randomMonth = month
		r.randomDay = day
	}

	r.initialized = true
	return r, nil
}

// drawFromRange picks a uniform date between the rule's start and end
// boundaries inclusive. The window is walked in a fixed non-leap reference
// year; day 29 of February can never be a boundary (the constructor caps
// February boundaries at 29 but the reference year trims it), so every
// drawn date exists in any year.
func drawFromRange(r Rule, src Source) (time.Month, int, error) {
	// 2025 is an arbitrary non-leap year used only for ordinal arithmetic.
	const refYear = 2025
	start := time.Date(refYear, r.startMonth, clampDay(refYear, r.startMonth, r.startDay), 0, 0, 0, 0, time.UTC)
	end := time.Date(refYear, r.endMonth, clampDay(refYear, r.endMonth, r.endDay), 0, 0, 0, 0, time.UTC)
	if end.Before(start) {
		return 0, 0, fmt.Errorf("%w: end %s %d precedes start %s %d",
			ErrDateRangeIncomplete, r.endMonth, r.endDay, r.startMonth, r.startDay)
	}

	span := int(end.Sub(start).Hours()/24) + 1
	picked := start.AddDate(0, 0, src.Intn(span))
	return picked.Month(), picked.Day(), nil
}

func clampDay(year int, m time.Month, day int) int {
	if max := daysIn(year, m); day > max {
		return max
	}
	return day
}
