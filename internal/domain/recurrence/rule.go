package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// Rule-specific validation errors
var (
	// ErrUnknownKind is returned when a rule carries a kind that is not
	// one of the defined recurrence kinds.
	ErrUnknownKind = errors.New("unknown recurrence kind")

	// ErrDayOfWeekOutOfRange is returned when a weekly rule's day of week
	// is outside 1 (Monday) through 7 (Sunday).
	ErrDayOfWeekOutOfRange = errors.New("day of week must be between 1 and 7")

	// ErrDayOfMonthOutOfRange is returned when a monthly or yearly rule's
	// day of month is outside 1 through 31.
	ErrDayOfMonthOutOfRange = errors.New("day of month must be between 1 and 31")

	// ErrMonthOutOfRange is returned when a yearly rule's month is outside
	// 1 through 12.
	ErrMonthOutOfRange = errors.New("month must be between 1 and 12")

	// ErrDayNotInMonth is returned when a day-of-month/month pair names a
	// calendar day that can never exist, such as April 31. February allows
	// day 29 so yearly Feb-29 rules validate outside leap years.
	ErrDayNotInMonth = errors.New("day does not exist in the given month")

	// ErrRandomNotInitialized is returned when a random rule is evaluated
	// before its random value has been drawn. Evaluation never silently
	// defaults, so this is a programming-contract violation.
	ErrRandomNotInitialized = errors.New("random recurrence values not initialized")

	// ErrDateRangeIncomplete is returned when a random-date-range rule is
	// missing one of its window boundaries.
	ErrDateRangeIncomplete = errors.New("random date range requires start and end month/day")
)

// Kind identifies one of the supported recurrence patterns.
type Kind string

const (
	KindDaily           Kind = "DAILY"
	KindWeekly          Kind = "WEEKLY"
	KindMonthly         Kind = "MONTHLY"
	KindYearly          Kind = "YEARLY"
	KindRandomWeekly    Kind = "RANDOM_WEEKLY"
	KindRandomMonthly   Kind = "RANDOM_MONTHLY"
	KindRandomDateRange Kind = "RANDOM_DATE_RANGE"
)

// IsRandom reports whether the kind draws its occurrence day from a random
// source rather than carrying it explicitly.
func (k Kind) IsRandom() bool {
	switch k {
	case KindRandomWeekly, KindRandomMonthly, KindRandomDateRange:
		return true
	}
	return false
}

// Rule is an immutable recurrence pattern. A Rule is constructed through one
// of the New* constructors, which validate every field required by the kind
// and fail immediately rather than at evaluation time. Random kinds start out
// uninitialized; Initialize (see random.go) produces a new Rule value with
// the drawn day fixed. A Rule is never mutated in place, so two concurrent
// evaluations can never observe different random state mid-flight.
type Rule struct {
	kind Kind

	// dayOfWeek holds the target ISO weekday (Monday=1) for WEEKLY rules,
	// and the fixed drawn weekday for an initialized RANDOM_WEEKLY rule.
	dayOfWeek int

	// dayOfMonth holds the target day for MONTHLY and YEARLY rules, and the
	// fixed drawn day for an initialized RANDOM_MONTHLY rule.
	dayOfMonth int

	// month is set for YEARLY rules only.
	month time.Month

	// Window boundaries for RANDOM_DATE_RANGE.
	startMonth time.Month
	startDay   int
	endMonth   time.Month
	endDay     int

	// Fixed drawn date for an initialized RANDOM_DATE_RANGE rule.
	randomMonth time.Month
	randomDay   int

	// initialized is true once a random kind has had its value drawn.
	// Always true for non-random kinds.
	initialized bool
}

// NewDaily returns a rule that occurs every day.
func NewDaily() Rule {
	return Rule{kind: KindDaily, initialized: true}
}

// NewWeekly returns a rule that occurs on the given ISO weekday (Monday=1).
func NewWeekly(dayOfWeek int) (Rule, error) {
	if dayOfWeek < 1 || dayOfWeek > 7 {
		return Rule{}, fmt.Errorf("%w: got %d", ErrDayOfWeekOutOfRange, dayOfWeek)
	}
	return Rule{kind: KindWeekly, dayOfWeek: dayOfWeek, initialized: true}, nil
}

// NewMonthly returns a rule that occurs on the given day of every month.
// Months with fewer days than dayOfMonth simply never deliver that cycle;
// there is no rollover to the last day of the month.
func NewMonthly(dayOfMonth int) (Rule, error) {
	if dayOfMonth < 1 || dayOfMonth > 31 {
		return Rule{}, fmt.Errorf("%w: got %d", ErrDayOfMonthOutOfRange, dayOfMonth)
	}
	return Rule{kind: KindMonthly, dayOfMonth: dayOfMonth, initialized: true}, nil
}

// NewYearly returns a rule that occurs once a year on the given month and
// day. February 29 is accepted so leap-day rules validate in any year;
// whether a Feb-29 rule actually delivers in a given year is decided by the
// evaluator's month-length check.
func NewYearly(month time.Month, dayOfMonth int) (Rule, error) {
	if month < time.January || month > time.December {
		return Rule{}, fmt.Errorf("%w: got %d", ErrMonthOutOfRange, month)
	}
	if dayOfMonth < 1 || dayOfMonth > 31 {
		return Rule{}, fmt.Errorf("%w: got %d", ErrDayOfMonthOutOfRange, dayOfMonth)
	}
	if dayOfMonth > maxDayAllowed(month) {
		return Rule{}, fmt.Errorf("%w: %s %d", ErrDayNotInMonth, month, dayOfMonth)
	}
	return Rule{kind: KindYearly, month: month, dayOfMonth: dayOfMonth, initialized: true}, nil
}

// NewRandomWeekly returns an uninitialized rule whose weekday is drawn once,
// on first persistence of the owning notification.
func NewRandomWeekly() Rule {
	return Rule{kind: KindRandomWeekly}
}

// NewRandomMonthly returns an uninitialized rule whose day of month is drawn
// once. The draw is restricted to 1-28 so the chosen day exists in every
// month.
func NewRandomMonthly() Rule {
	return Rule{kind: KindRandomMonthly}
}

// NewRandomDateRange returns an uninitialized rule whose single yearly
// occurrence date is drawn once from the window [start, end]. Both window
// boundaries must name real calendar days.
func NewRandomDateRange(startMonth time.Month, startDay int, endMonth time.Month, endDay int) (Rule, error) {
	for _, b := range []struct {
		month time.Month
		day   int
	}{{startMonth, startDay}, {endMonth, endDay}} {
		if b.month < time.January || b.month > time.December {
			return Rule{}, fmt.Errorf("%w: got %d", ErrMonthOutOfRange, b.month)
		}
		if b.day < 1 || b.day > 31 {
			return Rule{}, fmt.Errorf("%w: got %d", ErrDayOfMonthOutOfRange, b.day)
		}
		if b.day > maxDayAllowed(b.month) {
			return Rule{}, fmt.Errorf("%w: %s %d", ErrDayNotInMonth, b.month, b.day)
		}
	}
	return Rule{
		kind:       KindRandomDateRange,
		startMonth: startMonth,
		startDay:   startDay,
		endMonth:   endMonth,
		endDay:     endDay,
	}, nil
}

// Kind returns the rule's recurrence kind.
func (r Rule) Kind() Kind { return r.kind }

// Initialized reports whether the rule is ready for evaluation. Non-random
// kinds are always initialized; random kinds become initialized after
// Initialize has drawn their value.
func (r Rule) Initialized() bool { return r.initialized }

// DayOfWeek returns the target ISO weekday for WEEKLY and initialized
// RANDOM_WEEKLY rules, or zero otherwise.
func (r Rule) DayOfWeek() int { return r.dayOfWeek }

// DayOfMonth returns the target day for MONTHLY, YEARLY and initialized
// RANDOM_MONTHLY rules, or zero otherwise.
func (r Rule) DayOfMonth() int { return r.dayOfMonth }

// Month returns the target month for YEARLY rules, or zero otherwise.
func (r Rule) Month() time.Month { return r.month }

// RandomDate returns the fixed drawn (month, day) of an initialized
// RANDOM_DATE_RANGE rule.
func (r Rule) RandomDate() (time.Month, int) { return r.randomMonth, r.randomDay }

// DateRange returns the configured draw window of a RANDOM_DATE_RANGE rule.
func (r Rule) DateRange() (startMonth time.Month, startDay int, endMonth time.Month, endDay int) {
	return r.startMonth, r.startDay, r.endMonth, r.endDay
}

// maxDayAllowed is the largest day of month the validator accepts for the
// given month. February is special-cased to 29 so leap-day rules can be
// constructed in any year; the evaluator checks the actual year's month
// length at delivery time.
func maxDayAllowed(m time.Month) int {
	switch m {
	case time.April, time.June, time.September, time.November:
		return 30
	case time.February:
		return 29
	default:
		return 31
	}
}

// daysIn returns the real number of days in the given month and year.
func daysIn(year int, m time.Month) int {
	// Day 0 of the next month normalizes to the last day of m.
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
