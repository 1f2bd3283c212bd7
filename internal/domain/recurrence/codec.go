package recurrence

import (
	"encoding/json"
	"fmt"
	"time"
)

// ruleJSON is the persisted wire shape of a Rule. Notifications store rules
// as a JSONB column, so the encoding is kind-tagged with every optional
// field omitted when unset.
type ruleJSON struct {
	Kind        Kind `json:"kind"`
	DayOfWeek   int  `json:"day_of_week,omitempty"`
	DayOfMonth  int  `json:"day_of_month,omitempty"`
	Month       int  `json:"month,omitempty"`
	StartMonth  int  `json:"start_month,omitempty"`
	StartDay    int  `json:"start_day,omitempty"`
	EndMonth    int  `json:"end_month,omitempty"`
	EndDay      int  `json:"end_day,omitempty"`
	RandomMonth int  `json:"random_month,omitempty"`
	RandomDay   int  `json:"random_day,omitempty"`
	Initialized bool `json:"random_values_initialized"`
}

// MarshalJSON implements json.Marshaler.
func (r Rule) MarshalJSON() ([]byte, error) {
	return json.Marshal(ruleJSON{
		Kind:        r.kind,
		DayOfWeek:   r.dayOfWeek,
		DayOfMonth:  r.dayOfMonth,
		Month:       int(r.month),
		StartMonth:  int(r.startMonth),
		StartDay:    r.startDay,
		EndMonth:    int(r.endMonth),
		EndDay:      r.endDay,
		RandomMonth: int(r.randomMonth),
		RandomDay:   r.randomDay,
		Initialized: r.initialized,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Decoded rules are re-validated
// through the public constructors so a malformed blob cannot produce a rule
// that construction would have rejected.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var raw ruleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode recurrence rule: %w", err)
	}

	decoded, err := fromWire(raw)
	if err != nil {
		return err
	}
	*r = decoded
	return nil
}

func fromWire(raw ruleJSON) (Rule, error) {
	switch raw.Kind {
	case KindDaily:
		return NewDaily(), nil

	case KindWeekly:
		return NewWeekly(raw.DayOfWeek)

	case KindMonthly:
		return NewMonthly(raw.DayOfMonth)

	case KindYearly:
		return NewYearly(time.Month(raw.Month), raw.DayOfMonth)

	case KindRandomWeekly:
		rule := NewRandomWeekly()
		if raw.Initialized {
			if raw.DayOfWeek < 1 || raw.DayOfWeek > 7 {
				return Rule{}, fmt.Errorf("%w: got %d", ErrDayOfWeekOutOfRange, raw.DayOfWeek)
			}
			rule.dayOfWeek = raw.DayOfWeek
			rule.initialized = true
		}
		return rule, nil

	case KindRandomMonthly:
		rule := NewRandomMonthly()
		if raw.Initialized {
			if raw.DayOfMonth < 1 || raw.DayOfMonth > 31 {
				return Rule{}, fmt.Errorf("%w: got %d", ErrDayOfMonthOutOfRange, raw.DayOfMonth)
			}
			rule.dayOfMonth = raw.DayOfMonth
			rule.initialized = true
		}
		return rule, nil

	case KindRandomDateRange:
		rule, err := NewRandomDateRange(
			time.Month(raw.StartMonth), raw.StartDay,
			time.Month(raw.EndMonth), raw.EndDay,
		)
		if err != nil {
			return Rule{}, err
		}
		if raw.Initialized {
			month := time.Month(raw.RandomMonth)
			if month < time.January || month > time.December {
				return Rule{}, fmt.Errorf("%w: got %d", ErrMonthOutOfRange, raw.RandomMonth)
			}
			if raw.RandomDay < 1 || raw.RandomDay > maxDayAllowed(month) {
				return Rule{}, fmt.Errorf("%w: %s %d", ErrDayNotInMonth, month, raw.RandomDay)
			}
			rule.randomMonth = month
			rule.randomDay = raw.RandomDay
			rule.initialized = true
		}
		return rule, nil

	default:
		return Rule{}, fmt.Errorf("%w: %q", ErrUnknownKind, raw.Kind)
	}
}
