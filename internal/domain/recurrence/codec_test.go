package recurrence

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleJSONRoundTrip(t *testing.T) {
	t.Parallel()

	weekly, err := NewWeekly(3)
	require.NoError(t, err)
	monthly, err := NewMonthly(31)
	require.NoError(t, err)
	yearly, err := NewYearly(time.February, 29)
	require.NoError(t, err)
	rangeRule, err := NewRandomDateRange(time.June, 1, time.August, 31)
	require.NoError(t, err)

	src := randSeq{2, 9, 30}
	initWeekly, err := Initialize(NewRandomWeekly(), &src)
	require.NoError(t, err)
	initMonthly, err := Initialize(NewRandomMonthly(), &src)
	require.NoError(t, err)
	initRange, err := Initialize(rangeRule, &src)
	require.NoError(t, err)

	tests := []struct {
		name string
		rule Rule
	}{
		{"daily", NewDaily()},
		{"weekly", weekly},
		{"monthly", monthly},
		{"yearly feb 29", yearly},
		{"uninitialized random weekly", NewRandomWeekly()},
		{"uninitialized random monthly", NewRandomMonthly()},
		{"uninitialized random date range", rangeRule},
		{"initialized random weekly", initWeekly},
		{"initialized random monthly", initMonthly},
		{"initialized random date range", initRange},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data, err := json.Marshal(tt.rule)
			require.NoError(t, err)

			var decoded Rule
			require.NoError(t, json.Unmarshal(data, &decoded))
			assert.Equal(t, tt.rule, decoded)
		})
	}
}

func TestRuleUnmarshalRejectsMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		wantErr error
	}{
		{
			name:    "unknown kind",
			payload: `{"kind":"FORTNIGHTLY"}`,
			wantErr: ErrUnknownKind,
		},
		{
			name:    "weekly day out of range",
			payload: `{"kind":"WEEKLY","day_of_week":8}`,
			wantErr: ErrDayOfWeekOutOfRange,
		},
		{
			name:    "yearly impossible day",
			payload: `{"kind":"YEARLY","month":4,"day_of_month":31}`,
			wantErr: ErrDayNotInMonth,
		},
		{
			name:    "initialized random weekly with bad weekday",
			payload: `{"kind":"RANDOM_WEEKLY","day_of_week":9,"random_values_initialized":true}`,
			wantErr: ErrDayOfWeekOutOfRange,
		},
		{
			name:    "date range missing boundaries",
			payload: `{"kind":"RANDOM_DATE_RANGE"}`,
			wantErr: ErrMonthOutOfRange,
		},
		{
			name:    "initialized date range with impossible draw",
			payload: `{"kind":"RANDOM_DATE_RANGE","start_month":6,"start_day":1,"end_month":8,"end_day":31,"random_month":4,"random_day":31,"random_values_initialized":true}`,
			wantErr: ErrDayNotInMonth,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var r Rule
			err := json.Unmarshal([]byte(tt.payload), &r)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRuleUnmarshalUninitializedRandomIgnoresStaleValues(t *testing.T) {
	t.Parallel()

	// A blob that claims values but not initialization decodes to a clean
	// uninitialized rule.
	var r Rule
	require.NoError(t, json.Unmarshal(
		[]byte(`{"kind":"RANDOM_WEEKLY","day_of_week":3,"random_values_initialized":false}`), &r))
	assert.False(t, r.Initialized())
	assert.Zero(t, r.DayOfWeek())
}
