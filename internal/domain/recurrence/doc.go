// Package recurrence implements the recurrence patterns carried by
// notifications and the pure evaluation logic that decides whether a given
// calendar day is an occurrence day.
//
// A Rule is an immutable value constructed and validated once. Random kinds
// (weekly, monthly, date-range) are created uninitialized and transition to
// an initialized value exactly once via Initialize, which draws from an
// injectable Source. Evaluation (ShouldDeliverOn) is a pure function of the
// rule, the date and the recipient's time zone, so occurrence processing can
// be replayed idempotently and tested without a clock.
package recurrence
