// Package domain defines the core business entities of the tickler service:
// notifications with optional recurrence and action metadata, the todos
// fanned out from notification occurrences, users, and the processed
// occurrence ledger entries that guarantee at-most-one processing per
// notification per day.
package domain
