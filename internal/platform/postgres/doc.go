// Package postgres provides PostgreSQL implementations of the store
// interfaces, using the pgx driver through database/sql. Constraint
// violations are mapped onto the store package's sentinel errors; in
// particular the unique constraint on processed_occurrences is what backs
// the ledger's at-most-once guarantee.
package postgres
