// Package repositories implements SQLite persistence for sync run history.
//
// [RunRepository] stores one row per `lbsync sync` invocation: mode, input file,
// flags, final counts and status. Rows are soft-deleted via deleted_at and excluded
// from queries by default.
//
// The history is informational. Resume decisions are made from the progress ledger
// alone, so losing or deleting the database never causes work to be repeated or skipped.
//
// Sequence numbers provide stable, human-readable ordering independent of UUIDs and
// timestamps. The [NextSequence] function atomically increments per-table counters
// in dedicated sequence tables.
package repositories
