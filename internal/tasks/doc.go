// Package tasks runs the resume-safe sync of Letterboxd events into TMDB.
//
// # Pipeline
//
// [Pipeline.Run] takes events in export order and, for each one:
//
//  1. Computes its fingerprint with [events.Fingerprint]
//  2. Skips it when resuming and the fingerprint is already in the progress ledger
//  3. Resolves its reference to a TMDB id
//  4. Records non-found outcomes in the error ledger
//  5. Stops there on a dry run
//  6. Applies it through the sink and records success under the fingerprint
//  7. Pauses for the configured delay
//
// Any failure inside one event is written to the error ledger and the run moves on.
// Success is only recorded after a real apply, so an interrupted run can be restarted
// without repeating completed mutations.
//
// # Progress Reporting
//
// Updates are sent on a channel without blocking. A full or unread channel drops the
// update rather than stalling the run.
package tasks
