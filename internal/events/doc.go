// Package events turns Letterboxd and IMDb CSV exports into pipeline events.
//
// [LoadRows] reads an export into header-keyed rows (plus list metadata for list
// exports), [Parse] maps rows to [models.Event] values for an import [Mode], and
// [Fingerprint] gives every event the deterministic identity the progress ledger
// uses for resume.
package events
