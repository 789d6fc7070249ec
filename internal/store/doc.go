// Package store holds the on-disk state that makes a sync resumable.
//
//   - [ResolveCache] maps normalized source references to resolve outcomes (resolve_cache.json)
//   - [ListCache] maps list idempotency keys to TMDB list ids (tmdb_lists.json)
//   - [Ledger] appends success records, used for resume, and error records, used for audit
//     (progress.jsonl, errors.jsonl)
//
// Each store is loaded once when opened and persisted synchronously on every write.
// JSON maps are rewritten through a temporary file and a rename; ledgers are appended and
// fsynced line by line. A crash therefore loses at most the write in flight.
package store
