// Package models defines the domain types of the Letterboxd to TMDB sync pipeline.
//
// The package contains two categories of types:
//
// 1. Pipeline values: immutable data flowing through a sync run
//   - [Event] : one user action to replicate, with a [Payload] variant per [Kind]
//   - [ResolveResult] : outcome of mapping a source reference to a TMDB id
//   - [ListMeta] : identity and metadata of a destination list to create or reuse
//
// 2. Persistent entities: database-backed models with lifecycle management
//   - [SyncRun] : one invocation of `lbsync sync`, kept for the history command
//
// Persistent entities implement the [Model] interface. The [Repository] interface
// defines standard CRUD operations for database access.
package models
