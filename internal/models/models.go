package models

import (
	"time"
)

// Model is a row persisted in the run history database.
//
// Events, resolve results and list metadata are not Models: they live in the
// JSON caches and JSONL ledgers, which are the source of truth for resume.
type Model interface {
	ID() string
	CreatedAt() time.Time
	UpdatedAt() time.Time
	Validate() error
}

// Repository is the CRUD surface of a SQLite-backed table of T.
//
// List criteria keys are column names; unknown keys are ignored.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error // soft delete
	List(criteria map[string]any) ([]T, error)
}

var _ Model = (*SyncRun)(nil)
