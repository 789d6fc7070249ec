package models

import (
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a [SyncRun].
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
	RunCancelled RunStatus = "cancelled"
)

func (s RunStatus) Valid() bool {
	switch s {
	case RunRunning, RunCompleted, RunFailed, RunCancelled:
		return true
	}
	return false
}

// RunCounts are the per-run totals reported by the pipeline.
type RunCounts struct {
	Total      int
	Applied    int
	Skipped    int
	Failed     int
	Unresolved int
}

// SyncRun records one invocation of the sync command.
//
// It is informational only; resume decisions come from the progress ledger.
type SyncRun struct {
	id           string
	sequence     int
	mode         string
	csvPath      string
	dryRun       bool
	resume       bool
	status       RunStatus
	counts       RunCounts
	errorMessage string
	startedAt    time.Time
	completedAt  *time.Time
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewSyncRun creates a running [SyncRun] started now.
func NewSyncRun(mode, csvPath string, dryRun, resume bool) *SyncRun {
	now := time.Now()
	return &SyncRun{
		mode:      mode,
		csvPath:   csvPath,
		dryRun:    dryRun,
		resume:    resume,
		status:    RunRunning,
		startedAt: now,
		createdAt: now,
		updatedAt: now,
	}
}

func (r *SyncRun) ID() string              { return r.id }
func (r *SyncRun) Sequence() int           { return r.sequence }
func (r *SyncRun) Mode() string            { return r.mode }
func (r *SyncRun) CSVPath() string         { return r.csvPath }
func (r *SyncRun) DryRun() bool            { return r.dryRun }
func (r *SyncRun) Resume() bool            { return r.resume }
func (r *SyncRun) Status() RunStatus       { return r.status }
func (r *SyncRun) Counts() RunCounts       { return r.counts }
func (r *SyncRun) ErrorMessage() string    { return r.errorMessage }
func (r *SyncRun) StartedAt() time.Time    { return r.startedAt }
func (r *SyncRun) CompletedAt() *time.Time { return r.completedAt }
func (r *SyncRun) CreatedAt() time.Time    { return r.createdAt }
func (r *SyncRun) UpdatedAt() time.Time    { return r.updatedAt }
func (r *SyncRun) DeletedAt() *time.Time   { return r.deletedAt }

func (r *SyncRun) SetID(id string)             { r.id = id }
func (r *SyncRun) SetSequence(seq int)         { r.sequence = seq }
func (r *SyncRun) SetStatus(s RunStatus)       { r.status = s }
func (r *SyncRun) SetCounts(c RunCounts)       { r.counts = c }
func (r *SyncRun) SetErrorMessage(msg string)  { r.errorMessage = msg }
func (r *SyncRun) SetStartedAt(t time.Time)    { r.startedAt = t }
func (r *SyncRun) SetCompletedAt(t *time.Time) { r.completedAt = t }
func (r *SyncRun) SetCreatedAt(t time.Time)    { r.createdAt = t }
func (r *SyncRun) SetUpdatedAt(t time.Time)    { r.updatedAt = t }
func (r *SyncRun) SetDeletedAt(t *time.Time)   { r.deletedAt = t }

// Finish moves the run to a terminal status. A non-nil err is kept as the error message.
func (r *SyncRun) Finish(status RunStatus, counts RunCounts, err error) {
	now := time.Now()
	r.status = status
	r.counts = counts
	r.completedAt = &now
	if err != nil {
		r.errorMessage = err.Error()
	}
}

// Duration is the wall time of a finished run, or the time elapsed so far.
func (r *SyncRun) Duration() time.Duration {
	if r.completedAt != nil {
		return r.completedAt.Sub(r.startedAt)
	}
	return time.Since(r.startedAt)
}

// Validate checks the run has a mode, a source file and a known status.
func (r *SyncRun) Validate() error {
	if r.mode == "" {
		return fmt.Errorf("mode is required")
	}
	if r.csvPath == "" {
		return fmt.Errorf("csv path is required")
	}
	if !r.status.Valid() {
		return fmt.Errorf("invalid status %q", r.status)
	}
	return nil
}
