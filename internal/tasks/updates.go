package tasks

import (
	"strings"

	"github.com/desertthunder/lbsync/internal/models"
)

// ProgressUpdate reports one event's outcome during [Pipeline.Run].
//
// Used to drive the single-line progress counter in the CLI.
type ProgressUpdate struct {
	Step      int    // 1-based index of the event
	Total     int    // Number of events in the run
	Status    Status // Outcome label
	Reference string // Source reference of the event
	Cached    bool   // Resolve was served from the resolve cache
}

// CacheTag is CACHED or LIVE depending on where the resolve came from.
func (u ProgressUpdate) CacheTag() string {
	if u.Cached {
		return "CACHED"
	}
	return "LIVE"
}

// Status is the label printed for an event on the progress line.
type Status string

const (
	StatusSkipped  Status = "SKIPPED"
	StatusFound    Status = "FOUND"
	StatusNotFound Status = "NOT_FOUND"
	StatusBlocked  Status = "BLOCKED"
	StatusError    Status = "ERROR"
)

func (s Status) String() string { return string(s) }

func resolveStatus(s models.ResolveStatus) Status {
	return Status(strings.ToUpper(string(s)))
}

func skippedUpdate(step, total int, ref string) ProgressUpdate {
	return ProgressUpdate{Step: step, Total: total, Status: StatusSkipped, Reference: ref}
}

func resolvedUpdate(step, total int, res models.ResolveResult) ProgressUpdate {
	return ProgressUpdate{
		Step:      step,
		Total:     total,
		Status:    resolveStatus(res.Status),
		Reference: res.Reference,
		Cached:    res.Cached,
	}
}

func errorUpdate(step, total int, ref string, cached bool) ProgressUpdate {
	return ProgressUpdate{Step: step, Total: total, Status: StatusError, Reference: ref, Cached: cached}
}
