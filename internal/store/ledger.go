package store

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/desertthunder/lbsync/internal/models"
)

// SuccessEntry is one line of the progress ledger. Only these entries drive resume.
type SuccessEntry struct {
	EventID         string           `json:"event_id"`
	Kind            models.Kind      `json:"kind"`
	SourceReference string           `json:"source_reference"`
	DestinationID   int              `json:"destination_id"`
	MediaType       models.MediaType `json:"media_type"`
	Timestamp       time.Time        `json:"timestamp"`
}

// ErrorEntry is one line of the error ledger. It is audit-only and never consulted for resume.
type ErrorEntry struct {
	Kind            models.Kind    `json:"kind"`
	SourceReference string         `json:"source_reference"`
	Payload         map[string]any `json:"payload"`
	Error           string         `json:"error"`
	Timestamp       time.Time      `json:"timestamp"`
}

// Ledger appends outcomes to the progress and error logs.
type Ledger struct {
	progressPath string
	errorPath    string
	now          func() time.Time
}

// NewLedger returns a ledger writing to the given paths. Files are created on first write.
func NewLedger(progressPath, errorPath string) *Ledger {
	return &Ledger{progressPath: progressPath, errorPath: errorPath, now: time.Now}
}

// RecordSuccess appends a success entry for a resolved, applied event.
func (l *Ledger) RecordSuccess(eventID string, ev *models.Event) error {
	return appendJSONLine(l.progressPath, SuccessEntry{
		EventID:         eventID,
		Kind:            ev.Kind(),
		SourceReference: ev.Reference(),
		DestinationID:   ev.DestinationID(),
		MediaType:       ev.MediaType(),
		Timestamp:       l.now().UTC(),
	})
}

// RecordUnresolved appends an error entry whose message is the resolve status.
func (l *Ledger) RecordUnresolved(ev *models.Event, status models.ResolveStatus) error {
	return l.recordError(ev, string(status))
}

// RecordError appends an error entry for err.
func (l *Ledger) RecordError(ev *models.Event, err error) error {
	return l.recordError(ev, err.Error())
}

func (l *Ledger) recordError(ev *models.Event, message string) error {
	var payload map[string]any
	if ev.Payload() != nil {
		payload = ev.Payload().Fields()
	}
	return appendJSONLine(l.errorPath, ErrorEntry{
		Kind:            ev.Kind(),
		SourceReference: ev.Reference(),
		Payload:         payload,
		Error:           message,
		Timestamp:       l.now().UTC(),
	})
}

// Successes reads the progress ledger. Lines that fail to decode, such as a record cut
// short by a crash, are skipped and counted in damaged.
func (l *Ledger) Successes() (entries []SuccessEntry, damaged int, err error) {
	damaged, err = readJSONLines(l.progressPath, func(line []byte) bool {
		var e SuccessEntry
		if json.Unmarshal(line, &e) != nil || e.EventID == "" {
			return false
		}
		entries = append(entries, e)
		return true
	})
	return entries, damaged, err
}

// CompletedIDs is the set of event ids with a success entry.
func (l *Ledger) CompletedIDs() (map[string]struct{}, int, error) {
	entries, damaged, err := l.Successes()
	if err != nil {
		return nil, 0, err
	}
	ids := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		ids[e.EventID] = struct{}{}
	}
	return ids, damaged, nil
}

// Errors reads the error ledger, skipping undecodable lines.
func (l *Ledger) Errors() ([]ErrorEntry, error) {
	var entries []ErrorEntry
	_, err := readJSONLines(l.errorPath, func(line []byte) bool {
		var e ErrorEntry
		if json.Unmarshal(line, &e) != nil {
			return false
		}
		entries = append(entries, e)
		return true
	})
	return entries, err
}

// readJSONLines calls fn for each non-empty line of path and returns how many lines fn rejected.
// A missing file reads as empty.
func readJSONLines(path string, fn func(line []byte) bool) (int, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rejected := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !fn(line) {
			rejected++
		}
	}
	if err := scanner.Err(); err != nil {
		return rejected, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return rejected, nil
}
