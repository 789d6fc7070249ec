package store

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/desertthunder/lbsync/internal/models"
)

// ResolveEntry is the cached outcome for one normalized reference.
type ResolveEntry struct {
	Status        models.ResolveStatus `json:"status"`
	DestinationID int                  `json:"destination_id,omitempty"`
	MediaType     models.MediaType     `json:"media_type,omitempty"`
	Timestamp     time.Time            `json:"timestamp"`
}

// Result rebuilds a cached [models.ResolveResult] for ref.
func (e ResolveEntry) Result(ref string) models.ResolveResult {
	if e.Status == models.StatusFound {
		return models.Found(ref, e.DestinationID, e.MediaType).FromCache()
	}
	return models.Unresolved(ref, e.Status).FromCache()
}

// ResolveCache persists resolve outcomes for source-site references.
type ResolveCache struct {
	path    string
	entries map[string]ResolveEntry
	now     func() time.Time
}

// OpenResolveCache loads the cache at path. A missing file is an empty cache; an
// unreadable one fails with [shared.ErrCorruptState].
func OpenResolveCache(path string) (*ResolveCache, error) {
	c := &ResolveCache{path: path, entries: make(map[string]ResolveEntry), now: time.Now}
	if err := readJSON(path, &c.entries); err != nil {
		return nil, err
	}
	if c.entries == nil {
		c.entries = make(map[string]ResolveEntry)
	}
	return c, nil
}

// NormalizeReference is the cache key for ref: surrounding whitespace and trailing slashes removed.
func NormalizeReference(ref string) string {
	return strings.TrimRight(strings.TrimSpace(ref), "/")
}

// Lookup returns the entry for ref, if any.
func (c *ResolveCache) Lookup(ref string) (ResolveEntry, bool) {
	e, ok := c.entries[NormalizeReference(ref)]
	return e, ok
}

// Put records result for its reference and persists the whole cache before returning.
func (c *ResolveCache) Put(result models.ResolveResult) error {
	entry := ResolveEntry{Status: result.Status, Timestamp: c.now().UTC()}
	if result.OK() {
		entry.DestinationID = result.DestinationID
		entry.MediaType = result.MediaType
	}
	c.entries[NormalizeReference(result.Reference)] = entry
	return writeJSON(c.path, c.entries)
}

// Len is the number of cached references.
func (c *ResolveCache) Len() int { return len(c.entries) }

// References returns the cached references in sorted order.
func (c *ResolveCache) References() []string {
	return slices.Sorted(maps.Keys(c.entries))
}

// Stats counts entries per status.
func (c *ResolveCache) Stats() map[models.ResolveStatus]int {
	stats := make(map[models.ResolveStatus]int)
	for _, e := range c.entries {
		stats[e.Status]++
	}
	return stats
}

// Purge drops entries whose status is in statuses, or every entry when none are given,
// and persists the result. It returns the number of entries removed.
func (c *ResolveCache) Purge(statuses ...models.ResolveStatus) (int, error) {
	removed := 0
	for ref, e := range c.entries {
		if len(statuses) == 0 || slices.Contains(statuses, e.Status) {
			delete(c.entries, ref)
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	return removed, writeJSON(c.path, c.entries)
}
