package models

import (
	"fmt"

	"github.com/desertthunder/lbsync/internal/shared"
)

// MediaType is the TMDB media namespace a destination id lives in.
type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

// ParseMediaType accepts "movie" or "tv".
func ParseMediaType(s string) (MediaType, error) {
	switch MediaType(s) {
	case MediaMovie, MediaTV:
		return MediaType(s), nil
	}
	return "", fmt.Errorf("%w: media type %q", shared.ErrInvalidArgument, s)
}

func (m MediaType) Valid() bool { return m == MediaMovie || m == MediaTV }

// ResolveStatus is the outcome class of a resolve.
type ResolveStatus string

const (
	StatusFound    ResolveStatus = "found"
	StatusNotFound ResolveStatus = "not_found"
	StatusBlocked  ResolveStatus = "blocked"
	StatusError    ResolveStatus = "error"
)

// Stable reports whether a cached result with this status may be reused without a live fetch.
func (s ResolveStatus) Stable() bool {
	return s == StatusFound || s == StatusNotFound || s == StatusBlocked
}

// ResolveResult is the outcome of mapping a source reference to a destination identity.
//
// DestinationID and MediaType are set iff Status is [StatusFound]. Build values with
// [Found] or [Unresolved] to keep that true.
type ResolveResult struct {
	Status        ResolveStatus
	DestinationID int
	MediaType     MediaType
	Reference     string
	Cached        bool
}

// Found returns a found result for ref.
func Found(ref string, destinationID int, mediaType MediaType) ResolveResult {
	return ResolveResult{Status: StatusFound, DestinationID: destinationID, MediaType: mediaType, Reference: ref}
}

// Unresolved returns a result without destination ids. Passing [StatusFound] yields [StatusError].
func Unresolved(ref string, status ResolveStatus) ResolveResult {
	if status == StatusFound {
		status = StatusError
	}
	return ResolveResult{Status: status, Reference: ref}
}

// FromCache marks the result as served from the resolve cache.
func (r ResolveResult) FromCache() ResolveResult {
	r.Cached = true
	return r
}

// OK reports whether the result carries a usable destination identity.
func (r ResolveResult) OK() bool {
	return r.Status == StatusFound && r.DestinationID > 0 && r.MediaType.Valid()
}

// Err converts an unresolved result into an error wrapping [shared.ErrResolution].
func (r ResolveResult) Err() error {
	if r.OK() {
		return nil
	}
	return fmt.Errorf("%w: %s", shared.ErrResolution, r.Status)
}

// CacheTag is the progress-line label for where the result came from.
func (r ResolveResult) CacheTag() string {
	if r.Cached {
		return "CACHED"
	}
	return "LIVE"
}
