package models

import (
	"fmt"

	"github.com/desertthunder/lbsync/internal/shared"
)

// Kind is the closed set of user actions the pipeline can replicate.
type Kind string

const (
	KindWatchlist Kind = "watchlist"
	KindLike      Kind = "like"
	KindRating    Kind = "rating"
	KindWatched   Kind = "watched"
	KindList      Kind = "list"
)

// Kinds lists every valid [Kind] in a stable order.
func Kinds() []Kind {
	return []Kind{KindWatchlist, KindLike, KindRating, KindWatched, KindList}
}

// ParseKind converts the string form of a kind, as stored in the ledgers.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds() {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", shared.ErrUnsupportedEventKind, s)
}

func (k Kind) String() string { return string(k) }

// Payload carries the kind-specific data of an [Event].
//
// The set of implementations is closed: [WatchlistPayload], [LikePayload],
// [RatingPayload], [WatchedPayload] and [ListPayload].
type Payload interface {
	// Kind reports which event kind this payload belongs to.
	Kind() Kind
	// Fields returns the payload as a plain map, used for fingerprinting and the error ledger.
	Fields() map[string]any
	sealed()
}

type WatchlistPayload struct{}

func (WatchlistPayload) Kind() Kind             { return KindWatchlist }
func (WatchlistPayload) Fields() map[string]any { return map[string]any{} }
func (WatchlistPayload) sealed()                {}

type LikePayload struct{}

func (LikePayload) Kind() Kind             { return KindLike }
func (LikePayload) Fields() map[string]any { return map[string]any{} }
func (LikePayload) sealed()                {}

type WatchedPayload struct{}

func (WatchedPayload) Kind() Kind             { return KindWatched }
func (WatchedPayload) Fields() map[string]any { return map[string]any{} }
func (WatchedPayload) sealed()                {}

// RatingPayload holds a rating on the source site's five-point half-star scale.
type RatingPayload struct {
	Rating float64
}

func (RatingPayload) Kind() Kind { return KindRating }
func (p RatingPayload) Fields() map[string]any {
	return map[string]any{"rating": p.Rating}
}
func (RatingPayload) sealed() {}

// ListPayload describes one entry of a destination list.
//
// Rating, when set, is already on the destination's ten-point scale.
type ListPayload struct {
	Position  string
	Rating    *float64
	MediaHint MediaType
	Source    string
}

func (ListPayload) Kind() Kind { return KindList }
func (p ListPayload) Fields() map[string]any {
	f := map[string]any{}
	if p.Position != "" {
		f["position"] = p.Position
	}
	if p.Rating != nil {
		f["rating"] = *p.Rating
	}
	if p.MediaHint != "" {
		f["media_hint"] = string(p.MediaHint)
	}
	if p.Source != "" {
		f["source"] = p.Source
	}
	return f
}
func (ListPayload) sealed() {}

// Event is one user action to replicate.
//
// Everything but the destination id and media type is fixed at construction.
// Those two are set together, once, by [Event.Bind].
type Event struct {
	kind          Kind
	date          string
	reference     string
	payload       Payload
	destinationID int
	mediaType     MediaType
}

// NewEvent builds an event, rejecting a payload that belongs to a different kind.
func NewEvent(kind Kind, date, reference string, payload Payload) (*Event, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: nil payload for %s event", shared.ErrUnsupportedEventKind, kind)
	}
	if payload.Kind() != kind {
		return nil, fmt.Errorf("%w: %s payload on %s event", shared.ErrUnsupportedEventKind, payload.Kind(), kind)
	}
	return &Event{kind: kind, date: date, reference: reference, payload: payload}, nil
}

func (e *Event) Kind() Kind           { return e.kind }
func (e *Event) Date() string         { return e.date }
func (e *Event) Reference() string    { return e.reference }
func (e *Event) Payload() Payload     { return e.payload }
func (e *Event) DestinationID() int   { return e.destinationID }
func (e *Event) MediaType() MediaType { return e.mediaType }
func (e *Event) Resolved() bool       { return e.destinationID != 0 && e.mediaType != "" }

// Bind records the destination identity found by the resolver.
func (e *Event) Bind(destinationID int, mediaType MediaType) error {
	if e.Resolved() {
		return fmt.Errorf("%w: %s already bound to %s/%d", shared.ErrAlreadyResolved, e.reference, e.mediaType, e.destinationID)
	}
	if destinationID <= 0 || !mediaType.Valid() {
		return fmt.Errorf("%w: invalid destination %s/%d", shared.ErrInvalidArgument, mediaType, destinationID)
	}
	e.destinationID = destinationID
	e.mediaType = mediaType
	return nil
}
