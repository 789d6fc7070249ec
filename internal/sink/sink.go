package sink

import (
	"context"
	"fmt"
	"math"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/lbsync/internal/models"
	"github.com/desertthunder/lbsync/internal/shared"
	"github.com/desertthunder/lbsync/internal/store"
)

const (
	MinRating  = 0.5
	MaxRating  = 10.0
	RatingStep = 0.5
)

// Destination is the set of account mutations the sink needs. Implemented by [services.TMDBService].
type Destination interface {
	AddToWatchlist(ctx context.Context, mediaID int, mediaType models.MediaType) error
	MarkFavorite(ctx context.Context, mediaID int, mediaType models.MediaType) error
	SetRating(ctx context.Context, mediaID int, mediaType models.MediaType, value float64) error
	CreateList(ctx context.Context, name, description string) (int, error)
	AddToList(ctx context.Context, listID, mediaID int, mediaType models.MediaType) error
}

// Sink turns resolved events into destination mutations.
type Sink struct {
	dest   Destination
	lists  *store.ListCache
	meta   *models.ListMeta
	logger *log.Logger
}

// New creates a sink. meta is the list that list and watched events go to; watched
// events fall back to the synthetic Watched list when it is nil.
func New(dest Destination, lists *store.ListCache, meta *models.ListMeta, logger *log.Logger) *Sink {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Sink{dest: dest, lists: lists, meta: meta, logger: logger}
}

// Apply performs the mutation for ev, which must already be resolved.
func (s *Sink) Apply(ctx context.Context, ev *models.Event) error {
	if !ev.Resolved() {
		return fmt.Errorf("%w: event %s %q has no destination id", shared.ErrPrecondition, ev.Kind(), ev.Reference())
	}

	id, mt := ev.DestinationID(), ev.MediaType()

	switch p := ev.Payload().(type) {
	case models.WatchlistPayload:
		return s.dest.AddToWatchlist(ctx, id, mt)
	case models.LikePayload:
		return s.dest.MarkFavorite(ctx, id, mt)
	case models.RatingPayload:
		value := ScaleFivePoint(p.Rating)
		if err := ValidateRating(value); err != nil {
			return err
		}
		return s.dest.SetRating(ctx, id, mt, value)
	case models.WatchedPayload:
		meta := s.meta
		if meta == nil {
			watched := models.WatchedListMeta()
			meta = &watched
		}
		return s.addToList(ctx, meta, id, mt)
	case models.ListPayload:
		if s.meta == nil {
			return fmt.Errorf("%w: list event without a target list", shared.ErrPrecondition)
		}
		if err := s.addToList(ctx, s.meta, id, mt); err != nil {
			return err
		}
		if p.Rating == nil {
			return nil
		}
		// List ratings are already ten-point. The add stays in place when the rating is rejected.
		value := *p.Rating
		if err := ValidateRating(value); err != nil {
			return err
		}
		return s.dest.SetRating(ctx, id, mt, value)
	}
	return fmt.Errorf("%w: %s", shared.ErrUnsupportedEventKind, ev.Kind())
}

func (s *Sink) addToList(ctx context.Context, meta *models.ListMeta, id int, mt models.MediaType) error {
	listID, err := s.ensureList(ctx, meta)
	if err != nil {
		return err
	}
	return s.dest.AddToList(ctx, listID, id, mt)
}

// ensureList returns the destination list for meta, creating and caching it on first use.
func (s *Sink) ensureList(ctx context.Context, meta *models.ListMeta) (int, error) {
	key := meta.Key()
	if id, ok := s.lists.Get(key); ok {
		return id, nil
	}

	id, err := s.dest.CreateList(ctx, meta.Name, meta.CreateDescription())
	if err != nil {
		return 0, err
	}
	if err := s.lists.Put(key, id); err != nil {
		return 0, fmt.Errorf("failed to persist list cache: %w", err)
	}

	s.logger.Info("created list", "name", meta.Name, "key", key, "list_id", id)
	return id, nil
}

// ScaleFivePoint converts a five-star rating to TMDB's ten-point scale, rounded to one decimal.
func ScaleFivePoint(r float64) float64 {
	return math.Round(r*2*10) / 10
}

// ValidateRating checks value is within [MinRating, MaxRating] and a multiple of [RatingStep].
func ValidateRating(value float64) error {
	if math.IsNaN(value) || value < MinRating || value > MaxRating {
		return fmt.Errorf("%w: %g not in [%g, %g]", shared.ErrRatingOutOfRange, value, MinRating, MaxRating)
	}
	if steps := value / RatingStep; math.Abs(steps-math.Round(steps)) > 1e-9 {
		return fmt.Errorf("%w: %g is not a multiple of %g", shared.ErrRatingOutOfRange, value, RatingStep)
	}
	return nil
}
