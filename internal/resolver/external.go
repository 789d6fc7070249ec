package resolver

import (
	"context"
	"strings"

	"github.com/desertthunder/lbsync/internal/models"
	"github.com/desertthunder/lbsync/internal/services"
)

// IMDbFinder looks up TMDB records by IMDb id. Implemented by [services.TMDBService].
type IMDbFinder interface {
	FindByIMDbID(ctx context.Context, imdbID string) (*services.TMDBFindResult, error)
}

// ExternalIDResolver resolves IMDb ids through TMDB. It keeps no cache.
type ExternalIDResolver struct {
	finder IMDbFinder
}

func NewExternalIDResolver(finder IMDbFinder) *ExternalIDResolver {
	return &ExternalIDResolver{finder: finder}
}

// Resolve prefers a movie match over a TV match.
func (r *ExternalIDResolver) Resolve(ctx context.Context, ref string) (models.ResolveResult, error) {
	ref = strings.TrimSpace(ref)

	res, err := r.finder.FindByIMDbID(ctx, ref)
	if err != nil {
		return models.Unresolved(ref, models.StatusError), err
	}

	switch {
	case len(res.MovieResults) > 0 && res.MovieResults[0].ID > 0:
		return models.Found(ref, res.MovieResults[0].ID, models.MediaMovie), nil
	case len(res.TVResults) > 0 && res.TVResults[0].ID > 0:
		return models.Found(ref, res.TVResults[0].ID, models.MediaTV), nil
	default:
		return models.Unresolved(ref, models.StatusNotFound), nil
	}
}
