package resolver

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/lbsync/internal/models"
	"github.com/desertthunder/lbsync/internal/services"
	"github.com/desertthunder/lbsync/internal/shared"
	"github.com/desertthunder/lbsync/internal/store"
)

var tmdbLinkRe = regexp.MustCompile(`/(movie|tv)/(\d+)`)

// PageFetcher loads a source-site page. Implemented by [services.LetterboxdService].
type PageFetcher interface {
	FetchPage(ctx context.Context, rawURL string) (*services.Page, error)
}

// SiteResolver resolves Letterboxd film URLs through the resolve cache and the film page.
type SiteResolver struct {
	cache   *store.ResolveCache
	fetcher PageFetcher
	logger  *log.Logger
}

// NewSiteResolver creates a resolver backed by cache. A nil logger writes to stderr.
func NewSiteResolver(cache *store.ResolveCache, fetcher PageFetcher, logger *log.Logger) *SiteResolver {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SiteResolver{cache: cache, fetcher: fetcher, logger: logger}
}

// Resolve returns a cached stable outcome when there is one. Otherwise it fetches the
// page, caches found, not_found and blocked outcomes, and leaves transport failures uncached.
func (r *SiteResolver) Resolve(ctx context.Context, ref string) (models.ResolveResult, error) {
	ref = store.NormalizeReference(ref)

	if entry, ok := r.cache.Lookup(ref); ok && entry.Status.Stable() {
		return entry.Result(ref), nil
	}

	page, err := r.fetcher.FetchPage(ctx, ref)
	if err != nil {
		return models.Unresolved(ref, models.StatusError), err
	}

	var result models.ResolveResult
	switch {
	case page.StatusCode == http.StatusForbidden || page.StatusCode == http.StatusTooManyRequests:
		result = models.Unresolved(ref, models.StatusBlocked)
	case page.StatusCode == http.StatusNotFound:
		result = models.Unresolved(ref, models.StatusNotFound)
	case !page.OK():
		return models.Unresolved(ref, models.StatusError),
			fmt.Errorf("%w: %s returned %d", shared.ErrTransport, ref, page.StatusCode)
	default:
		doc, err := page.Document()
		if err != nil {
			return models.Unresolved(ref, models.StatusError), err
		}
		if id, mt, ok := ExtractTMDB(doc); ok {
			result = models.Found(ref, id, mt)
		} else {
			result = models.Unresolved(ref, models.StatusNotFound)
		}
	}

	r.logger.Debug("resolved", "ref", ref, "status", result.Status, "id", result.DestinationID)

	if err := r.cache.Put(result); err != nil {
		return result, fmt.Errorf("failed to persist resolve cache: %w", err)
	}
	return result, nil
}

// ExtractTMDB finds the TMDB id on a Letterboxd film page.
//
// The footer link to themoviedb.org is preferred; the body's data-tmdb-* attributes are the fallback.
func ExtractTMDB(doc *goquery.Document) (int, models.MediaType, bool) {
	var (
		id    int
		mt    models.MediaType
		found bool
	)

	doc.Find("p.text-link.text-footer a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !strings.Contains(href, "themoviedb.org") {
			return true
		}
		id, mt, found = parseTMDBLink(href)
		return !found
	})
	if found {
		return id, mt, true
	}

	body := doc.Find("body[data-tmdb-type][data-tmdb-id]").First()
	if body.Length() == 0 {
		return 0, "", false
	}

	rawType, _ := body.Attr("data-tmdb-type")
	rawID, _ := body.Attr("data-tmdb-id")
	mt, err := models.ParseMediaType(strings.TrimSpace(rawType))
	if err != nil {
		return 0, "", false
	}
	id, err = strconv.Atoi(strings.TrimSpace(rawID))
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, mt, true
}

func parseTMDBLink(href string) (int, models.MediaType, bool) {
	m := tmdbLinkRe.FindStringSubmatch(href)
	if m == nil {
		return 0, "", false
	}
	id, err := strconv.Atoi(m[2])
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, models.MediaType(m[1]), true
}
