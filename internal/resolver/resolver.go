package resolver

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/desertthunder/lbsync/internal/models"
	"github.com/desertthunder/lbsync/internal/shared"
)

// Resolver maps one source reference to a destination identity.
//
// Unresolvable references come back as a result with a non-found status. An error
// means the attempt itself failed and nothing was learned about the reference.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (models.ResolveResult, error)
}

// SourceKind is the namespace a reference belongs to.
type SourceKind int

const (
	SourceUnknown SourceKind = iota
	SourceSite
	SourceIMDb
)

func (k SourceKind) String() string {
	switch k {
	case SourceSite:
		return "letterboxd"
	case SourceIMDb:
		return "imdb"
	default:
		return "unknown"
	}
}

var imdbIDRe = regexp.MustCompile(`^tt\d+$`)

// Classify decides which resolver handles ref.
func Classify(ref string) SourceKind {
	ref = strings.TrimSpace(ref)
	if imdbIDRe.MatchString(ref) {
		return SourceIMDb
	}

	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return SourceUnknown
	}

	host := strings.ToLower(u.Hostname())
	if host == "letterboxd.com" || strings.HasSuffix(host, ".letterboxd.com") || host == "boxd.it" {
		return SourceSite
	}
	return SourceUnknown
}

// Multi dispatches each reference to the resolver for its [SourceKind].
type Multi struct {
	Site Resolver
	IMDb Resolver
}

// NewMulti combines a site resolver and an IMDb resolver.
func NewMulti(site, imdb Resolver) *Multi {
	return &Multi{Site: site, IMDb: imdb}
}

func (m *Multi) Resolve(ctx context.Context, ref string) (models.ResolveResult, error) {
	var r Resolver
	switch Classify(ref) {
	case SourceSite:
		r = m.Site
	case SourceIMDb:
		r = m.IMDb
	}
	if r == nil {
		return models.Unresolved(ref, models.StatusError), fmt.Errorf("%w: %q", shared.ErrUnknownSourceKind, ref)
	}
	return r.Resolve(ctx, ref)
}
