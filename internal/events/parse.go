package events

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/desertthunder/lbsync/internal/models"
	"github.com/desertthunder/lbsync/internal/shared"
)

// Mode names which export is being imported and how its columns map to events.
type Mode string

const (
	ModeWatchlist Mode = "watchlist"
	ModeLikes     Mode = "likes"
	ModeRatings   Mode = "ratings"
	ModeWatched   Mode = "watched"
	ModeList      Mode = "list"
	ModeIMDbList  Mode = "imdb-list"
)

const (
	colLetterboxdURI = "Letterboxd URI"
	colDate          = "Date"
	colRating        = "Rating"
	colURL           = "URL"
	colPosition      = "Position"
	colConst         = "Const"
	colTitleType     = "Title Type"
	colYourRating    = "Your Rating"
	colDateRated     = "Date Rated"
)

// Modes lists the supported import modes.
func Modes() []Mode {
	return []Mode{ModeWatchlist, ModeLikes, ModeRatings, ModeWatched, ModeList, ModeIMDbList}
}

// ParseMode validates a mode name. Reviews exports are recognised but not supported.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes() {
		if string(m) == s {
			return m, nil
		}
	}
	if s == "reviews" {
		return "", fmt.Errorf("%w: TMDB has no endpoint for importing reviews", shared.ErrUnsupportedMode)
	}
	return "", fmt.Errorf("%w: %q", shared.ErrUnsupportedMode, s)
}

// IsListExport reports whether the mode reads the Letterboxd list export layout.
func (m Mode) IsListExport() bool { return m == ModeList }

// ListMeta returns the destination list events of this mode are added to, or nil when
// the mode does not target a list. loaded is the metadata read from a list export.
func (m Mode) ListMeta(loaded *models.ListMeta, title string) (*models.ListMeta, error) {
	switch m {
	case ModeList:
		if loaded == nil {
			return nil, fmt.Errorf("%w: list export has no metadata", shared.ErrMalformedCSV)
		}
		meta := *loaded
		if title != "" {
			meta.Name = title
		}
		return &meta, nil
	case ModeWatched:
		meta := models.WatchedListMeta()
		return &meta, nil
	case ModeIMDbList:
		meta := models.IMDbListMeta(title)
		return &meta, nil
	}
	return nil, nil
}

// Parse maps rows to events for mode, in row order.
//
// A row missing a column its mode requires, or carrying an unparsable rating, fails the
// whole parse with [shared.ErrMalformedCSV] naming the offending row.
func Parse(mode Mode, rows []Row) ([]*models.Event, error) {
	events := make([]*models.Event, 0, len(rows))
	for i, row := range rows {
		ev, err := parseRow(mode, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func parseRow(mode Mode, row Row) (*models.Event, error) {
	switch mode {
	case ModeWatchlist:
		return siteEvent(row, models.KindWatchlist, models.WatchlistPayload{})
	case ModeLikes:
		return siteEvent(row, models.KindLike, models.LikePayload{})
	case ModeWatched:
		return siteEvent(row, models.KindWatched, models.WatchedPayload{})
	case ModeRatings:
		raw, err := require(row, colRating)
		if err != nil {
			return nil, err
		}
		rating, err := parseRating(raw)
		if err != nil {
			return nil, err
		}
		return siteEvent(row, models.KindRating, models.RatingPayload{Rating: rating})
	case ModeList:
		ref, err := require(row, colURL)
		if err != nil {
			return nil, err
		}
		pos, err := require(row, colPosition)
		if err != nil {
			return nil, err
		}
		return models.NewEvent(models.KindList, "", ref, models.ListPayload{Position: pos})
	case ModeIMDbList:
		return imdbEvent(row)
	}
	return nil, fmt.Errorf("%w: %q", shared.ErrUnsupportedMode, mode)
}

func siteEvent(row Row, kind models.Kind, payload models.Payload) (*models.Event, error) {
	ref, err := require(row, colLetterboxdURI)
	if err != nil {
		return nil, err
	}
	return models.NewEvent(kind, row.Get(colDate), ref, payload)
}

// imdbEvent builds a list event from an IMDb export row. Anything other than a
// "movie" title type is treated as TV, and only whole-number ratings are kept.
func imdbEvent(row Row) (*models.Event, error) {
	ref, err := require(row, colConst)
	if err != nil {
		return nil, err
	}

	hint := models.MediaTV
	if strings.EqualFold(row.Get(colTitleType), "movie") {
		hint = models.MediaMovie
	}

	payload := models.ListPayload{MediaHint: hint, Source: "imdb"}
	if raw := row.Get(colYourRating); isDigits(raw) {
		v, err := strconv.Atoi(raw)
		if err == nil {
			rating := float64(v)
			payload.Rating = &rating
		}
	}

	return models.NewEvent(models.KindList, row.Get(colDateRated), ref, payload)
}

func require(row Row, column string) (string, error) {
	v := row.Get(column)
	if v == "" {
		return "", fmt.Errorf("%w: missing %q column", shared.ErrMalformedCSV, column)
	}
	return v, nil
}

func parseRating(raw string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: rating %q is not a number", shared.ErrMalformedCSV, raw)
	}
	return v, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
