package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/lbsync/internal/models"
	"github.com/desertthunder/lbsync/internal/resolver"
	"github.com/desertthunder/lbsync/internal/services"
	"github.com/desertthunder/lbsync/internal/shared"
	"github.com/desertthunder/lbsync/internal/sink"
	"github.com/desertthunder/lbsync/internal/store"
	tu "github.com/desertthunder/lbsync/internal/testing"
)

type mockResolver struct {
	results map[string]models.ResolveResult
	errs    map[string]error
	calls   int
}

func (m *mockResolver) Resolve(ctx context.Context, ref string) (models.ResolveResult, error) {
	m.calls++
	if err, ok := m.errs[ref]; ok {
		return models.Unresolved(ref, models.StatusError), err
	}
	if r, ok := m.results[ref]; ok {
		return r, nil
	}
	return models.Unresolved(ref, models.StatusNotFound), nil
}

// cancellingDestination cancels the run while a list add is in flight and fails
// any call whose context is already cancelled.
type cancellingDestination struct {
	*tu.FakeDestination
	cancel context.CancelFunc
}

func (d *cancellingDestination) AddToList(ctx context.Context, listID, id int, mt models.MediaType) error {
	d.cancel()
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.FakeDestination.AddToList(ctx, listID, id, mt)
}

func (d *cancellingDestination) SetRating(ctx context.Context, id int, mt models.MediaType, v float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return d.FakeDestination.SetRating(ctx, id, mt, v)
}

type mockPages map[string]string

func (m mockPages) FetchPage(ctx context.Context, rawURL string) (*services.Page, error) {
	body, ok := m[rawURL]
	if !ok {
		return &services.Page{URL: rawURL, StatusCode: http.StatusNotFound}, nil
	}
	return &services.Page{URL: rawURL, StatusCode: http.StatusOK, Body: []byte(body)}, nil
}

type fixture struct {
	dir    string
	ledger *store.Ledger
	dest   *tu.FakeDestination
	res    *mockResolver
	sleeps []time.Duration
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	return &fixture{
		dir:    dir,
		ledger: store.NewLedger(filepath.Join(dir, "progress.jsonl"), filepath.Join(dir, "errors.jsonl")),
		dest:   &tu.FakeDestination{},
		res: &mockResolver{results: map[string]models.ResolveResult{
			"https://boxd.it/a": models.Found("https://boxd.it/a", 603, models.MediaMovie),
			"https://boxd.it/b": models.Found("https://boxd.it/b", 604, models.MediaMovie),
			"https://boxd.it/c": models.Found("https://boxd.it/c", 1396, models.MediaTV),
		}},
	}
}

func (f *fixture) pipeline(t *testing.T, opts Options) *Pipeline {
	t.Helper()
	lists, err := store.OpenListCache(filepath.Join(f.dir, "tmdb_lists.json"))
	if err != nil {
		t.Fatalf("open list cache: %v", err)
	}
	opts.Logger = shared.NewLogger(io.Discard)
	opts.Delay = 250 * time.Millisecond
	p := NewPipeline(f.res, sink.New(f.dest, lists, nil, opts.Logger), f.ledger, opts)
	p.sleep = func(ctx context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		return nil
	}
	return p
}

func watchlistEvents(t *testing.T, refs ...string) []*models.Event {
	t.Helper()
	evs := make([]*models.Event, 0, len(refs))
	for _, ref := range refs {
		ev, err := models.NewEvent(models.KindWatchlist, "2024-01-01", ref, models.WatchlistPayload{})
		if err != nil {
			t.Fatalf("NewEvent() error = %v", err)
		}
		evs = append(evs, ev)
	}
	return evs
}

func TestPipeline_Run(t *testing.T) {
	refs := []string{"https://boxd.it/a", "https://boxd.it/b", "https://boxd.it/c"}

	t.Run("Applies And Records Every Event", func(t *testing.T) {
		f := newFixture(t)
		result, err := f.pipeline(t, Options{Resume: true}).Run(context.Background(), watchlistEvents(t, refs...), nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if result.Total != 3 || result.Processed != 3 || result.Failed != 0 || result.Skipped != 0 {
			t.Errorf("unexpected result %+v", result)
		}

		want := []string{"watchlist(603,movie)", "watchlist(604,movie)", "watchlist(1396,tv)"}
		if got := f.dest.Ops(); strings.Join(got, " ") != strings.Join(want, " ") {
			t.Errorf("ops = %v, want %v", got, want)
		}

		entries, damaged, err := f.ledger.Successes()
		if err != nil || damaged != 0 {
			t.Fatalf("Successes() = %v, %d", err, damaged)
		}
		if len(entries) != 3 {
			t.Fatalf("expected 3 success entries, got %d", len(entries))
		}
		if entries[2].DestinationID != 1396 || entries[2].MediaType != models.MediaTV {
			t.Errorf("unexpected entry %+v", entries[2])
		}
	})

	t.Run("Resume Is Idempotent", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		if _, err := f.pipeline(t, Options{Resume: true}).Run(ctx, watchlistEvents(t, refs...), nil); err != nil {
			t.Fatalf("first Run() error = %v", err)
		}
		resolves, mutations, sleeps := f.res.calls, len(f.dest.Calls), len(f.sleeps)

		result, err := f.pipeline(t, Options{Resume: true}).Run(ctx, watchlistEvents(t, refs...), nil)
		if err != nil {
			t.Fatalf("second Run() error = %v", err)
		}

		if result.Skipped != 3 || result.Processed != 0 {
			t.Errorf("expected all skipped, got %+v", result)
		}
		if f.res.calls != resolves {
			t.Errorf("resume must not resolve, got %d extra calls", f.res.calls-resolves)
		}
		if len(f.dest.Calls) != mutations {
			t.Errorf("resume must not mutate, got %d extra calls", len(f.dest.Calls)-mutations)
		}
		if len(f.sleeps) != sleeps {
			t.Errorf("skipped events must not pace, got %d extra sleeps", len(f.sleeps)-sleeps)
		}
	})

	t.Run("Without Resume Everything Runs Again", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		f.pipeline(t, Options{Resume: true}).Run(ctx, watchlistEvents(t, refs...), nil)
		result, err := f.pipeline(t, Options{Resume: false}).Run(ctx, watchlistEvents(t, refs...), nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if result.Processed != 3 || f.dest.Count("watchlist") != 6 {
			t.Errorf("expected a full second pass, got %+v with %d calls", result, f.dest.Count("watchlist"))
		}
	})

	t.Run("Dry Run Persists Nothing", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		result, err := f.pipeline(t, Options{Resume: true, DryRun: true}).Run(ctx, watchlistEvents(t, refs...), nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if result.Processed != 3 {
			t.Errorf("dry run counts resolved events as processed, got %+v", result)
		}
		if len(f.dest.Calls) != 0 {
			t.Errorf("dry run must not mutate, got %v", f.dest.Ops())
		}
		tu.AssertFileMissing(t, filepath.Join(f.dir, "progress.jsonl"))

		second, err := f.pipeline(t, Options{Resume: true}).Run(ctx, watchlistEvents(t, refs...), nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if second.Processed != 3 || second.Skipped != 0 {
			t.Errorf("real run after dry run must process everything, got %+v", second)
		}
	})

	t.Run("Failures Are Isolated", func(t *testing.T) {
		f := newFixture(t)
		f.dest.FailOn = map[int]error{604: fmt.Errorf("%w: status 500", shared.ErrRemoteMutation)}
		f.res.errs = map[string]error{"https://boxd.it/d": fmt.Errorf("%w: reset", shared.ErrTransport)}

		evs := watchlistEvents(t, "https://boxd.it/a", "https://boxd.it/b", "https://boxd.it/d", "https://boxd.it/missing", "https://boxd.it/c")
		result, err := f.pipeline(t, Options{Resume: true}).Run(context.Background(), evs, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if result.Processed != 2 || result.Failed != 2 || result.Unresolved != 1 {
			t.Errorf("unexpected result %+v", result)
		}
		if len(f.sleeps) != 5 {
			t.Errorf("expected a pause after every attempted event, got %d", len(f.sleeps))
		}

		errs, err := f.ledger.Errors()
		if err != nil {
			t.Fatalf("Errors() error = %v", err)
		}
		if len(errs) != 3 {
			t.Fatalf("expected 3 error entries, got %d", len(errs))
		}
		if !strings.Contains(errs[0].Error, "status 500") {
			t.Errorf("expected apply failure first, got %q", errs[0].Error)
		}
		if errs[2].Error != "not_found" || errs[2].SourceReference != "https://boxd.it/missing" {
			t.Errorf("expected unresolved entry with status reason, got %+v", errs[2])
		}

		ids, _, _ := f.ledger.CompletedIDs()
		if len(ids) != 2 {
			t.Errorf("only applied events are completed, got %d", len(ids))
		}
	})

	t.Run("Pacing Uses Configured Delay", func(t *testing.T) {
		f := newFixture(t)
		f.pipeline(t, Options{}).Run(context.Background(), watchlistEvents(t, refs...), nil)

		for _, d := range f.sleeps {
			if d != 250*time.Millisecond {
				t.Errorf("expected 250ms pause, got %v", d)
			}
		}
	})

	t.Run("Cancelled Between Events", func(t *testing.T) {
		f := newFixture(t)
		ctx, cancel := context.WithCancel(context.Background())
		p := f.pipeline(t, Options{})
		p.sleep = func(ctx context.Context, d time.Duration) error {
			cancel()
			return nil
		}

		result, err := p.Run(ctx, watchlistEvents(t, refs...), nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if result.Processed != 1 {
			t.Errorf("in-flight event completes before stopping, got %+v", result)
		}
	})

	t.Run("Duplicate Events Apply Once", func(t *testing.T) {
		f := newFixture(t)
		evs := watchlistEvents(t, "https://boxd.it/a", "https://boxd.it/a")

		result, err := f.pipeline(t, Options{}).Run(context.Background(), evs, nil)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if result.Processed != 1 || result.Skipped != 1 {
			t.Errorf("expected the repeat to be skipped, got %+v", result)
		}
		if got := f.dest.Count("watchlist"); got != 1 {
			t.Errorf("expected a single remote mutation, got %d", got)
		}
		entries, _, _ := f.ledger.Successes()
		if len(entries) != 1 {
			t.Errorf("expected 1 success entry, got %d", len(entries))
		}
	})

	t.Run("Cancellation Waits For The Event In Flight", func(t *testing.T) {
		f := newFixture(t)
		logger := shared.NewLogger(io.Discard)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		lists, err := store.OpenListCache(filepath.Join(f.dir, "tmdb_lists.json"))
		if err != nil {
			t.Fatalf("open list cache: %v", err)
		}
		dest := &cancellingDestination{FakeDestination: f.dest, cancel: cancel}
		meta := &models.ListMeta{Name: "Favourites", URL: "https://letterboxd.com/neo/list/favourites/"}
		p := NewPipeline(f.res, sink.New(dest, lists, meta, logger), f.ledger, Options{Logger: logger})
		p.sleep = func(ctx context.Context, d time.Duration) error { return nil }

		rating := 9.0
		var evs []*models.Event
		for _, ref := range []string{"https://boxd.it/a", "https://boxd.it/b"} {
			ev, err := models.NewEvent(models.KindList, "", ref, models.ListPayload{Position: "1", Rating: &rating})
			if err != nil {
				t.Fatalf("NewEvent() error = %v", err)
			}
			evs = append(evs, ev)
		}

		result, err := p.Run(ctx, evs, nil)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}

		if result.Processed != 1 || result.Failed != 0 {
			t.Errorf("in-flight event must complete, got %+v", result)
		}
		if f.dest.Count("add_to_list") != 1 || f.dest.Count("rating") != 1 {
			t.Errorf("expected add and rating for the first event only, got %v", f.dest.Ops())
		}
		entries, _, _ := f.ledger.Successes()
		if len(entries) != 1 {
			t.Errorf("expected 1 success entry, got %d", len(entries))
		}
		if errs, _ := f.ledger.Errors(); len(errs) != 0 {
			t.Errorf("expected no error entries, got %+v", errs)
		}
	})

	t.Run("Ledger Write Failure Stops The Run", func(t *testing.T) {
		f := newFixture(t)
		progressPath := filepath.Join(f.dir, "progress")
		if err := os.Mkdir(progressPath, 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		f.ledger = store.NewLedger(progressPath, filepath.Join(f.dir, "errors.jsonl"))

		result, err := f.pipeline(t, Options{}).Run(context.Background(), watchlistEvents(t, refs...), nil)
		if !errors.Is(err, shared.ErrLedger) {
			t.Fatalf("expected ErrLedger, got %v", err)
		}
		if result.Processed != 0 || f.dest.Count("watchlist") != 1 {
			t.Errorf("expected the run to stop after the first apply, got %+v with %v", result, f.dest.Ops())
		}
	})

	t.Run("Requires Sink Unless Dry Run", func(t *testing.T) {
		f := newFixture(t)
		p := NewPipeline(f.res, nil, f.ledger, Options{Logger: shared.NewLogger(io.Discard)})
		if _, err := p.Run(context.Background(), nil, nil); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestPipeline_Progress(t *testing.T) {
	t.Run("Statuses", func(t *testing.T) {
		f := newFixture(t)
		f.res.results["https://boxd.it/a"] = f.res.results["https://boxd.it/a"].FromCache()
		f.res.results["https://boxd.it/x"] = models.Unresolved("https://boxd.it/x", models.StatusBlocked)

		progress := make(chan ProgressUpdate, 10)
		evs := watchlistEvents(t, "https://boxd.it/a", "https://boxd.it/x")
		if _, err := f.pipeline(t, Options{Resume: true}).Run(context.Background(), evs, progress); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		f.pipeline(t, Options{Resume: true}).Run(context.Background(), watchlistEvents(t, "https://boxd.it/a"), progress)
		close(progress)

		var got []string
		for u := range progress {
			got = append(got, fmt.Sprintf("%d/%d %s %s", u.Step, u.Total, u.Status, u.CacheTag()))
		}
		want := []string{"1/2 FOUND CACHED", "2/2 BLOCKED LIVE", "1/1 SKIPPED LIVE"}
		if strings.Join(got, "|") != strings.Join(want, "|") {
			t.Errorf("updates = %v, want %v", got, want)
		}
	})

	t.Run("Delivers Every Update", func(t *testing.T) {
		f := newFixture(t)
		p := f.pipeline(t, Options{})
		evs := watchlistEvents(t, "https://boxd.it/a", "https://boxd.it/b", "https://boxd.it/c")
		progressCh := make(chan ProgressUpdate)

		var steps []int
		consumed := make(chan struct{})
		go func() {
			for u := range progressCh {
				steps = append(steps, u.Step)
			}
			close(consumed)
		}()

		_, err := p.Run(context.Background(), evs, progressCh)
		close(progressCh)
		<-consumed

		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if fmt.Sprint(steps) != "[1 2 3]" {
			t.Errorf("expected one update per event, got %v", steps)
		}
	})
}

func TestPipeline_RatingsScenario(t *testing.T) {
	dir := t.TempDir()
	logger := shared.NewLogger(io.Discard)

	cache, err := store.OpenResolveCache(filepath.Join(dir, "resolve_cache.json"))
	if err != nil {
		t.Fatalf("open resolve cache: %v", err)
	}
	lists, err := store.OpenListCache(filepath.Join(dir, "tmdb_lists.json"))
	if err != nil {
		t.Fatalf("open list cache: %v", err)
	}

	pages := mockPages{
		"https://letterboxd.com/film/the-matrix": `<p class="text-link text-footer"><a href="https://www.themoviedb.org/movie/603/">TMDB</a></p>`,
	}
	r := resolver.NewMulti(resolver.NewSiteResolver(cache, pages, logger), nil)
	dest := &tu.FakeDestination{}
	ledger := store.NewLedger(filepath.Join(dir, "progress.jsonl"), filepath.Join(dir, "errors.jsonl"))

	ev, err := models.NewEvent(models.KindRating, "2024-01-01", "https://letterboxd.com/film/the-matrix/", models.RatingPayload{Rating: 4.5})
	if err != nil {
		t.Fatalf("NewEvent() error = %v", err)
	}

	p := NewPipeline(r, sink.New(dest, lists, nil, logger), ledger, Options{Resume: true, Logger: logger})
	result, err := p.Run(context.Background(), []*models.Event{ev}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Processed != 1 {
		t.Fatalf("expected 1 processed, got %+v", result)
	}
	if got := dest.Ops(); len(got) != 1 || got[0] != "rating(603,movie,9)" {
		t.Errorf("ops = %v", got)
	}

	entry, ok := cache.Lookup("https://letterboxd.com/film/the-matrix")
	if !ok || entry.Status != models.StatusFound || entry.DestinationID != 603 {
		t.Errorf("expected found cache entry, got %+v (%v)", entry, ok)
	}

	entries, _, _ := ledger.Successes()
	if len(entries) != 1 || entries[0].DestinationID != 603 || entries[0].MediaType != models.MediaMovie {
		t.Errorf("unexpected ledger %+v", entries)
	}
}
