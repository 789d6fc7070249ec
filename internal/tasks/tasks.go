package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/lbsync/internal/events"
	"github.com/desertthunder/lbsync/internal/models"
	"github.com/desertthunder/lbsync/internal/resolver"
	"github.com/desertthunder/lbsync/internal/shared"
	"github.com/desertthunder/lbsync/internal/store"
)

// Applier performs the remote mutation for a resolved event. Implemented by [sink.Sink].
type Applier interface {
	Apply(ctx context.Context, ev *models.Event) error
}

// RunResult counts event outcomes for one [Pipeline.Run].
type RunResult struct {
	Total      int // Events given to the run
	Skipped    int // Already completed in an earlier run
	Processed  int // Applied, or resolved during a dry run
	Failed     int // Resolve or apply failed
	Unresolved int // Resolved to not_found or blocked
}

// Counts converts the result for the run history.
func (r *RunResult) Counts() models.RunCounts {
	return models.RunCounts{
		Total:      r.Total,
		Applied:    r.Processed,
		Skipped:    r.Skipped,
		Failed:     r.Failed,
		Unresolved: r.Unresolved,
	}
}

// Options configures a [Pipeline].
type Options struct {
	Delay  time.Duration // Pause after each attempted event
	DryRun bool          // Resolve only; never apply or record success
	Resume bool          // Skip events already in the progress ledger
	Logger *log.Logger
}

// Pipeline drives events through resolve and apply, one at a time, in order.
type Pipeline struct {
	resolver resolver.Resolver
	sink     Applier
	ledger   *store.Ledger
	delay    time.Duration
	dryRun   bool
	resume   bool
	logger   *log.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewPipeline wires a pipeline. sink may be nil for dry runs.
func NewPipeline(r resolver.Resolver, sink Applier, ledger *store.Ledger, opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Pipeline{
		resolver: r,
		sink:     sink,
		ledger:   ledger,
		delay:    opts.Delay,
		dryRun:   opts.DryRun,
		resume:   opts.Resume,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// sendProgress delivers every update, so the caller must drain progress while Run is going.
func (p *Pipeline) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	progress <- update
}

// Run processes evs in order.
//
// Per-event failures are written to the error ledger and never stop the run. Run
// returns early only when ctx is cancelled between events or during the pace, or
// when the ledger cannot be read or written ([shared.ErrLedger]); the counts so far
// are returned with the error. Cancellation never reaches the event in flight: its
// resolve and apply calls run to completion.
//
// Every update is sent on progress, which must be drained by the caller or be nil.
func (p *Pipeline) Run(ctx context.Context, evs []*models.Event, progress chan<- ProgressUpdate) (*RunResult, error) {
	if p.sink == nil && !p.dryRun {
		return nil, fmt.Errorf("%w: pipeline has no sink", shared.ErrInvalidArgument)
	}

	completed := map[string]struct{}{}
	if p.resume {
		ids, damaged, err := p.ledger.CompletedIDs()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrLedger, err)
		}
		if damaged > 0 {
			p.logger.Warn("ignored damaged progress ledger lines", "count", damaged)
		}
		completed = ids
	}

	result := &RunResult{Total: len(evs)}
	total := len(evs)
	eventCtx := context.WithoutCancel(ctx)

	for i, ev := range evs {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		step := i + 1
		id := events.Fingerprint(ev)

		if _, done := completed[id]; done {
			result.Skipped++
			p.sendProgress(progress, skippedUpdate(step, total, ev.Reference()))
			continue
		}

		applied, err := p.process(eventCtx, id, ev, step, total, result, progress)
		if err != nil {
			return result, err
		}
		if applied {
			completed[id] = struct{}{}
		}

		if err := p.sleep(ctx, p.delay); err != nil {
			return result, err
		}
	}

	p.logger.Info("run finished",
		"total", result.Total,
		"processed", result.Processed,
		"skipped", result.Skipped,
		"unresolved", result.Unresolved,
		"failed", result.Failed,
		"dry_run", p.dryRun,
	)
	return result, nil
}

// process resolves and applies one event and reports whether a success was recorded.
// Only ledger write failures are returned.
func (p *Pipeline) process(ctx context.Context, id string, ev *models.Event, step, total int, result *RunResult, progress chan<- ProgressUpdate) (bool, error) {
	logger := p.logger.With("kind", ev.Kind(), "ref", ev.Reference())

	res, err := p.resolver.Resolve(ctx, ev.Reference())
	if err != nil {
		logger.Warn("resolve failed", "err", err)
		result.Failed++
		p.sendProgress(progress, errorUpdate(step, total, ev.Reference(), false))
		return false, p.recordError(ev, err)
	}

	p.sendProgress(progress, resolvedUpdate(step, total, res))

	if !res.OK() {
		logger.Debug("unresolved", "status", res.Status)
		result.Unresolved++
		if err := p.ledger.RecordUnresolved(ev, res.Status); err != nil {
			return false, fmt.Errorf("%w: %w", shared.ErrLedger, err)
		}
		return false, nil
	}

	if p.dryRun {
		result.Processed++
		return false, nil
	}

	if err := ev.Bind(res.DestinationID, res.MediaType); err != nil {
		result.Failed++
		p.sendProgress(progress, errorUpdate(step, total, ev.Reference(), res.Cached))
		return false, p.recordError(ev, err)
	}

	if err := p.sink.Apply(ctx, ev); err != nil {
		logger.Warn("apply failed", "id", res.DestinationID, "err", err)
		result.Failed++
		p.sendProgress(progress, errorUpdate(step, total, ev.Reference(), res.Cached))
		return false, p.recordError(ev, err)
	}

	if err := p.ledger.RecordSuccess(id, ev); err != nil {
		return false, fmt.Errorf("%w: %w", shared.ErrLedger, err)
	}

	result.Processed++
	logger.Debug("applied", "id", res.DestinationID, "media_type", res.MediaType)
	return true, nil
}

func (p *Pipeline) recordError(ev *models.Event, cause error) error {
	if err := p.ledger.RecordError(ev, cause); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrLedger, err)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
