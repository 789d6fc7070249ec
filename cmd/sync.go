package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/desertthunder/lbsync/internal/events"
	"github.com/desertthunder/lbsync/internal/models"
	"github.com/desertthunder/lbsync/internal/repositories"
	"github.com/desertthunder/lbsync/internal/resolver"
	"github.com/desertthunder/lbsync/internal/services"
	"github.com/desertthunder/lbsync/internal/shared"
	"github.com/desertthunder/lbsync/internal/sink"
	"github.com/desertthunder/lbsync/internal/store"
	"github.com/desertthunder/lbsync/internal/tasks"
	"github.com/desertthunder/lbsync/internal/ui"
)

// syncRequest is a parsed `lbsync sync` invocation.
type syncRequest struct {
	mode    events.Mode
	csvPath string
	title   string
	cookies string
	dryRun  bool
	resume  bool
}

// Sync imports one export file into the TMDB account.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	mode, err := events.ParseMode(cmd.StringArg("mode"))
	if err != nil {
		return err
	}

	csvPath := cmd.StringArg("csv")
	if csvPath == "" {
		return fmt.Errorf("%w: path to the exported CSV", shared.ErrMissingArgument)
	}

	req := syncRequest{
		mode:    mode,
		csvPath: csvPath,
		title:   cmd.String("title"),
		cookies: cmd.String("cookies"),
		dryRun:  cmd.Bool("dry-run"),
		resume:  !cmd.Bool("no-resume"),
	}

	res, err := r.runSync(ctx, req)
	if res != nil {
		r.writePlain("\n%s", ui.Summary(res, req.dryRun))
	}

	switch {
	case errors.Is(err, context.Canceled):
		r.logger.Warn("sync interrupted, run the same command again to resume")
		return nil
	case errors.Is(err, shared.ErrLedger):
		r.logger.Error("sync stopped, progress could not be recorded", "dir", r.config.Cache.Dir)
	}
	return err
}

// runSync loads the export, wires stores, resolvers and sink, and runs the pipeline while
// rendering progress. The run is recorded in the history database when it can be opened.
func (r *Runner) runSync(ctx context.Context, req syncRequest) (*tasks.RunResult, error) {
	loaded, rows, err := events.LoadRows(req.csvPath, req.mode.IsListExport())
	if err != nil {
		return nil, err
	}

	evs, err := events.Parse(req.mode, rows)
	if err != nil {
		return nil, err
	}

	meta, err := req.mode.ListMeta(loaded, req.title)
	if err != nil {
		return nil, err
	}

	tmdb, err := r.destination(req)
	if err != nil {
		return nil, err
	}

	cacheCfg := r.config.Cache
	if err := os.MkdirAll(cacheCfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	cache, err := store.OpenResolveCache(cacheCfg.ResolveCachePath())
	if err != nil {
		return nil, err
	}
	lists, err := store.OpenListCache(cacheCfg.ListCachePath())
	if err != nil {
		return nil, err
	}
	ledger := store.NewLedger(cacheCfg.ProgressLogPath(), cacheCfg.ErrorLogPath())

	lb, err := r.letterboxd(firstNonEmpty(req.cookies, r.config.Credentials.Letterboxd.CookieJar))
	if err != nil {
		return nil, err
	}
	if !lb.IsLoggedIn() {
		r.logger.Warn("no letterboxd session, film pages are fetched anonymously")
	}

	logger := r.runLogger()

	var imdb resolver.Resolver
	var applier tasks.Applier
	if tmdb != nil {
		imdb = resolver.NewExternalIDResolver(tmdb)
		applier = sink.New(tmdb, lists, meta, shared.WithLogger(logger, "component", "sink"))
	}

	pipeline := tasks.NewPipeline(
		resolver.NewMulti(resolver.NewSiteResolver(cache, lb, shared.WithLogger(logger, "component", "resolver")), imdb),
		applier,
		ledger,
		tasks.Options{
			Delay:  r.config.Sync.RequestDelay(),
			DryRun: req.dryRun,
			Resume: req.resume,
			Logger: logger,
		},
	)

	run := models.NewSyncRun(string(req.mode), req.csvPath, req.dryRun, req.resume)
	runs, closeRuns := r.startRun(run)
	defer closeRuns()

	logger.Info("sync started", "mode", req.mode, "csv", req.csvPath, "events", len(evs), "dry_run", req.dryRun, "resume", req.resume)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	progress := make(chan tasks.ProgressUpdate, 32)
	renderer := ui.NewProgressRenderer(r.output, r.isTerminal())
	done := make(chan struct{})
	go func() {
		renderer.Consume(progress)
		close(done)
	}()

	res, runErr := pipeline.Run(ctx, evs, progress)
	close(progress)
	<-done

	r.finishRun(runs, run, res, runErr)
	return res, runErr
}

// destination builds the TMDB client. A dry run of a source-site export may go without
// TMDB credentials; every other run needs them.
func (r *Runner) destination(req syncRequest) (*services.TMDBService, error) {
	tmdb, err := r.tmdb()
	if err != nil {
		if req.dryRun && req.mode != events.ModeIMDbList {
			r.logger.Warn("no TMDB credentials, dry run resolves letterboxd references only", "error", err)
			return nil, nil
		}
		return nil, err
	}

	if !req.dryRun {
		if err := r.config.RequireTMDB(); err != nil {
			return nil, err
		}
	}
	return tmdb, nil
}

// runLogger sends pipeline logs to the configured log file so the progress line keeps the terminal.
func (r *Runner) runLogger() *log.Logger {
	path := r.config.Log.File
	if path == "" {
		return r.logger
	}

	logger, err := shared.NewFileLogger(path)
	if err != nil {
		r.logger.Warn("logging to stderr", "error", err)
		return r.logger
	}
	logger.SetLevel(r.logger.GetLevel())
	return logger
}

// startRun records a running sync. History is informational, so an unavailable
// database only costs the record.
func (r *Runner) startRun(run *models.SyncRun) (*repositories.RunRepository, func()) {
	db, runs, err := r.openRuns()
	if err != nil {
		r.logger.Warn("run history unavailable", "error", err)
		return nil, func() {}
	}

	if err := runs.Create(run); err != nil {
		r.logger.Warn("failed to record run", "error", err)
		db.Close()
		return nil, func() {}
	}
	return runs, func() { db.Close() }
}

func (r *Runner) finishRun(runs *repositories.RunRepository, run *models.SyncRun, res *tasks.RunResult, runErr error) {
	if runs == nil {
		return
	}

	var counts models.RunCounts
	if res != nil {
		counts = res.Counts()
	}

	status := models.RunCompleted
	switch {
	case errors.Is(runErr, context.Canceled):
		status = models.RunCancelled
	case runErr != nil:
		status = models.RunFailed
	}

	run.Finish(status, counts, runErr)
	if err := runs.Update(run); err != nil {
		r.logger.Warn("failed to update run", "id", run.ID(), "error", err)
	}
}

func (r *Runner) isTerminal() bool {
	f, ok := r.output.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
