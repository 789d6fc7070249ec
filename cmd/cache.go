package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/lbsync/internal/formatter"
	"github.com/desertthunder/lbsync/internal/models"
	"github.com/desertthunder/lbsync/internal/shared"
	"github.com/desertthunder/lbsync/internal/store"
)

// CacheStats prints resolve cache counts per status and the number of cached lists.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	cache, err := store.OpenResolveCache(r.config.Cache.ResolveCachePath())
	if err != nil {
		return err
	}
	lists, err := store.OpenListCache(r.config.Cache.ListCachePath())
	if err != nil {
		return err
	}

	return r.writePlain("%s\n", formatter.CacheStatsTable(cache.Stats(), lists.Len()))
}

// CacheLookup prints the cached outcome for one reference.
func (r *Runner) CacheLookup(ctx context.Context, cmd *cli.Command) error {
	ref := cmd.StringArg("reference")
	if ref == "" {
		return fmt.Errorf("%w: reference to look up", shared.ErrMissingArgument)
	}

	cache, err := store.OpenResolveCache(r.config.Cache.ResolveCachePath())
	if err != nil {
		return err
	}

	entry, ok := cache.Lookup(ref)
	if !ok {
		return r.writePlain("%s is not cached\n", store.NormalizeReference(ref))
	}

	if cmd.Bool("json") {
		return r.writeJSON(entry, true)
	}
	return r.writePlain("%s\n", formatter.CacheEntryTable(store.NormalizeReference(ref), entry))
}

// CacheClear drops resolve cache entries so their references are fetched again.
//
// Without --status every entry is removed.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	var statuses []models.ResolveStatus
	for _, s := range cmd.StringSlice("status") {
		status := models.ResolveStatus(s)
		if status != models.StatusError && !status.Stable() {
			return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidArgument, s)
		}
		statuses = append(statuses, status)
	}

	cache, err := store.OpenResolveCache(r.config.Cache.ResolveCachePath())
	if err != nil {
		return err
	}

	removed, err := cache.Purge(statuses...)
	if err != nil {
		return err
	}

	r.logger.Info("cache cleared", "removed", removed, "statuses", statuses)
	return r.writePlain("✓ Removed %d cached references\n", removed)
}
