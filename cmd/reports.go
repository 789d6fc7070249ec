package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/lbsync/internal/formatter"
	"github.com/desertthunder/lbsync/internal/store"
)

// Errors renders the error ledger.
func (r *Runner) Errors(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	ledger := store.NewLedger(r.config.Cache.ProgressLogPath(), r.config.Cache.ErrorLogPath())
	entries, err := ledger.Errors()
	if err != nil {
		return err
	}

	if output := cmd.String("output"); output != "" {
		path, err := formatter.WriteErrorReport(entries, format, output)
		if err != nil {
			return err
		}
		return r.writePlain("✓ Wrote %d entries to %s\n", len(entries), path)
	}

	if len(entries) == 0 && format == formatter.FormatTable {
		return r.writePlain("No errors recorded\n")
	}

	data, err := formatter.ErrorReport(entries, format)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// History lists recorded sync runs, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	db, runs, err := r.openRuns()
	if err != nil {
		return err
	}
	defer db.Close()

	list, err := runs.List(map[string]any{
		"limit":  int(cmd.Int("limit")),
		"mode":   cmd.String("mode"),
		"status": cmd.String("status"),
	})
	if err != nil {
		return err
	}

	if len(list) == 0 {
		return r.writePlain("No sync runs recorded\n")
	}
	return r.writePlain("%s\n", formatter.RunsTable(list))
}
