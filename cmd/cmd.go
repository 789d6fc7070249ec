// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/lbsync/internal/formatter"
)

// syncCommand imports a Letterboxd or IMDb export.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "sync",
		Usage:     "Import a Letterboxd or IMDb CSV export into TMDB",
		ArgsUsage: "<watchlist|likes|ratings|watched|list|imdb-list> <csv>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "mode"},
			&cli.StringArg{Name: "csv"},
		},
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Resolve references without changing the TMDB account",
			},
			&cli.BoolFlag{
				Name:  "no-resume",
				Usage: "Process events already recorded as applied",
			},
			&cli.StringFlag{
				Name:  "title",
				Usage: "Destination list name (list and imdb-list modes)",
			},
			&cli.StringFlag{
				Name:  "cookies",
				Usage: "Letterboxd cookie jar to use instead of the configured one",
			},
		},
		Action: r.Sync,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:   "tmdb",
				Usage:  "Approve lbsync for your TMDB account and store the session id",
				Action: r.AuthTMDB,
			},
			{
				Name:  "letterboxd",
				Usage: "Sign in to Letterboxd and save the session cookies",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "username",
						Aliases: []string{"u"},
						Usage:   "Letterboxd username or email",
					},
				},
				Action: r.AuthLetterboxd,
			},
			{
				Name:   "status",
				Usage:  "Check the TMDB session and Letterboxd cookies",
				Action: r.AuthStatus,
			},
		},
	}
}

// setupCommand handles setup operations for config, database and authentication.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example config file",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the run history database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:    "letterboxd",
				Aliases: []string{"lb"},
				Usage:   "Import Letterboxd cookies from browser request",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools (Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to .sh file containing cURL command",
					},
				},
				Action: r.SetupLetterboxd,
			},
		},
	}
}

// cacheCommand inspects and prunes the resolve cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and prune the resolve cache",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cached references by status",
				Action: r.CacheStats,
			},
			{
				Name:  "lookup",
				Usage: "Show the cached outcome for a reference",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "reference"},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.CacheLookup,
			},
			{
				Name:  "clear",
				Usage: "Remove cached references so they are resolved again",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "status",
						Usage: "Only remove entries with this status (found, not_found, blocked); repeatable",
					},
				},
				Action: r.CacheClear,
			},
		},
	}
}

// errorsCommand reports per-event failures from the error ledger
func errorsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "errors",
		Usage: "Show events that failed or could not be resolved",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format: table, csv, markdown or json",
				Value:   string(formatter.FormatTable),
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the report to a file",
			},
		},
		Action: r.Errors,
	}
}

// historyCommand lists recorded sync runs
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List previous sync runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs to show",
				Value: 20,
			},
			&cli.StringFlag{
				Name:  "mode",
				Usage: "Only show runs of this mode",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only show runs with this status (running, completed, failed, cancelled)",
			},
		},
		Action: r.History,
	}
}
