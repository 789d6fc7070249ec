package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/lbsync/internal/shared"
)

// SetupConfig writes the example config to the config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", r.configPath)
	r.writePlain("✓ Config written to %s\n", r.configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.tmdb.api_key (or export TMDB_API_KEY)\n")
	r.writePlain("2. Run 'lbsync auth tmdb' to create a session\n")
	r.writePlain("3. Run 'lbsync auth letterboxd' or 'lbsync setup letterboxd --curl-file <file>'\n")
	return nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	applied, err := shared.AppliedMigrations(db)
	if err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready at %s (%d migrations applied)\n", r.config.Database.Path, len(applied))
}

// SetupLetterboxd imports Letterboxd session cookies from a browser "Copy as cURL" command.
//
// The browser's User-Agent is saved too, since the session is tied to it.
func (r *Runner) SetupLetterboxd(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}

	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	var req *shared.CurlRequest
	var err error

	if curlFile != "" {
		req, err = shared.ParseCurlFile(curlFile)
		if err != nil {
			return fmt.Errorf("failed to parse cURL file: %w", err)
		}
		r.logger.Info("parsed cURL from file", "file", curlFile)
	} else {
		req, err = shared.ParseCurlCommand([]byte(curlCmd))
		if err != nil {
			return fmt.Errorf("failed to parse cURL command: %w", err)
		}
		r.logger.Info("parsed cURL command")
	}

	if ua := req.UserAgent(); ua != "" && ua != r.config.Credentials.Letterboxd.UserAgent {
		r.config.Credentials.Letterboxd.UserAgent = ua
		if err := r.saveConfig(); err != nil {
			r.logger.Warn("user agent not saved", "error", err)
		}
	}

	jar := r.config.Credentials.Letterboxd.CookieJar
	lb, err := r.letterboxd(jar)
	if err != nil {
		return err
	}

	lb.SetCookies(req.Cookies(""))
	if !lb.IsLoggedIn() {
		return fmt.Errorf("%w: the copied request carries no Letterboxd session cookie", shared.ErrAuthFailed)
	}

	if err := lb.SaveCookies(jar); err != nil {
		return err
	}

	r.logger.Info("letterboxd cookies saved", "path", jar)
	return r.writePlain("✓ Letterboxd session imported to %s\n", jar)
}
