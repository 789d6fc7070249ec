package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/lbsync/internal/repositories"
	"github.com/desertthunder/lbsync/internal/services"
	"github.com/desertthunder/lbsync/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		syncCommand, authCommand, setupCommand, cacheCommand, errorsCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig runs before every command. A missing config file leaves the defaults in place.
func (r *Runner) loadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if r.configPath != "" {
		config, err := shared.LoadConfig(r.configPath)
		switch {
		case err == nil:
			r.config = config
		case errors.Is(err, fs.ErrNotExist):
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		default:
			return ctx, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
		}
	}

	r.config.ApplyEnv()

	level := shared.ParseLogLevel(r.config.Log.Level)
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)

	return ctx, nil
}

// tmdb builds a TMDB client from the loaded config.
func (r *Runner) tmdb() (*services.TMDBService, error) {
	t := r.config.Credentials.TMDB
	return services.NewTMDBService(services.TMDBOptions{
		BaseURL:           t.BaseURL,
		AuthURL:           t.AuthURL,
		APIKey:            t.APIKey,
		AccessToken:       t.AccessToken,
		SessionID:         t.SessionID,
		Language:          r.config.Sync.Language,
		RequestsPerSecond: r.config.Sync.TMDBRequestsPerSecond,
		HTTPClient:        r.httpClient,
		Logger:            shared.WithLogger(r.logger, "service", "tmdb"),
	})
}

// letterboxd builds a Letterboxd client and loads the saved cookie jar at jarPath.
func (r *Runner) letterboxd(jarPath string) (*services.LetterboxdService, error) {
	lb := r.config.Credentials.Letterboxd
	svc, err := services.NewLetterboxdService(services.LetterboxdOptions{
		BaseURL:   lb.BaseURL,
		UserAgent: lb.UserAgent,
		Transport: r.httpClient.Transport,
		Logger:    shared.WithLogger(r.logger, "service", "letterboxd"),
	})
	if err != nil {
		return nil, err
	}

	found, err := svc.LoadCookies(jarPath)
	if err != nil {
		return nil, err
	}
	if !found {
		r.logger.Debug("no saved letterboxd cookies", "path", jarPath)
	}
	return svc, nil
}

// openRuns opens the run-history database. Callers close the returned db.
func (r *Runner) openRuns() (*sql.DB, *repositories.RunRepository, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, nil, err
	}
	return db, repositories.NewRunRepository(db), nil
}

func (r *Runner) saveConfig() error {
	if r.configPath == "" {
		return fmt.Errorf("%w: no config path, run 'lbsync setup config' first", shared.ErrMissingConfig)
	}
	return shared.SaveConfig(r.configPath, r.config)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
