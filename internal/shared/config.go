package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Sync        SyncConfig        `toml:"sync"`
	Cache       CacheConfig       `toml:"cache"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	TMDB       TMDBConfig       `toml:"tmdb"`
	Letterboxd LetterboxdConfig `toml:"letterboxd"`
}

// TMDBConfig contains TMDB API credentials.
//
// AccessToken is the v4 read access token; when present it is sent as a bearer token instead of the api_key query parameter.
// SessionID authorizes account mutations and is written back by `lbsync auth tmdb`.
type TMDBConfig struct {
	APIKey      string `toml:"api_key"`
	AccessToken string `toml:"access_token"`
	SessionID   string `toml:"session_id"`
	BaseURL     string `toml:"base_url"`
	AuthURL     string `toml:"auth_url"`
}

// LetterboxdConfig contains the cookie jar location and client identity for the source site.
type LetterboxdConfig struct {
	CookieJar string `toml:"cookie_jar"`
	UserAgent string `toml:"user_agent"`
	BaseURL   string `toml:"base_url"`
}

// SyncConfig controls pacing of the pipeline and the TMDB client.
type SyncConfig struct {
	RequestDelayMS        int     `toml:"request_delay_ms"`
	TMDBRequestsPerSecond float64 `toml:"tmdb_requests_per_second"`
	Language              string  `toml:"language"`
}

// CacheConfig contains the location of resolve/list caches and ledgers.
type CacheConfig struct {
	Dir string `toml:"dir"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains the local callback server settings used during TMDB authorization.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// RequestDelay returns the fixed inter-event pause.
func (s SyncConfig) RequestDelay() time.Duration {
	if s.RequestDelayMS < 0 {
		return 0
	}
	return time.Duration(s.RequestDelayMS) * time.Millisecond
}

// ResolveCachePath returns the path of the resolve cache file.
func (c CacheConfig) ResolveCachePath() string { return filepath.Join(c.Dir, "resolve_cache.json") }

// ListCachePath returns the path of the TMDB list cache file.
func (c CacheConfig) ListCachePath() string { return filepath.Join(c.Dir, "tmdb_lists.json") }

// ProgressLogPath returns the path of the success ledger.
func (c CacheConfig) ProgressLogPath() string { return filepath.Join(c.Dir, "progress.jsonl") }

// ErrorLogPath returns the path of the error ledger.
func (c CacheConfig) ErrorLogPath() string { return filepath.Join(c.Dir, "errors.jsonl") }

// CallbackURL returns the URL TMDB redirects to after a request token is approved.
func (s ServerConfig) CallbackURL() string {
	return fmt.Sprintf("http://%s:%d/callback", s.Host, s.Port)
}

// ApplyEnv overrides TMDB credentials from TMDB_API_KEY, TMDB_ACCESS_TOKEN and TMDB_SESSION_ID when set.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("TMDB_API_KEY"); v != "" {
		c.Credentials.TMDB.APIKey = v
	}
	if v := os.Getenv("TMDB_ACCESS_TOKEN"); v != "" {
		c.Credentials.TMDB.AccessToken = v
	}
	if v := os.Getenv("TMDB_SESSION_ID"); v != "" {
		c.Credentials.TMDB.SessionID = v
	}
}

// RequireTMDB reports whether enough TMDB credentials are configured to mutate an account.
func (c *Config) RequireTMDB() error {
	t := c.Credentials.TMDB
	if t.APIKey == "" && t.AccessToken == "" {
		return fmt.Errorf("%w: set credentials.tmdb.api_key or TMDB_API_KEY", ErrMissingCredentials)
	}
	if t.SessionID == "" {
		return fmt.Errorf("%w: no TMDB session, run 'lbsync auth tmdb'", ErrMissingCredentials)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep their defaults from the embedded example config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes config as TOML and writes it to path.
//
// The file holds a TMDB session id, so it is written owner-readable only.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
