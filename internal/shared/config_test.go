package shared

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != ".cache/lbsync.db" {
			t.Errorf("expected database path .cache/lbsync.db, got %s", config.Database.Path)
		}

		if config.Server.Port != 3000 {
			t.Errorf("expected server port 3000, got %d", config.Server.Port)
		}

		if config.Credentials.TMDB.BaseURL != "https://api.themoviedb.org/3" {
			t.Errorf("expected tmdb base URL https://api.themoviedb.org/3, got %s", config.Credentials.TMDB.BaseURL)
		}

		if config.Sync.RequestDelay() != 500*time.Millisecond {
			t.Errorf("expected request delay 500ms, got %v", config.Sync.RequestDelay())
		}

		if config.Credentials.Letterboxd.CookieJar != "lb_cookies.json" {
			t.Errorf("expected cookie jar lb_cookies.json, got %s", config.Credentials.Letterboxd.CookieJar)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[database]
path = "/custom/path.db"

[sync]
request_delay_ms = 250

[credentials.tmdb]
api_key = "test_api_key"
session_id = "test_session"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}

		if config.Sync.RequestDelay() != 250*time.Millisecond {
			t.Errorf("expected request delay 250ms, got %v", config.Sync.RequestDelay())
		}

		if config.Credentials.TMDB.APIKey != "test_api_key" {
			t.Errorf("expected api_key test_api_key, got %s", config.Credentials.TMDB.APIKey)
		}

		if config.Cache.Dir != ".cache" {
			t.Errorf("expected unset cache dir to keep default, got %s", config.Cache.Dir)
		}
	})

	t.Run("SaveConfig round trip", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		config := DefaultConfig()
		config.Credentials.TMDB.SessionID = "abc123"

		if err := SaveConfig(configPath, config); err != nil {
			t.Fatalf("failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load saved config: %v", err)
		}

		if loaded.Credentials.TMDB.SessionID != "abc123" {
			t.Errorf("expected session id abc123, got %s", loaded.Credentials.TMDB.SessionID)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("TMDB_API_KEY", "env_key")
		t.Setenv("TMDB_SESSION_ID", "env_session")

		config := DefaultConfig()
		config.ApplyEnv()

		if config.Credentials.TMDB.APIKey != "env_key" {
			t.Errorf("expected api key from env, got %s", config.Credentials.TMDB.APIKey)
		}
		if config.Credentials.TMDB.SessionID != "env_session" {
			t.Errorf("expected session id from env, got %s", config.Credentials.TMDB.SessionID)
		}
		if err := config.RequireTMDB(); err != nil {
			t.Errorf("expected credentials to be sufficient, got %v", err)
		}
	})

	t.Run("RequireTMDB without session", func(t *testing.T) {
		config := DefaultConfig()
		config.Credentials.TMDB.APIKey = "key"

		if err := config.RequireTMDB(); err == nil {
			t.Error("expected error when session id is missing")
		}
	})

	t.Run("cache paths", func(t *testing.T) {
		c := CacheConfig{Dir: "state"}
		if got := c.ProgressLogPath(); got != filepath.Join("state", "progress.jsonl") {
			t.Errorf("unexpected progress path %s", got)
		}
		if got := c.ListCachePath(); got != filepath.Join("state", "tmdb_lists.json") {
			t.Errorf("unexpected list cache path %s", got)
		}
	})
}
