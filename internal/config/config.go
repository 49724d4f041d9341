// Package config loads and saves the companion configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the full companion configuration.
type Config struct {
	Detection DetectionConfig `toml:"detection"`
	Elixir    ElixirConfig    `toml:"elixir"`
	Match     MatchConfig     `toml:"match"`
	Deck      DeckConfig      `toml:"deck"`
	Catalog   CatalogConfig   `toml:"catalog"`
	History   HistoryConfig   `toml:"history"`
	Server    ServerConfig    `toml:"server"`
	App       AppConfig       `toml:"app"`
}

// DetectionConfig tunes the deduplication filter and analysis pacing.
type DetectionConfig struct {
	ConfidenceThreshold float64 `toml:"confidence_threshold"` // Minimum detector confidence
	DuplicateWindow     string  `toml:"duplicate_window"`     // Anti-spam window (e.g. "2.5s")
	TickInterval        string  `toml:"tick_interval"`        // Time between analysis ticks
	QueueCapacity       int     `toml:"queue_capacity"`       // Frame queue size
}

// ElixirConfig tunes the elixir model. StartElixir is configuration on
// purpose: whether the opponent effectively opens at 5 or 10 is observed
// behavior, not a documented rule.
type ElixirConfig struct {
	StartElixir    float64 `toml:"start_elixir"`
	MaxElixir      float64 `toml:"max_elixir"`
	RegenRate      float64 `toml:"regen_rate"`       // Elixir per second
	DoubleRate     float64 `toml:"double_rate"`      // Elixir per second in double elixir
	DoubleElixirAt string  `toml:"double_elixir_at"` // Match clock of activation (e.g. "2m")
}

// MatchConfig tunes match boundary detection.
type MatchConfig struct {
	ResetThreshold string `toml:"reset_threshold"` // Debounce before believing a 3-3 reading
}

// DeckConfig tunes the deck model, snapshots and the archetype role lists.
// Empty lists fall back to the built-in defaults.
type DeckConfig struct {
	HandSize      int      `toml:"hand_size"`    // Cards shown in the predicted hand
	RecentPlays   int      `toml:"recent_plays"` // Trailing plays kept in snapshots
	WinConditions []string `toml:"win_conditions"`
	CycleCards    []string `toml:"cycle_cards"`
	SiegeCards    []string `toml:"siege_cards"`
}

// CatalogConfig locates the card catalog.
type CatalogConfig struct {
	Path  string `toml:"path"`  // JSON catalog file; empty uses the built-in table
	Watch bool   `toml:"watch"` // Reload the catalog when the file changes
}

// HistoryConfig controls match persistence.
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // SQLite database file
}

// ServerConfig controls the overlay WebSocket feed.
type ServerConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// AppConfig contains general application settings.
type AppConfig struct {
	DebugMode bool `toml:"debug_mode"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Detection: DetectionConfig{
			ConfidenceThreshold: 0.80,
			DuplicateWindow:     "2.5s",
			TickInterval:        "2s",
			QueueCapacity:       3,
		},
		Elixir: ElixirConfig{
			StartElixir:    5.0,
			MaxElixir:      10.0,
			RegenRate:      1.0,
			DoubleRate:     2.0,
			DoubleElixirAt: "2m",
		},
		Match: MatchConfig{
			ResetThreshold: "30s",
		},
		Deck: DeckConfig{
			HandSize:    4,
			RecentPlays: 5,
		},
		Catalog: CatalogConfig{
			Path:  "",
			Watch: true,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "", // Defaults to history.db next to the config file
		},
		Server: ServerConfig{
			Enabled: true,
			Addr:    "127.0.0.1:9317",
		},
		App: AppConfig{
			DebugMode: false,
		},
	}
}

// Dir returns the companion's configuration directory, creating it if
// needed.
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}

	dir := filepath.Join(homeDir, ".cr-companion")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return dir, nil
}

func configPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration from the default location. A missing file
// yields the defaults.
func Load() (*Config, error) {
	path, err := configPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile loads the configuration from path. A missing file yields the
// defaults.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the configuration to the default location.
func (c *Config) Save() error {
	path, err := configPath()
	if err != nil {
		return err
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	for name, value := range map[string]string{
		"duplicate window": c.Detection.DuplicateWindow,
		"tick interval":    c.Detection.TickInterval,
		"double elixir at": c.Elixir.DoubleElixirAt,
		"reset threshold":  c.Match.ResetThreshold,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
	}

	if c.Detection.ConfidenceThreshold < 0 || c.Detection.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold must be in [0, 1]: %v", c.Detection.ConfidenceThreshold)
	}
	if c.Elixir.MaxElixir <= 0 {
		return fmt.Errorf("max elixir must be positive: %v", c.Elixir.MaxElixir)
	}
	if c.Elixir.StartElixir < 0 || c.Elixir.StartElixir > c.Elixir.MaxElixir {
		return fmt.Errorf("start elixir must be in [0, %v]: %v", c.Elixir.MaxElixir, c.Elixir.StartElixir)
	}
	if c.Detection.QueueCapacity < 1 {
		return fmt.Errorf("queue capacity must be at least 1: %d", c.Detection.QueueCapacity)
	}
	return nil
}

// MustDuration parses a duration that Validate already vetted.
func MustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(fmt.Sprintf("invalid duration %q", s))
	}
	return d
}
