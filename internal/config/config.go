package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"ghsearch/internal/alert"
	"ghsearch/internal/debounce"
	"ghsearch/internal/eventbus"
	"ghsearch/internal/github"
)

// TokenEnv names the environment variable consulted when no token is configured
const TokenEnv = "GITHUB_TOKEN"

// Config represents the application configuration
type Config struct {
	Version int            `toml:"version"`
	Search  SearchSettings `toml:"search"`
	Timing  TimingSettings `toml:"timing"`
	Log     LogSettings    `toml:"log"`
	UI      UISettings     `toml:"ui"`
}

// SearchSettings configures the search client
type SearchSettings struct {
	Endpoint          string `toml:"endpoint"`
	Token             string `toml:"token,omitempty"`
	UserAgent         string `toml:"user_agent"`
	RequestsPerMinute int    `toml:"requests_per_minute"` // 0 disables client-side limiting
}

// TimingSettings holds the debounce and alert windows in milliseconds
type TimingSettings struct {
	DebounceMS int `toml:"debounce_ms"`
	AlertMS    int `toml:"alert_ms"`
}

// LogSettings configures the log file
type LogSettings struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// UISettings represents UI-related configuration
type UISettings struct {
	Placeholder string `toml:"placeholder"`
	Title       string `toml:"title"`
}

// DebounceDelay returns the configured quiet period
func (c *Config) DebounceDelay() time.Duration {
	return time.Duration(c.Timing.DebounceMS) * time.Millisecond
}

// AlertWindow returns how long an alert stays visible
func (c *Config) AlertWindow() time.Duration {
	return time.Duration(c.Timing.AlertMS) * time.Millisecond
}

// Validate reports every invalid setting
func (c *Config) Validate() error {
	var errs []error
	if c.Timing.DebounceMS <= 0 {
		errs = append(errs, fmt.Errorf("timing.debounce_ms must be positive, got %d", c.Timing.DebounceMS))
	}
	if c.Timing.AlertMS <= 0 {
		errs = append(errs, fmt.Errorf("timing.alert_ms must be positive, got %d", c.Timing.AlertMS))
	}
	if c.Search.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("search.requests_per_minute must not be negative, got %d", c.Search.RequestsPerMinute))
	}
	if c.Search.Endpoint != "" {
		u, err := url.Parse(c.Search.Endpoint)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("search.endpoint: %w", err))
		case !u.IsAbs() || u.Host == "":
			errs = append(errs, fmt.Errorf("search.endpoint must be an absolute URL, got %q", c.Search.Endpoint))
		}
	}
	return errors.Join(errs...)
}

// applyEnv fills settings the file left empty from the environment
func (c *Config) applyEnv() {
	if c.Search.Token == "" {
		c.Search.Token = os.Getenv(TokenEnv)
	}
}

// ConfigService handles configuration management
type ConfigService interface {
	Load() (*Config, error)
	Save(config *Config) error
	LoadFromPath(path string) (*Config, error)
	SaveToPath(config *Config, path string) error
	Path() string
}

// configService is the concrete implementation
type configService struct {
	bus      eventbus.EventBus
	filePath string
}

// DefaultPath returns the per-user config file location
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		configDir, err = os.UserHomeDir()
		if err != nil {
			configDir = "."
		}
		configDir = filepath.Join(configDir, ".config")
	}
	return filepath.Join(configDir, "ghsearch", "config.toml")
}

// NewConfigService creates a config service reading path, or DefaultPath when empty
func NewConfigService(path string) ConfigService {
	if path == "" {
		path = DefaultPath()
	}
	return &configService{filePath: path}
}

// NewConfigServiceWithBus creates a config service with event bus support
func NewConfigServiceWithBus(path string, bus eventbus.EventBus) ConfigService {
	cs := NewConfigService(path).(*configService)
	cs.bus = bus
	return cs
}

func (cs *configService) Path() string {
	return cs.filePath
}

// Load reads the service's file. A missing file yields the defaults.
func (cs *configService) Load() (*Config, error) {
	var cfg *Config
	if _, err := os.Stat(cs.filePath); errors.Is(err, os.ErrNotExist) {
		cfg = DefaultConfig()
		cfg.applyEnv()
	} else {
		cfg, err = cs.LoadFromPath(cs.filePath)
		if err != nil {
			return nil, err
		}
	}

	if cs.bus != nil {
		cs.bus.Publish(eventbus.ConfigLoadedEvent{
			Path:     cs.filePath,
			Endpoint: cfg.Search.Endpoint,
		})
	}
	return cfg, nil
}

// Save writes config to the service's file
func (cs *configService) Save(config *Config) error {
	if err := cs.SaveToPath(config, cs.filePath); err != nil {
		return err
	}
	if cs.bus != nil {
		cs.bus.Publish(eventbus.ConfigSavedEvent{Path: cs.filePath})
	}
	return nil
}

// LoadFromPath loads configuration from a specific path. Settings the file
// omits keep their defaults.
func (cs *configService) LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveToPath saves configuration to a specific path
func (cs *configService) SaveToPath(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file may carry a token
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: 1,
		Search: SearchSettings{
			Endpoint:  github.DefaultEndpoint,
			UserAgent: github.DefaultUserAgent,
		},
		Timing: TimingSettings{
			DebounceMS: int(debounce.DefaultDelay / time.Millisecond),
			AlertMS:    int(alert.DefaultWindow / time.Millisecond),
		},
		Log: LogSettings{
			Level: "info",
			File:  "ghsearch.log",
		},
		UI: UISettings{
			Placeholder: "Search GitHub users",
			Title:       "GitHub user search",
		},
	}
}
