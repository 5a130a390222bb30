// Package support loads the configuration of a recruit runtime and the
// process definitions it is seeded with.
package support

import (
	"errors"
	"fmt"
	"os"
	"time"

	"dario.cat/mergo"
	"github.com/project-flogo/recruit/linkage"
	"github.com/project-flogo/recruit/state"
	"gopkg.in/yaml.v3"
)

const (
	DriverMemory   = "memory"
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

// Config is the configuration of a recruit runtime
type Config struct {
	Store     StoreConfig             `yaml:"store"`
	Recording RecordingConfig         `yaml:"recording"`
	Breaker   linkage.BreakerSettings `yaml:"breaker"`
	Inspect   InspectConfig           `yaml:"inspect"`

	// Processes are the uris of definitions imported at startup
	Processes []string `yaml:"processes"`
}

type StoreConfig struct {
	Driver   string         `yaml:"driver"`
	Badger   BadgerConfig   `yaml:"badger"`
	Postgres PostgresConfig `yaml:"postgres"`
}

type BadgerConfig struct {
	Path       string `yaml:"path"`
	InMemory   bool   `yaml:"inMemory"`
	MaxRetries int    `yaml:"maxRetries"`
}

type PostgresConfig struct {
	URL             string        `yaml:"url"`
	PingTimeout     time.Duration `yaml:"pingTimeout"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	ConnMaxIdleTime time.Duration `yaml:"connMaxIdleTime"`
}

type RecordingConfig struct {
	Mode string `yaml:"mode"`
}

type InspectConfig struct {
	Enabled         bool `yaml:"enabled"`
	Port            int  `yaml:"port"`
	BottleneckLimit int  `yaml:"bottleneckLimit"`
}

// DefaultConfig returns the values used for everything left unset
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: DriverMemory,
			Badger: BadgerConfig{MaxRetries: 10},
			Postgres: PostgresConfig{
				PingTimeout:     2 * time.Second,
				MaxOpenConns:    10,
				MaxIdleConns:    5,
				ConnMaxLifetime: 30 * time.Minute,
				ConnMaxIdleTime: 5 * time.Minute,
			},
		},
		Recording: RecordingConfig{Mode: string(state.RecordingModeOff)},
		Breaker:   linkage.DefaultBreakerSettings(),
		Inspect:   InspectConfig{Port: 8080, BottleneckLimit: 5},
	}
}

// LoadConfig reads the yaml file at path, an empty path skips the file.
// Environment overrides are applied next and defaults fill what is left.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("error reading config '%s': %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config '%s': %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if err := mergo.Merge(cfg, DefaultConfig()); err != nil {
		return nil, fmt.Errorf("error applying config defaults: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RecordingMode returns the parsed recording mode
func (c *Config) RecordingMode() (state.RecordingMode, error) {
	return state.ToRecordingMode(c.Recording.Mode)
}

func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverMemory:
	case DriverBadger:
		if !c.Store.Badger.InMemory && c.Store.Badger.Path == "" {
			return errors.New("badger store requires a path or in-memory mode")
		}
	case DriverPostgres:
		if c.Store.Postgres.URL == "" {
			return errors.New("postgres store requires a url")
		}
	default:
		return fmt.Errorf("unsupported store driver '%s'", c.Store.Driver)
	}

	if _, err := c.RecordingMode(); err != nil {
		return err
	}
	if c.Inspect.Port < 0 || c.Inspect.Port > 65535 {
		return fmt.Errorf("invalid inspect port %d", c.Inspect.Port)
	}
	return nil
}

func envError(name string, err error) error {
	if err == nil {
		return fmt.Errorf("invalid value of %s", name)
	}
	return fmt.Errorf("invalid value of %s: %w", name, err)
}
