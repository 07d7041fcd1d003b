package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Scheduler SchedulerConfig `toml:"scheduler"`
	Database  DatabaseConfig  `toml:"database"`
	Scripting ScriptingConfig `toml:"scripting"`
	Logging   LoggingConfig   `toml:"logging"`
}

type SchedulerConfig struct {
	Workers        int           `toml:"workers"`         // 0 = unbounded
	CascadeLimit   int           `toml:"cascade_limit"`   // 0 = default (100)
	ShutdownBudget time.Duration `toml:"shutdown_budget"` // post-run compute drain
	Manifest       string        `toml:"manifest"`        // schedule manifest path, optional
}

type DatabaseConfig struct {
	DSN             string        `toml:"dsn"` // empty disables the report sink
	MaxOpenConns    int           `toml:"max_open_conns"`
	MaxIdleConns    int           `toml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `toml:"conn_max_lifetime"`
}

type ScriptingConfig struct {
	Dir string `toml:"dir"` // lua scripts directory, optional
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration used when no file overrides it.
func Default() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			ShutdownBudget: 10 * time.Millisecond,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    4,
			MaxIdleConns:    1,
			ConnMaxLifetime: time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
