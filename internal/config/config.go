// Package config handles configuration loading for Cord. It supports XDG
// config paths, project-level overrides, and environment variables, with
// precedence env > project file > user file > defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for a Cord run.
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Runtime   RuntimeConfig   `mapstructure:"runtime"`
	Driver    DriverConfig    `mapstructure:"driver"`
}

// StoreConfig controls the SQLite-backed node store.
type StoreConfig struct {
	// Path is where the run's .db file lives. Empty means derive one
	// under the run directory.
	Path string `mapstructure:"path"`
}

// SchedulerConfig controls tick pacing and the concurrency cap.
type SchedulerConfig struct {
	MaxAgents  int           `mapstructure:"max_agents"`
	TickPeriod time.Duration `mapstructure:"tick_period"`
}

// RuntimeConfig controls the default agent runtime adapter.
type RuntimeConfig struct {
	Name         string  `mapstructure:"name"`
	Model        string  `mapstructure:"model"`
	MaxBudgetUSD float64 `mapstructure:"max_budget_usd"`
	// DefinitionsFile optionally points to a YAML file listing extra
	// runtime adapter definitions, supplementing the built-in registry.
	DefinitionsFile string `mapstructure:"definitions_file"`
}

// DriverConfig controls the top-level loop and human-input channel.
type DriverConfig struct {
	AnswersDir string `mapstructure:"answers_dir"`
	TUI        bool   `mapstructure:"tui"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
// 1. Environment variables (CORD_*)
// 2. Project config (.cord.yaml in current directory or a parent)
// 3. User config (~/.config/cord/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("CORD")
	v.AutomaticEnv()
	v.BindEnv("runtime.name", "CORD_RUNTIME")
	v.BindEnv("runtime.model", "CORD_MODEL")
	v.BindEnv("runtime.max_budget_usd", "CORD_MAX_BUDGET_USD")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file, bypassing the
// XDG/project search (used by --config and by tests).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config with built-in default values, bypassing any
// file or environment lookup.
func Default() *Config {
	return &Config{
		Store: StoreConfig{},
		Scheduler: SchedulerConfig{
			MaxAgents:  4,
			TickPeriod: 2 * time.Second,
		},
		Runtime: RuntimeConfig{
			Name:         "claude",
			Model:        "",
			MaxBudgetUSD: 2.0,
		},
		Driver: DriverConfig{},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scheduler.max_agents", 4)
	v.SetDefault("scheduler.tick_period", "2s")
	v.SetDefault("runtime.name", "claude")
	v.SetDefault("runtime.model", "")
	v.SetDefault("runtime.max_budget_usd", 2.0)
	v.SetDefault("driver.tui", false)
}

func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "cord")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "cord")
	}
	return filepath.Join(home, ".config", "cord")
}

// findProjectConfig searches for .cord.yaml in the current directory and
// its parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		configPath := filepath.Join(cwd, ".cord.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	return ""
}
