package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Commentary CommentaryConfig `yaml:"commentary"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Web        WebConfig        `yaml:"web"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type SimulationConfig struct {
	Interval        string  `yaml:"interval"`
	Seed            int64   `yaml:"seed"` // 0 means seed from the clock
	StartingBalance float64 `yaml:"starting_balance"`
	SnapshotEvery   int     `yaml:"snapshot_every_ticks"`
}

type CommentaryConfig struct {
	Enabled            bool   `yaml:"enabled"`
	APIKey             string `yaml:"api_key"`
	BaseURL            string `yaml:"base_url"`
	Model              string `yaml:"model"`
	TimeoutSeconds     int    `yaml:"timeout_seconds"`
	MinIntervalSeconds int    `yaml:"min_interval_seconds"`
}

type TelegramConfig struct {
	Enabled   bool    `yaml:"enabled"`
	BotToken  string  `yaml:"bot_token"`
	ChatID    int64   `yaml:"chat_id"`
	MinAbsPnL float64 `yaml:"min_abs_pnl"`
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads the config at path. An empty path yields the built-in defaults,
// so the arena runs without any file or secrets in place.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Simulation.Interval == "" {
		cfg.Simulation.Interval = "1500ms"
	}
	if cfg.Simulation.StartingBalance == 0 {
		cfg.Simulation.StartingBalance = 10000
	}
	if cfg.Simulation.SnapshotEvery == 0 {
		cfg.Simulation.SnapshotEvery = 40
	}
	if cfg.Commentary.BaseURL == "" {
		cfg.Commentary.BaseURL = "https://api.deepseek.com/v1"
	}
	if cfg.Commentary.Model == "" {
		cfg.Commentary.Model = "deepseek-chat"
	}
	if cfg.Commentary.TimeoutSeconds == 0 {
		cfg.Commentary.TimeoutSeconds = 30
	}
	if cfg.Commentary.MinIntervalSeconds == 0 {
		cfg.Commentary.MinIntervalSeconds = 60
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

func (c *Config) Validate() error {
	d, err := time.ParseDuration(c.Simulation.Interval)
	if err != nil {
		return fmt.Errorf("invalid simulation.interval %q: %w", c.Simulation.Interval, err)
	}
	if d <= 0 {
		return fmt.Errorf("simulation.interval must be positive, got %q", c.Simulation.Interval)
	}
	if c.Simulation.StartingBalance < 0 {
		return fmt.Errorf("simulation.starting_balance must not be negative")
	}
	if c.Commentary.Enabled && c.Commentary.APIKey == "" {
		return fmt.Errorf("commentary.api_key is required when commentary is enabled")
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}
	if f := c.Logging.Format; f != "text" && f != "json" {
		return fmt.Errorf("logging.format must be text or json, got %q", f)
	}
	return nil
}

func (c *Config) TickInterval() time.Duration {
	d, _ := time.ParseDuration(c.Simulation.Interval)
	return d
}

func (c *Config) CommentaryTimeout() time.Duration {
	return time.Duration(c.Commentary.TimeoutSeconds) * time.Second
}

func (c *Config) CommentaryMinInterval() time.Duration {
	return time.Duration(c.Commentary.MinIntervalSeconds) * time.Second
}
