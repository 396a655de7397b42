// Package config loads server configuration from YAML and the environment,
// and strategy configurations from JSON or YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values.
const (
	EnvAddr          = "MARKSIX_ADDR"
	EnvDataDir       = "MARKSIX_DATA_DIR"
	EnvVerify        = "MARKSIX_VERIFY"
	EnvStrictTokens  = "MARKSIX_STRICT_TOKENS"
	EnvSharedSession = "MARKSIX_SHARED_SESSION"
	EnvPostgresDSN   = "PG_DSN"
	EnvClickhouseDSN = "CLICKHOUSE_DSN"
)

// Config is the server and tool configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Data       DataConfig       `yaml:"data"`
	Backtest   BacktestConfig   `yaml:"backtest"`
	WebSocket  WebSocketConfig  `yaml:"websocket"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Clickhouse ClickhouseConfig `yaml:"clickhouse"`
}

type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	SharedSession  bool          `yaml:"shared_session"` // one session for every WebSocket connection
	MetricsPrefix  string        `yaml:"metrics_prefix"`
}

type DataConfig struct {
	Dir    string `yaml:"dir"`    // holds history/<name>.csv
	Source string `yaml:"source"` // loaded at startup when set
	Verify bool   `yaml:"verify"` // recompute precomputed indicator columns on load
}

type BacktestConfig struct {
	InitialCapital float64 `yaml:"initial_capital"`
	StrictTokens   bool    `yaml:"strict_tokens"`
}

type WebSocketConfig struct {
	PingInterval   time.Duration `yaml:"ping_interval"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxMessageSize int64         `yaml:"max_message_size"`
}

type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

type ClickhouseConfig struct {
	DSN string `yaml:"dsn"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
			RequestTimeout: 60 * time.Second,
			MetricsPrefix:  "marksix",
		},
		Data: DataConfig{Dir: "data"},
		Backtest: BacktestConfig{
			InitialCapital: 10000,
		},
		WebSocket: WebSocketConfig{
			PingInterval:   30 * time.Second,
			ReadTimeout:    60 * time.Second,
			WriteTimeout:   10 * time.Second,
			MaxMessageSize: 4 * 1024 * 1024,
		},
	}
}

// Load reads a YAML file over Default. An empty path returns Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv loads a .env file into the process environment.
// A missing file is not an error.
func LoadEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv(EnvAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvDataDir); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv(EnvPostgresDSN); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv(EnvClickhouseDSN); v != "" {
		c.Clickhouse.DSN = v
	}

	flags := []struct {
		name string
		dst  *bool
	}{
		{EnvVerify, &c.Data.Verify},
		{EnvStrictTokens, &c.Backtest.StrictTokens},
		{EnvSharedSession, &c.Server.SharedSession},
	}
	for _, f := range flags {
		v := os.Getenv(f.name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("parse %s: %w", f.name, err)
		}
		*f.dst = b
	}
	return nil
}

// Validate checks values that have no usable zero.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Backtest.InitialCapital < 0 {
		return fmt.Errorf("backtest.initial_capital must be non-negative, got %v", c.Backtest.InitialCapital)
	}
	if c.WebSocket.MaxMessageSize < 0 {
		return fmt.Errorf("websocket.max_message_size must be non-negative, got %d", c.WebSocket.MaxMessageSize)
	}
	return nil
}
