package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds every runtime parameter of the display service. Values
// come from the YAML file first, then environment variables override
// (FLOOR_DATABASE_HOST, FLOOR_RABBITMQ_PORT, ...).
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	HTTP     HTTPConfig     `yaml:"http"`
	Display  DisplayConfig  `yaml:"display"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode" envconfig:"SSLMODE"`
	MaxConns int    `yaml:"max_conns" envconfig:"MAX_CONNS"`
}

// DSN renders the pgx connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode, d.MaxConns)
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
}

// URL renders the amqp dial string.
func (r RabbitMQConfig) URL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", r.User, r.Password, r.Host, r.Port, r.VHost)
}

type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_seconds" envconfig:"READ_TIMEOUT_SECONDS"`
	WriteTimeoutSec int `yaml:"write_timeout_seconds" envconfig:"WRITE_TIMEOUT_SECONDS"`
}

func (h HTTPConfig) ReadTimeout() time.Duration  { return time.Duration(h.ReadTimeoutSec) * time.Second }
func (h HTTPConfig) WriteTimeout() time.Duration { return time.Duration(h.WriteTimeoutSec) * time.Second }

type DisplayConfig struct {
	RefreshIntervalSec int    `yaml:"refresh_interval_seconds" envconfig:"REFRESH_INTERVAL_SECONDS"`
	PrefsPath          string `yaml:"prefs_path" envconfig:"PREFS_PATH"`
}

// RefreshInterval is the periodic full-refresh cadence.
func (d DisplayConfig) RefreshInterval() time.Duration {
	return time.Duration(d.RefreshIntervalSec) * time.Second
}

func defaults() *Config {
	return &Config{
		Database: DatabaseConfig{Port: 5432, SSLMode: "disable", MaxConns: 10},
		RabbitMQ: RabbitMQConfig{Port: 5672, VHost: "/"},
		HTTP:     HTTPConfig{ReadTimeoutSec: 10, WriteTimeoutSec: 10},
		Display:  DisplayConfig{RefreshIntervalSec: 30, PrefsPath: "floorstate-prefs.json"},
	}
}

// Load reads the YAML file at path (missing file is allowed when the
// environment provides everything), then applies .env and environment
// overrides, then validates.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if b, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	_ = godotenv.Load() // optional .env, real env wins

	if err := envconfig.Process("floor", cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.Host == "" || c.Database.User == "" || c.Database.Database == "" {
		return fmt.Errorf("database config incomplete")
	}
	if c.RabbitMQ.Host == "" || c.RabbitMQ.User == "" {
		return fmt.Errorf("rabbitmq config incomplete")
	}
	if c.Display.RefreshIntervalSec <= 0 {
		return fmt.Errorf("display.refresh_interval_seconds must be positive")
	}
	return nil
}
