package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the campaign engine.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	SES        SESConfig        `yaml:"ses"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Tracking   TrackingConfig   `yaml:"tracking"`
	Promotions PromotionsConfig `yaml:"promotions"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	host := s.Host
	if host == "" {
		host = "0.0.0.0"
	}
	port := s.Port
	if port == 0 {
		port = 8080
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds optional Redis settings for distributed locking.
// When Addr is empty the scheduler falls back to PG advisory locks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// SESConfig holds AWS SES credentials for the mail transport.
type SESConfig struct {
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	Region         string `yaml:"region"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// SendTimeout returns the per-send transport timeout.
func (s SESConfig) SendTimeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// SchedulerConfig holds campaign scheduler settings.
type SchedulerConfig struct {
	CadenceSeconds  int    `yaml:"cadence_seconds"`
	ControlSecret   string `yaml:"control_secret"`
	LockTTLMinutes  int    `yaml:"lock_ttl_minutes"`
	AutoStart       bool   `yaml:"auto_start"`
	DispatchTimeout int    `yaml:"dispatch_timeout_seconds"`
}

// Cadence returns the tick interval, defaulting to one minute.
func (s SchedulerConfig) Cadence() time.Duration {
	if s.CadenceSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(s.CadenceSeconds) * time.Second
}

// LockTTL returns the distributed-lock TTL for a dispatch cycle.
func (s SchedulerConfig) LockTTL() time.Duration {
	if s.LockTTLMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(s.LockTTLMinutes) * time.Minute
}

// TrackingConfig holds tracking endpoint settings.
type TrackingConfig struct {
	// BaseURL is the public origin embedded in pixel and click URLs.
	BaseURL string `yaml:"base_url"`
}

// PromotionsConfig holds promotion selector settings.
type PromotionsConfig struct {
	// Timezone override for window checks; defaults to America/Los_Angeles.
	Timezone string `yaml:"timezone"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Load reads configuration from a YAML file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-east-1"
	}
	if cfg.SES.TimeoutSeconds == 0 {
		cfg.SES.TimeoutSeconds = 30
	}
	if cfg.Scheduler.CadenceSeconds == 0 {
		cfg.Scheduler.CadenceSeconds = 60
	}
	if cfg.Tracking.BaseURL == "" {
		cfg.Tracking.BaseURL = "http://localhost:8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file first (if present), so secrets can live in .env
// locally and in real env vars in deployment.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("SCHEDULER_CONTROL_SECRET"); v != "" {
		cfg.Scheduler.ControlSecret = v
	}
	if v := os.Getenv("TRACKING_BASE_URL"); v != "" {
		cfg.Tracking.BaseURL = v
	}
	if v := os.Getenv("SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}

	return cfg, nil
}
