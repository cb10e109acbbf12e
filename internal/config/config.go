package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lazypower/tend/internal/activity"
	"github.com/lazypower/tend/internal/notify"
)

// Config holds all tend configuration.
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Aging     AgingConfig     `json:"aging"`
	Notify    NotifyConfig    `json:"notify"`
	Reconcile ReconcileConfig `json:"reconcile"`
}

type ServerConfig struct {
	Bind string `json:"bind"`
	Port int    `json:"port"`
}

type DatabaseConfig struct {
	Path string `json:"path"` // empty resolves to store.DefaultDBPath()
}

// AgingConfig sets the staleness cutoffs as fractions of an activity's interval.
type AgingConfig struct {
	FreshFraction float64 `json:"fresh_fraction"`
	StaleFraction float64 `json:"stale_fraction"`
}

type NotifyConfig struct {
	Gateway      string   `json:"gateway"` // "local", "webhook", "kafka", "memory"
	WebhookURL   string   `json:"webhook_url"`
	KafkaBrokers []string `json:"kafka_brokers"`
	KafkaTopic   string   `json:"kafka_topic"`
	Timeout      string   `json:"timeout"` // Go duration, e.g. "5s"
}

type ReconcileConfig struct {
	Interval string `json:"interval"` // Go duration; "0" reconciles at startup only
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37778,
		},
		Aging: AgingConfig{
			FreshFraction: activity.DefaultThresholds.FreshFraction,
			StaleFraction: activity.DefaultThresholds.StaleFraction,
		},
		Notify: NotifyConfig{
			Gateway:    "local",
			KafkaTopic: "tend.reminders",
			Timeout:    "5s",
		},
		Reconcile: ReconcileConfig{
			Interval: "24h",
		},
	}
}

// DefaultConfigPath returns ~/.tend/config.json.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".tend", "config.json"), nil
}

// Load reads the JSON file at path over the defaults and then applies
// environment overrides. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Database.Path = getEnv("TEND_DB", c.Database.Path)
	c.Server.Bind = getEnv("TEND_BIND", c.Server.Bind)
	c.Server.Port = getIntEnv("TEND_PORT", c.Server.Port)
	c.Notify.Gateway = getEnv("TEND_GATEWAY", c.Notify.Gateway)
	c.Notify.WebhookURL = getEnv("TEND_WEBHOOK_URL", c.Notify.WebhookURL)
	c.Notify.KafkaTopic = getEnv("TEND_KAFKA_TOPIC", c.Notify.KafkaTopic)
	c.Reconcile.Interval = getEnv("TEND_RECONCILE_INTERVAL", c.Reconcile.Interval)
	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		c.Notify.KafkaBrokers = splitAndTrim(brokers)
	}
}

// Validate checks the values Load cannot coerce.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if err := c.Thresholds().Validate(); err != nil {
		return fmt.Errorf("aging: %w", err)
	}
	if _, err := c.ReconcileInterval(); err != nil {
		return err
	}
	if _, err := parseDuration("notify timeout", c.Notify.Timeout); err != nil {
		return err
	}

	switch c.Notify.Gateway {
	case "", "local", "memory":
	case "webhook":
		if c.Notify.WebhookURL == "" {
			return fmt.Errorf("webhook gateway requires notify.webhook_url")
		}
	case "kafka":
		if len(c.Notify.KafkaBrokers) == 0 {
			return fmt.Errorf("kafka gateway requires notify.kafka_brokers")
		}
	default:
		return fmt.Errorf("unknown notify gateway %q", c.Notify.Gateway)
	}
	return nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// Thresholds returns the configured aging cutoffs.
func (c *Config) Thresholds() activity.Thresholds {
	return activity.Thresholds{
		FreshFraction: c.Aging.FreshFraction,
		StaleFraction: c.Aging.StaleFraction,
	}
}

// ReconcileInterval returns how often the server reconciles reminders.
func (c *Config) ReconcileInterval() (time.Duration, error) {
	return parseDuration("reconcile interval", c.Reconcile.Interval)
}

// GatewayOptions maps the notify section to notify.NewGateway options.
func (c *Config) GatewayOptions() notify.Options {
	timeout, _ := parseDuration("notify timeout", c.Notify.Timeout)
	return notify.Options{
		Kind:         c.Notify.Gateway,
		WebhookURL:   c.Notify.WebhookURL,
		KafkaBrokers: c.Notify.KafkaBrokers,
		KafkaTopic:   c.Notify.KafkaTopic,
		Timeout:      timeout,
	}
}

func parseDuration(what, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", what)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
