// Package config loads and validates the service configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Delivery modes for the single-record endpoint.
const (
	ModeAttachment = "attachment"
	ModeLink       = "link"
)

// Configuration validation errors.
var (
	ErrMissingTemplate     = errors.New("render.template_path is required")
	ErrInvalidMode         = errors.New("publish.mode must be 'attachment' or 'link'")
	ErrMissingPublishDir   = errors.New("publish.dir is required in link mode")
	ErrInvalidCleanupDelay = errors.New("publish.cleanup_delay_sec must be non-negative")
	ErrInvalidUploadLimit  = errors.New("server.max_upload_bytes must be positive")
	ErrInvalidLogLevel     = errors.New("logging.level must be one of: debug, info, warn, error")
)

// Config is the root of the YAML configuration file.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Render  RenderConfig  `yaml:"render"`
	Publish PublishConfig `yaml:"publish"`
	Logging LoggingConfig `yaml:"logging"`
	Audit   AuditConfig   `yaml:"audit"`
}

type ServerConfig struct {
	ListenAddr     string `yaml:"listen_addr"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes"`
}

type RenderConfig struct {
	TemplatePath string `yaml:"template_path"`
}

// PublishConfig selects the single-record delivery mode. Link mode
// exposes rendered files under BaseURL for CleanupDelay before they
// are removed.
type PublishConfig struct {
	Mode            string `yaml:"mode"`
	Dir             string `yaml:"dir"`
	BaseURL         string `yaml:"base_url"`
	CleanupDelaySec int    `yaml:"cleanup_delay_sec"`
}

func (p PublishConfig) CleanupDelay() time.Duration {
	return time.Duration(p.CleanupDelaySec) * time.Second
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// AuditConfig points at the sqlite file recording generation events.
// An empty path disables the audit trail.
type AuditConfig struct {
	Path string `yaml:"path"`
}

// Load reads, fills defaults, and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.defaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) defaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 10 << 20
	}
	if c.Render.TemplatePath == "" {
		c.Render.TemplatePath = "web/templates/event-template.html"
	}
	if c.Publish.Mode == "" {
		c.Publish.Mode = ModeAttachment
	}
	if c.Publish.Dir == "" {
		c.Publish.Dir = "public"
	}
	if c.Publish.BaseURL == "" {
		c.Publish.BaseURL = "/files"
	}
	if c.Publish.CleanupDelaySec == 0 {
		c.Publish.CleanupDelaySec = 10
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if c.Render.TemplatePath == "" {
		return ErrMissingTemplate
	}
	if c.Server.MaxUploadBytes <= 0 {
		return ErrInvalidUploadLimit
	}
	switch c.Publish.Mode {
	case ModeAttachment:
	case ModeLink:
		if c.Publish.Dir == "" {
			return ErrMissingPublishDir
		}
	default:
		return ErrInvalidMode
	}
	if c.Publish.CleanupDelaySec < 0 {
		return ErrInvalidCleanupDelay
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	return nil
}
