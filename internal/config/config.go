package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete overshoot-watch configuration
type Config struct {
	API     APIConfig     `yaml:"api"`
	Stream  StreamConfig  `yaml:"stream"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// APIConfig contains API endpoint and credential configuration
type APIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"` // empty selects the SDK default
	Timeout int    `yaml:"timeout"`  // seconds
}

// StreamConfig contains the video source and stream parameters
type StreamConfig struct {
	Source SourceConfig `yaml:"source"`

	Prompt  string `yaml:"prompt"`
	Mode    string `yaml:"mode"` // "clip", "frame" or empty for auto
	Backend string `yaml:"backend"`
	Model   string `yaml:"model"`

	// Clip mode parameters
	TargetFPS         int     `yaml:"target_fps"`
	ClipLengthSeconds float64 `yaml:"clip_length_seconds"`
	DelaySeconds      float64 `yaml:"delay_seconds"`

	// Frame mode parameters
	IntervalSeconds float64 `yaml:"interval_seconds"`
}

// SourceConfig selects and parameterizes the video source
type SourceConfig struct {
	Type   string `yaml:"type"` // camera, file, livekit, webrtc
	Device string `yaml:"device"`
	Path   string `yaml:"path"`
	Loop   bool   `yaml:"loop"`
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	SDP    string `yaml:"sdp"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// MetricsConfig contains the optional Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs validation of the configuration
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return fmt.Errorf("api config: %w", err)
	}

	if err := c.Stream.Validate(); err != nil {
		return fmt.Errorf("stream config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	return nil
}

// Validate validates API configuration
func (a *APIConfig) Validate() error {
	if a.APIKey == "" {
		return fmt.Errorf("api_key cannot be empty")
	}

	if a.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative, got %d", a.Timeout)
	}

	return nil
}

// Validate validates stream configuration
func (s *StreamConfig) Validate() error {
	if s.Prompt == "" {
		return fmt.Errorf("prompt cannot be empty")
	}

	validModes := map[string]bool{"": true, "clip": true, "frame": true}
	if !validModes[s.Mode] {
		return fmt.Errorf("mode must be 'clip' or 'frame', got '%s'", s.Mode)
	}

	if s.TargetFPS < 0 || s.TargetFPS > 30 {
		return fmt.Errorf("target_fps must be between 0 and 30, got %d", s.TargetFPS)
	}

	if s.ClipLengthSeconds < 0 {
		return fmt.Errorf("clip_length_seconds cannot be negative, got %f", s.ClipLengthSeconds)
	}

	if s.IntervalSeconds < 0 {
		return fmt.Errorf("interval_seconds cannot be negative, got %f", s.IntervalSeconds)
	}

	return s.Source.Validate()
}

// Validate validates the source configuration
func (s *SourceConfig) Validate() error {
	switch s.Type {
	case "camera":
		// device is optional, platform default applies
	case "file":
		if s.Path == "" {
			return fmt.Errorf("file source requires path")
		}
	case "livekit":
		if s.URL == "" || s.Token == "" {
			return fmt.Errorf("livekit source requires url and token")
		}
	case "webrtc":
		if s.SDP == "" {
			return fmt.Errorf("webrtc source requires sdp")
		}
	case "":
		return fmt.Errorf("source type cannot be empty")
	default:
		return fmt.Errorf("source type must be one of [camera, file, livekit, webrtc], got '%s'", s.Type)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"": true, "debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"": true, "json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// Validate validates the metrics configuration
func (m *MetricsConfig) Validate() error {
	if m.Enabled && m.Address == "" {
		return fmt.Errorf("address cannot be empty when metrics are enabled")
	}

	return nil
}

// GetTimeoutDuration returns the API timeout as a time.Duration
func (a *APIConfig) GetTimeoutDuration() time.Duration {
	if a.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(a.Timeout) * time.Second
}
