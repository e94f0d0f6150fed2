// Package config handles TOML configuration loading with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the top-level configuration for safetywatch.
type Config struct {
	Instance    InstanceConfig    `toml:"instance"`
	Log         LogConfig         `toml:"log"`
	Store       StoreConfig       `toml:"store"`
	Shake       DetectorConfig    `toml:"shake"`
	Motion      MotionConfig      `toml:"motion"`
	Speech      SpeechConfig      `toml:"speech"`
	Confirm     ConfirmConfig     `toml:"confirm"`
	Correlation CorrelationConfig `toml:"correlation"`
	Location    LocationConfig    `toml:"location"`
	Dispatch    DispatchConfig    `toml:"dispatch"`
	Ntfy        NtfyConfig        `toml:"ntfy"`
	Digest      DigestConfig      `toml:"digest"`
	Metrics     MetricsConfig     `toml:"metrics"`
}

// InstanceConfig identifies this device.
type InstanceConfig struct {
	ID string `toml:"id"`
}

// LogConfig controls logging. An empty File logs to stderr.
type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
}

// StoreConfig locates the SQLite persistence file.
type StoreConfig struct {
	Path string `toml:"path"`
}

// DetectorConfig tunes a shake detector. Threshold is in g for the UI
// gesture and in m/s² for the motion distress detector.
type DetectorConfig struct {
	Enabled   bool     `toml:"enabled"`
	Threshold float64  `toml:"threshold"`
	Window    Duration `toml:"window"`
	Required  int      `toml:"required"`
	Cooldown  Duration `toml:"cooldown"`
}

// MotionConfig controls the motion distress detector and its sensor helper.
type MotionConfig struct {
	DetectorConfig
	// Command emits JSON-lines motion readings on stdout.
	Command []string `toml:"command"`
}

// SpeechConfig controls speech monitoring. Command emits JSON-lines
// utterances on stdout.
type SpeechConfig struct {
	Enabled bool     `toml:"enabled"`
	Command []string `toml:"command"`
}

// SensorRestart is how long a failed sensor helper waits before restarting.
const SensorRestart = 5 * time.Second

// ConfirmConfig controls the confirmation prompt.
type ConfirmConfig struct {
	Timeout Duration `toml:"timeout"`
}

// CorrelationConfig controls the periodic merge of recent events.
type CorrelationConfig struct {
	Interval  Duration `toml:"interval"`
	Window    Duration `toml:"window"`
	MinEvents int      `toml:"min_events"`
}

// LocationConfig selects the geolocation provider: "none", "static" or
// "geoip".
type LocationConfig struct {
	Provider  string   `toml:"provider"`
	Latitude  float64  `toml:"latitude"`
	Longitude float64  `toml:"longitude"`
	Accuracy  float64  `toml:"accuracy"`
	GeoIPDB   string   `toml:"geoip_db"`
	PublicIP  string   `toml:"public_ip"`
	Timeout   Duration `toml:"timeout"`
	MaxAge    Duration `toml:"max_age"`
}

// DispatchConfig controls how alerts leave the device.
type DispatchConfig struct {
	// Opener handles tel:, sms: and mailto: URIs. "log" only logs them.
	Opener           string   `toml:"opener"`
	OpenerArgs       []string `toml:"opener_args"`
	EmergencyNumber  string   `toml:"emergency_number"`
	AuthorityNumbers []string `toml:"authority_numbers"`
}

// NtfyConfig controls the ntfy notification target. An empty URL disables
// push notifications; toasts are then only logged.
type NtfyConfig struct {
	URL         string            `toml:"url"`
	Token       string            `toml:"token"`
	PriorityMap map[string]string `toml:"priority_map"`
}

// DigestConfig schedules the periodic safety digest. Schedule is a cron
// expression; empty disables it.
type DigestConfig struct {
	Schedule string   `toml:"schedule"`
	Period   Duration `toml:"period"`
}

// MetricsConfig exposes Prometheus metrics when Listen is set.
type MetricsConfig struct {
	Listen string `toml:"listen"`
}

// Duration wraps time.Duration for TOML string parsing (e.g. "800ms", "10s").
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}
	return &Config{
		Instance: InstanceConfig{
			ID: hostname,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Store: StoreConfig{
			Path: filepath.Join(dataDir(), "safetywatch", "safetywatch.db"),
		},
		Shake: DetectorConfig{
			Enabled:   true,
			Threshold: 2.2,
			Window:    Duration{800 * time.Millisecond},
			Required:  3,
			Cooldown:  Duration{4 * time.Second},
		},
		Motion: MotionConfig{
			DetectorConfig: DetectorConfig{
				Enabled:   true,
				Threshold: 15,
				Window:    Duration{2 * time.Second},
				Required:  3,
			},
		},
		Speech: SpeechConfig{
			Enabled: true,
		},
		Confirm: ConfirmConfig{
			Timeout: Duration{10 * time.Second},
		},
		Correlation: CorrelationConfig{
			Interval:  Duration{time.Second},
			Window:    Duration{30 * time.Second},
			MinEvents: 2,
		},
		Location: LocationConfig{
			Provider: "none",
			Timeout:  Duration{10 * time.Second},
			MaxAge:   Duration{5 * time.Minute},
		},
		Dispatch: DispatchConfig{
			Opener:           "xdg-open",
			EmergencyNumber:  "911",
			AuthorityNumbers: []string{"911", "112"},
		},
		Ntfy: NtfyConfig{
			PriorityMap: map[string]string{
				"destructive": "urgent",
				"default":     "default",
			},
		},
		Digest: DigestConfig{
			Schedule: "0 9 * * 1",
			Period:   Duration{7 * 24 * time.Hour},
		},
	}
}

// DefaultPath returns the default config file path.
func DefaultPath() string {
	configDir, err := os.UserConfigDir()
	if err != nil {
		configDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(configDir, "safetywatch", "config.toml")
}

func dataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return dir
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share")
}

// Load reads configuration from the given path, falling back to defaults
// for any unset fields. If the file does not exist, returns defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Location.Provider) {
	case "", "none", "static":
	case "geoip":
		if c.Location.GeoIPDB == "" || c.Location.PublicIP == "" {
			return fmt.Errorf("location provider geoip needs geoip_db and public_ip")
		}
	default:
		return fmt.Errorf("unknown location provider %q", c.Location.Provider)
	}
	if c.Correlation.MinEvents < 1 {
		return fmt.Errorf("correlation min_events must be at least 1")
	}
	return nil
}

// NtfyPriority maps a notice variant to an ntfy priority string.
func (c *Config) NtfyPriority(variant string) string {
	if p, ok := c.Ntfy.PriorityMap[variant]; ok {
		return p
	}
	return "default"
}
