package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Instance.ID == "" {
		t.Error("default instance ID should not be empty")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("default log level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Shake.Threshold != 2.2 || cfg.Shake.Window.Duration != 800*time.Millisecond {
		t.Errorf("default shake = %+v", cfg.Shake)
	}
	if cfg.Shake.Cooldown.Duration != 4*time.Second {
		t.Errorf("default shake cooldown = %v, want 4s", cfg.Shake.Cooldown.Duration)
	}
	if cfg.Motion.Threshold != 15 || cfg.Motion.Window.Duration != 2*time.Second || cfg.Motion.Required != 3 {
		t.Errorf("default motion = %+v", cfg.Motion.DetectorConfig)
	}
	if cfg.Confirm.Timeout.Duration != 10*time.Second {
		t.Errorf("default confirm timeout = %v, want 10s", cfg.Confirm.Timeout.Duration)
	}
	if cfg.Correlation.Window.Duration != 30*time.Second || cfg.Correlation.Interval.Duration != time.Second {
		t.Errorf("default correlation = %+v", cfg.Correlation)
	}
	if len(cfg.Dispatch.AuthorityNumbers) != 2 {
		t.Errorf("default authority numbers = %v", cfg.Dispatch.AuthorityNumbers)
	}
}

func TestLoadNonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("loading nonexistent config should return defaults, got error: %v", err)
	}
	if cfg.Dispatch.EmergencyNumber != "911" {
		t.Errorf("emergency number = %q, want default %q", cfg.Dispatch.EmergencyNumber, "911")
	}
}

func TestLoadValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[instance]
id = "phone"

[log]
level = "debug"
file = "/tmp/safetywatch.log"

[motion]
threshold = 18.5
window = "1500ms"
command = ["motion-helper", "--json"]

[confirm]
timeout = "15s"

[location]
provider = "static"
latitude = 52.52
longitude = 13.405

[dispatch]
opener = "log"
authority_numbers = ["112"]

[ntfy]
url = "https://ntfy.sh/my-topic"

[metrics]
listen = "127.0.0.1:9310"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Instance.ID != "phone" {
		t.Errorf("instance ID = %q, want %q", cfg.Instance.ID, "phone")
	}
	if cfg.Log.Level != "debug" || cfg.Log.File != "/tmp/safetywatch.log" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Motion.Threshold != 18.5 {
		t.Errorf("motion threshold = %v, want 18.5", cfg.Motion.Threshold)
	}
	if cfg.Motion.Window.Duration != 1500*time.Millisecond {
		t.Errorf("motion window = %v, want 1.5s", cfg.Motion.Window.Duration)
	}
	if cfg.Motion.Required != 3 {
		t.Errorf("motion required = %d, want default 3", cfg.Motion.Required)
	}
	if len(cfg.Motion.Command) != 2 {
		t.Errorf("motion command = %v", cfg.Motion.Command)
	}
	if cfg.Confirm.Timeout.Duration != 15*time.Second {
		t.Errorf("confirm timeout = %v, want 15s", cfg.Confirm.Timeout.Duration)
	}
	if cfg.Location.Provider != "static" || cfg.Location.Latitude != 52.52 {
		t.Errorf("location = %+v", cfg.Location)
	}
	if cfg.Location.MaxAge.Duration != 5*time.Minute {
		t.Errorf("location max age should keep default, got %v", cfg.Location.MaxAge.Duration)
	}
	if len(cfg.Dispatch.AuthorityNumbers) != 1 || cfg.Dispatch.AuthorityNumbers[0] != "112" {
		t.Errorf("authority numbers = %v", cfg.Dispatch.AuthorityNumbers)
	}
	if cfg.Ntfy.URL != "https://ntfy.sh/my-topic" {
		t.Errorf("ntfy URL = %q", cfg.Ntfy.URL)
	}
	if cfg.Metrics.Listen != "127.0.0.1:9310" {
		t.Errorf("metrics listen = %q", cfg.Metrics.Listen)
	}
}

func TestLoadInvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := os.WriteFile(path, []byte("this is not valid toml [[["), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid TOML")
	}
}

func TestLoadRejectsIncompleteGeoIP(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := "[location]\nprovider = \"geoip\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(path); err == nil {
		t.Error("expected error for geoip provider without database")
	}
}

func TestNtfyPriority(t *testing.T) {
	cfg := Default()

	tests := []struct {
		variant string
		want    string
	}{
		{"destructive", "urgent"},
		{"default", "default"},
		{"unknown", "default"},
	}

	for _, tt := range tests {
		if got := cfg.NtfyPriority(tt.variant); got != tt.want {
			t.Errorf("NtfyPriority(%q) = %q, want %q", tt.variant, got, tt.want)
		}
	}
}

func TestDurationUnmarshal(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("800ms")); err != nil {
		t.Fatalf("UnmarshalText error: %v", err)
	}
	if d.Duration != 800*time.Millisecond {
		t.Errorf("duration = %v, want 800ms", d.Duration)
	}
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Error("expected error for invalid duration")
	}
}
