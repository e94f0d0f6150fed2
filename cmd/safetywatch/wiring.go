package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/lumberjack"

	"github.com/setevik/safetywatch/internal/clock"
	"github.com/setevik/safetywatch/internal/config"
	"github.com/setevik/safetywatch/internal/contacts"
	"github.com/setevik/safetywatch/internal/dispatch"
	"github.com/setevik/safetywatch/internal/gateway"
	"github.com/setevik/safetywatch/internal/geo"
	"github.com/setevik/safetywatch/internal/history"
	"github.com/setevik/safetywatch/internal/metrics"
	"github.com/setevik/safetywatch/internal/motion"
	"github.com/setevik/safetywatch/internal/reporter"
	"github.com/setevik/safetywatch/internal/sensor"
	"github.com/setevik/safetywatch/internal/shake"
	"github.com/setevik/safetywatch/internal/speech"
	"github.com/setevik/safetywatch/internal/store"
)

// stores bundles everything persisted in the key-value store.
type stores struct {
	db       *store.DB
	events   *history.EventStore
	alerts   *history.AlertStore
	contacts *contacts.Manager
}

func openStores(cfg *config.Config, clk clock.Clock) (*stores, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o750); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	slog.Debug("store opened", "path", cfg.Store.Path)

	st := &stores{db: db}
	if st.events, err = history.OpenEvents(db, clk); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading safety events: %w", err)
	}
	if st.alerts, err = history.OpenAlerts(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading alert history: %w", err)
	}
	if st.contacts, err = contacts.Open(db, clk); err != nil {
		db.Close()
		return nil, fmt.Errorf("loading emergency contacts: %w", err)
	}
	return st, nil
}

func (s *stores) Close() error {
	return s.db.Close()
}

// buildLocator picks the configured position provider. The returned func
// releases provider resources.
func buildLocator(cfg *config.Config, clk clock.Clock) (*geo.Locator, func(), error) {
	lc := cfg.Location
	var p geo.Provider
	closer := func() {}

	switch strings.ToLower(lc.Provider) {
	case "static":
		p = geo.Static{Latitude: lc.Latitude, Longitude: lc.Longitude, Accuracy: lc.Accuracy, Clock: clk}
	case "geoip":
		g, err := geo.OpenGeoIP(lc.GeoIPDB, lc.PublicIP, clk)
		if err != nil {
			return nil, nil, err
		}
		p = g
		closer = func() { _ = g.Close() }
	default:
		p = geo.Unsupported{}
	}

	return geo.NewLocator(p, clk, lc.Timeout.Duration, lc.MaxAge.Duration), closer, nil
}

func buildGateway(cfg *config.Config) gateway.Gateway {
	if cfg.Dispatch.Opener == "log" {
		return gateway.Log{}
	}
	return gateway.NewExec(cfg.Dispatch.Opener, cfg.Dispatch.OpenerArgs...)
}

// buildSink always logs notices and also pushes them to ntfy when a URL is
// configured.
func buildSink(cfg *config.Config) reporter.Sink {
	sinks := reporter.Fanout{reporter.LogSink{}}
	if cfg.Ntfy.URL != "" {
		sinks = append(sinks, reporter.NewNtfy(cfg))
	}
	return sinks
}

func buildDispatcher(cfg *config.Config, st *stores, sink reporter.Sink, clk clock.Clock, m *metrics.Metrics) (*dispatch.Dispatcher, func(), error) {
	locator, closer, err := buildLocator(cfg, clk)
	if err != nil {
		return nil, nil, fmt.Errorf("setting up location: %w", err)
	}
	d := dispatch.New(locator, st.alerts, st.contacts, buildGateway(cfg), sink, clk, m, dispatch.Options{
		EmergencyNumber:  cfg.Dispatch.EmergencyNumber,
		AuthorityNumbers: cfg.Dispatch.AuthorityNumbers,
	})
	return d, closer, nil
}

// detectorConfig maps a config section onto a shake detector. unit is the
// divisor that converts readings into the threshold's unit.
func detectorConfig(dc config.DetectorConfig, unit float64) shake.Config {
	return shake.Config{
		Threshold: dc.Threshold,
		Unit:      unit,
		Window:    dc.Window.Duration,
		Required:  dc.Required,
		Cooldown:  dc.Cooldown.Duration,
	}
}

// motionSource returns nil when no motion helper is configured, which the
// samplers report as unsupported.
func motionSource(cfg *config.Config) motion.Source {
	if len(cfg.Motion.Command) == 0 {
		return nil
	}
	return sensor.NewMotionSource(supervise("motion", cfg.Motion.Command))
}

func speechRecognizer(cfg *config.Config) speech.Recognizer {
	if !cfg.Speech.Enabled || len(cfg.Speech.Command) == 0 {
		return nil
	}
	return sensor.NewSpeechSource(supervise("speech", cfg.Speech.Command))
}

func supervise(name string, argv []string) sensor.LineSource {
	return sensor.NewSupervised(name,
		func() sensor.LineSource {
			return sensor.NewPipe(name, argv)
		},
		config.SensorRestart,
		0, // unlimited restarts
	)
}

// --- logging ---

func setupLogging(lc config.LogConfig) {
	var logLevel slog.Level
	switch lc.Level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	var w io.Writer = os.Stderr
	if lc.File != "" {
		w = &lumberjack.Logger{
			Filename:   lc.File,
			MaxSize:    lc.MaxSizeMB,
			MaxBackups: lc.MaxBackups,
			MaxAge:     lc.MaxAgeDays,
		}
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// quietLogging keeps CLI output clean.
func quietLogging() {
	setupLogging(config.LogConfig{Level: "error"})
}
