// safetywatch watches motion and speech for signs of distress, asks the user
// to confirm, and raises emergency alerts through the device's messaging
// handlers.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/setevik/safetywatch/internal/clock"
	"github.com/setevik/safetywatch/internal/config"
	"github.com/setevik/safetywatch/internal/confirm"
	"github.com/setevik/safetywatch/internal/metrics"
	"github.com/setevik/safetywatch/internal/monitor"
	"github.com/setevik/safetywatch/internal/motion"
	"github.com/setevik/safetywatch/internal/reporter"
	"github.com/setevik/safetywatch/internal/shake"
)

var version = "dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "events":
			runEvents(os.Args[2:])
			return
		case "alerts":
			runAlerts(os.Args[2:])
			return
		case "clear-events":
			runClearEvents(os.Args[2:])
			return
		case "clear-alerts":
			runClearAlerts(os.Args[2:])
			return
		case "contacts":
			runContacts(os.Args[2:])
			return
		case "alert":
			runAlert(os.Args[2:])
			return
		case "digest":
			runDigest(os.Args[2:])
			return
		case "test-notify":
			runTestNotifyCmd(os.Args[2:])
			return
		case "version":
			fmt.Println("safetywatch", version)
			return
		}
	}

	// Default: run daemon.
	runDaemon(os.Args[1:])
}

func runDaemon(args []string) {
	fs := flag.NewFlagSet("safetywatch", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	showVersion := fs.Bool("version", false, "print version and exit")
	fs.Parse(args)

	if *showVersion {
		fmt.Println("safetywatch", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg.Log)

	slog.Info("safetywatch starting",
		"version", version,
		"instance", cfg.Instance.ID,
	)

	if err := run(cfg); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clk := clock.New()

	st, err := openStores(cfg, clk)
	if err != nil {
		return err
	}
	defer st.Close()

	m := metrics.New()
	if cfg.Metrics.Listen != "" {
		go func() {
			if err := m.Serve(ctx, cfg.Metrics.Listen); err != nil {
				slog.Error("metrics listener failed", "error", err)
			}
		}()
	}

	sink := buildSink(cfg)

	disp, closeLoc, err := buildDispatcher(cfg, st, sink, clk, m)
	if err != nil {
		return err
	}
	defer closeLoc()

	gate := confirm.New(confirm.NewTerminal(os.Stdin, os.Stdout), clk, cfg.Confirm.Timeout.Duration, st.events.Update)

	motionSrc := motionSource(cfg)

	var motionSampler *motion.Sampler
	if cfg.Motion.Enabled {
		motionSampler = motion.NewSampler(motionSrc, clk)
	}

	assistant := monitor.New(monitor.Components{
		Clock:       clk,
		Motion:      motionSampler,
		MotionShake: detectorConfig(cfg.Motion.DetectorConfig, 1),
		Speech:      speechRecognizer(cfg),
		Events:      st.events,
		Gate:        gate,
		Escalator:   disp,
		Sink:        sink,
		Metrics:     m,
		Correlation: monitor.Correlation{
			Interval:  cfg.Correlation.Interval.Duration,
			Window:    cfg.Correlation.Window.Duration,
			MinEvents: cfg.Correlation.MinEvents,
		},
	})

	var bridge *monitor.ShakeBridge
	if cfg.Shake.Enabled {
		bridge = monitor.NewShakeBridge(
			motion.NewSampler(motionSrc, clk),
			detectorConfig(cfg.Shake, shake.StandardGravity),
			clk, disp, sink,
		)
		bridge.Enable(ctx)
	}

	assistant.Start(ctx)

	scheduler := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger)))
	if cfg.Digest.Schedule != "" {
		_, err := scheduler.AddFunc(cfg.Digest.Schedule, func() {
			sendDigest(ctx, cfg, st, sink, clk, cfg.Digest.Period.Duration)
		})
		if err != nil {
			return fmt.Errorf("scheduling digest %q: %w", cfg.Digest.Schedule, err)
		}
		scheduler.Start()
		slog.Info("digest scheduled", "schedule", cfg.Digest.Schedule, "period", cfg.Digest.Period.Duration)
	}

	// Notify systemd we are ready (sd_notify).
	sdNotify("READY=1")

	var watchdogCh <-chan time.Time
	if wdInterval := watchdogInterval(); wdInterval > 0 {
		// Ping at half the watchdog interval.
		ticker := time.NewTicker(wdInterval / 2)
		defer ticker.Stop()
		watchdogCh = ticker.C
		slog.Info("systemd watchdog enabled", "interval", wdInterval)
	}

	slog.Info("monitoring started, answer prompts with y or n")

	for {
		select {
		case <-watchdogCh:
			sdNotify("WATCHDOG=1")

		case <-ctx.Done():
			slog.Info("received signal, shutting down")
			sdNotify("STOPPING=1")

			<-scheduler.Stop().Done()
			assistant.Stop()
			if bridge != nil {
				bridge.Disable()
			}

			slog.Info("waiting for pending confirmations and escalations")
			assistant.Wait()
			if bridge != nil {
				bridge.Wait()
			}
			return nil
		}
	}
}

// sendDigest summarizes the last period and pushes it through sink.
func sendDigest(ctx context.Context, cfg *config.Config, st *stores, sink reporter.Sink, clk clock.Clock, period time.Duration) {
	until := clk.Now()
	since := until.Add(-period)

	d := reporter.BuildDigest(cfg.Instance.ID, st.events.Since(since), st.alerts.Since(since), since, until)
	if err := sink.Notify(ctx, reporter.DigestNotice(d)); err != nil {
		slog.Error("failed to send digest", "error", err)
		return
	}
	slog.Info("digest sent", "events", d.Events, "alerts", d.Alerts)
}
