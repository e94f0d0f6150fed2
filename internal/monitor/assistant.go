// Package monitor runs the safety monitoring pipeline: motion and speech
// detectors feed the event log, a periodic correlation pass merges recent
// events, and confirmed events are escalated to an emergency alert.
package monitor

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/setevik/safetywatch/internal/clock"
	"github.com/setevik/safetywatch/internal/confirm"
	"github.com/setevik/safetywatch/internal/dispatch"
	"github.com/setevik/safetywatch/internal/event"
	"github.com/setevik/safetywatch/internal/history"
	"github.com/setevik/safetywatch/internal/metrics"
	"github.com/setevik/safetywatch/internal/motion"
	"github.com/setevik/safetywatch/internal/reporter"
	"github.com/setevik/safetywatch/internal/shake"
	"github.com/setevik/safetywatch/internal/speech"
)

// Motion indicators always score critical.
const (
	motionScore      = 1.0
	motionConfidence = 0.9
)

// Escalator sends the emergency alert for a confirmed event.
type Escalator interface {
	Dispatch(ctx context.Context, t event.AlertType, info string) (*dispatch.Outcome, error)
}

// Correlation tunes the periodic merge of recent events.
type Correlation struct {
	Interval  time.Duration
	Window    time.Duration
	MinEvents int
}

// DefaultCorrelation checks every second for two or more events in the
// trailing 30 seconds.
func DefaultCorrelation() Correlation {
	return Correlation{Interval: time.Second, Window: 30 * time.Second, MinEvents: 2}
}

// Components are the collaborators an Assistant drives. Motion, Speech,
// Sink and Metrics may be nil.
type Components struct {
	Clock       clock.Clock
	Motion      *motion.Sampler
	MotionShake shake.Config
	Speech      speech.Recognizer
	Events      *history.EventStore
	Gate        *confirm.Gate
	Escalator   Escalator
	Sink        reporter.Sink
	Metrics     *metrics.Metrics
	Correlation Correlation
}

// Assistant owns the monitoring lifecycle.
type Assistant struct {
	c        Components
	detector *shake.Detector
	listener *speech.Listener

	mu         sync.Mutex
	running    bool
	tick       clock.Timer
	correlated map[string]time.Time

	inflight sync.WaitGroup
}

// New wires an Assistant from its components.
func New(c Components) *Assistant {
	if c.Correlation.Interval <= 0 || c.Correlation.Window <= 0 {
		c.Correlation = DefaultCorrelation()
	}
	if c.Correlation.MinEvents < 1 {
		c.Correlation.MinEvents = 2
	}

	a := &Assistant{c: c, correlated: make(map[string]time.Time)}
	a.detector = shake.New(c.MotionShake, c.Clock, a.onMotion)
	a.listener = speech.NewListener(c.Speech, speech.NewAnalyzer(), c.Clock, a.Record)
	return a
}

// Start enables the detectors and the correlation pass. Unavailable sensors
// are logged and skipped.
func (a *Assistant) Start(ctx context.Context) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return
	}
	a.running = true
	a.mu.Unlock()

	motionOn := false
	if a.c.Motion != nil {
		motionOn = a.c.Motion.Enable(ctx, a.detector.Observe)
	}
	speechOn := a.listener.Start()

	a.mu.Lock()
	a.scheduleLocked()
	a.mu.Unlock()

	slog.Info("safety monitoring started", "motion", motionOn, "speech", speechOn,
		"correlation_window", a.c.Correlation.Window)
}

// Stop disables the detectors and the correlation pass. Prompts and
// escalations already under way run to completion.
func (a *Assistant) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	if a.tick != nil {
		a.tick.Stop()
		a.tick = nil
	}
	a.mu.Unlock()

	if a.c.Motion != nil {
		a.c.Motion.Disable()
	}
	a.detector.Reset()
	a.listener.Stop()
	slog.Info("safety monitoring stopped")
}

// Running reports whether monitoring is active.
func (a *Assistant) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// Wait blocks until every confirmation submitted so far has resolved and
// every escalation it started has finished. Call it after Stop.
func (a *Assistant) Wait() {
	a.inflight.Wait()
}

// Record appends ind as a new safety event and asks the user to confirm it.
func (a *Assistant) Record(ind event.Indicator) {
	a.c.Metrics.Indicator(string(ind.Kind), string(ind.Severity))

	ev, err := a.c.Events.Append(ind)
	if err != nil {
		slog.Error("failed to save safety event", "id", ev.ID, "error", err)
	}
	a.c.Metrics.Event(string(event.StatusDetected))
	a.submit(ev)
}

// submit hands ev to the gate. The pending confirmation counts as in-flight
// work until onConfirmation releases it.
func (a *Assistant) submit(ev *event.SafetyEvent) {
	a.inflight.Add(1)
	if !a.c.Gate.Submit(ev, a.onConfirmation) {
		a.inflight.Done()
	}
}

func (a *Assistant) onMotion(s motion.Sample) {
	payload := map[string]any{
		"acceleration": s.Magnitude,
		"x":            s.X,
		"y":            s.Y,
		"z":            s.Z,
	}
	a.Record(event.NewIndicator(event.KindMotion, motionScore, motionConfidence, s.Timestamp, payload))
}

func (a *Assistant) onConfirmation(res confirm.Result) {
	a.c.Metrics.Confirmation(string(res.Response))
	a.c.Metrics.Event(string(res.Event.Status))
	if !res.Confirmed {
		a.inflight.Done()
		return
	}

	go func() {
		defer a.inflight.Done()
		a.escalate(res.Event)
	}()
}

// escalate dispatches the alert and marks the event activated whether or
// not any channel delivered.
func (a *Assistant) escalate(ev *event.SafetyEvent) {
	info := "Safety monitoring detected distress: " + joinKinds(ev.Kinds())

	out, err := a.c.Escalator.Dispatch(context.Background(), event.AlertGeneral, info)
	if err != nil {
		slog.Error("emergency dispatch failed", "id", ev.ID, "error", err)
	}
	if out != nil && out.Alert.Location != nil {
		loc := *out.Alert.Location
		ev.Location = &loc
	}

	if err := ev.Transition(event.StatusEmergencyActivated); err != nil {
		slog.Warn("cannot activate emergency", "id", ev.ID, "error", err)
		return
	}
	if err := a.c.Events.Update(ev); err != nil {
		slog.Debug("activated event not in log", "id", ev.ID, "error", err)
	}
	a.c.Metrics.Event(string(event.StatusEmergencyActivated))
	slog.Info("emergency protocol activated", "id", ev.ID, "kinds", joinKinds(ev.Kinds()))

	if a.c.Sink != nil {
		n := reporter.Notice{
			Title:       "Emergency protocol activated",
			Description: info,
			Variant:     reporter.VariantDestructive,
		}
		if err := a.c.Sink.Notify(context.Background(), n); err != nil {
			slog.Warn("notice not delivered", "title", n.Title, "error", err)
		}
	}
}

func joinKinds(kinds []event.Kind) string {
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ", ")
}
