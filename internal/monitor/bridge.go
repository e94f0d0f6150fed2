package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/setevik/safetywatch/internal/clock"
	"github.com/setevik/safetywatch/internal/event"
	"github.com/setevik/safetywatch/internal/motion"
	"github.com/setevik/safetywatch/internal/reporter"
	"github.com/setevik/safetywatch/internal/shake"
)

// Alerter sends a direct emergency alert.
type Alerter interface {
	SendDirectEmergencyAlert(ctx context.Context, t event.AlertType, info string) bool
}

// ShakeBridge turns the UI shake gesture into a direct emergency alert,
// bypassing confirmation.
type ShakeBridge struct {
	sampler  *motion.Sampler
	detector *shake.Detector
	alerter  Alerter
	sink     reporter.Sink
	required int

	inflight sync.WaitGroup
}

// NewShakeBridge creates a bridge over sampler using the gesture cfg.
func NewShakeBridge(sampler *motion.Sampler, cfg shake.Config, clk clock.Clock, alerter Alerter, sink reporter.Sink) *ShakeBridge {
	b := &ShakeBridge{sampler: sampler, alerter: alerter, sink: sink, required: cfg.Required}
	b.detector = shake.New(cfg, clk, b.onShake)
	return b
}

// Enable starts listening for the gesture.
func (b *ShakeBridge) Enable(ctx context.Context) bool {
	return b.sampler.Enable(ctx, b.detector.Observe)
}

// Disable stops listening and cancels any pending cooldown.
func (b *ShakeBridge) Disable() {
	b.sampler.Disable()
	b.detector.Reset()
}

// Wait blocks until alerts triggered so far have been sent.
func (b *ShakeBridge) Wait() {
	b.inflight.Wait()
}

func (b *ShakeBridge) onShake(motion.Sample) {
	if b.sink != nil {
		n := reporter.Notice{
			Title:       "Shake detected",
			Description: fmt.Sprintf("Triggering emergency protocol (%d shakes).", b.required),
			Variant:     reporter.VariantDestructive,
		}
		if err := b.sink.Notify(context.Background(), n); err != nil {
			slog.Warn("notice not delivered", "title", n.Title, "error", err)
		}
	}

	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		if !b.alerter.SendDirectEmergencyAlert(context.Background(), event.AlertGeneral, "Emergency detected via triple-shake gesture") {
			slog.Error("emergency alert failed from shake")
		}
	}()
}
