package monitor

import (
	"log/slog"

	"github.com/setevik/safetywatch/internal/event"
)

func (a *Assistant) scheduleLocked() {
	a.tick = a.c.Clock.AfterFunc(a.c.Correlation.Interval, a.onTick)
}

func (a *Assistant) onTick() {
	a.Correlate()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		a.scheduleLocked()
	}
}

// Correlate merges the still-unconfirmed events of the trailing window into
// one combined event when there are enough of them, and submits it for
// confirmation. Each event takes part in at most one combined event. It
// returns the combined event, or nil.
func (a *Assistant) Correlate() *event.SafetyEvent {
	now := a.c.Clock.Now()
	cutoff := now.Add(-a.c.Correlation.Window)

	a.mu.Lock()
	for id, at := range a.correlated {
		if !at.After(cutoff) {
			delete(a.correlated, id)
		}
	}

	var matched []*event.SafetyEvent
	for _, ev := range a.c.Events.Since(cutoff) {
		if !ev.DetectedAt.After(cutoff) || ev.Status != event.StatusDetected {
			continue
		}
		if _, seen := a.correlated[ev.ID]; seen {
			continue
		}
		matched = append(matched, ev)
	}
	if len(matched) < a.c.Correlation.MinEvents {
		a.mu.Unlock()
		return nil
	}

	var inds []event.Indicator
	ids := make([]string, 0, len(matched))
	for _, ev := range matched {
		a.correlated[ev.ID] = ev.DetectedAt
		inds = append(inds, ev.Indicators...)
		ids = append(ids, ev.ID)
	}
	a.mu.Unlock()

	combined := event.New("combined", now, inds...)
	slog.Info("correlated safety events", "id", combined.ID, "events", ids, "severity", combined.MaxSeverity())
	a.c.Metrics.Event(string(event.StatusDetected))
	a.submit(combined)
	return combined
}
