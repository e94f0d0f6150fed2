package sensor

import (
	"context"
	"log/slog"
	"time"
)

// Supervised wraps a LineSource with automatic restart on failure.
type Supervised struct {
	name        string
	factory     func() LineSource
	restartWait time.Duration
	maxRestarts int
}

// NewSupervised creates a supervised wrapper around a source factory.
// On source failure, it waits restartWait before creating a new source.
// maxRestarts of 0 means unlimited restarts.
func NewSupervised(name string, factory func() LineSource, restartWait time.Duration, maxRestarts int) *Supervised {
	return &Supervised{
		name:        name,
		factory:     factory,
		restartWait: restartWait,
		maxRestarts: maxRestarts,
	}
}

// Lines starts the supervised loop. The returned channel receives lines
// across restarts and is closed when the context is cancelled or max
// restarts are exceeded.
func (s *Supervised) Lines(ctx context.Context) (<-chan []byte, error) {
	out := make(chan []byte, 64)

	go func() {
		defer close(out)

		restarts := 0
		for {
			if s.maxRestarts > 0 && restarts >= s.maxRestarts {
				slog.Error("sensor exceeded max restarts", "sensor", s.name, "max", s.maxRestarts)
				return
			}

			source := s.factory()
			lines, err := source.Lines(ctx)
			if err != nil {
				slog.Error("failed to start sensor", "sensor", s.name, "error", err, "restart_count", restarts)
				select {
				case <-ctx.Done():
					return
				case <-time.After(s.restartWait):
					restarts++
					continue
				}
			}

			done := false
			for !done {
				select {
				case line, ok := <-lines:
					if !ok {
						done = true
						break
					}
					select {
					case out <- line:
					case <-ctx.Done():
						source.Stop()
						return
					}
				case <-ctx.Done():
					source.Stop()
					return
				}
			}

			slog.Warn("sensor stopped, restarting", "sensor", s.name, "restart_count", restarts)
			source.Stop()
			restarts++

			select {
			case <-ctx.Done():
				return
			case <-time.After(s.restartWait):
			}
		}
	}()

	return out, nil
}

// Stop is a no-op; cancel the context passed to Lines instead.
func (s *Supervised) Stop() {}
