// Package motion turns raw device-motion readings into magnitude samples.
package motion

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/setevik/safetywatch/internal/clock"
)

// Vector is a 3-axis acceleration in m/s².
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Magnitude returns the Euclidean norm of v.
func (v Vector) Magnitude() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Reading is one device-motion event as delivered by the platform. Either
// vector may be missing.
type Reading struct {
	IncludingGravity *Vector
	Acceleration     *Vector
	Timestamp        time.Time
}

// Sample is what subscribers receive for every usable reading.
type Sample struct {
	Magnitude float64
	X, Y, Z   float64
	Timestamp time.Time
}

// Source is the platform's device-motion event stream.
type Source interface {
	// Subscribe registers fn for every reading and returns a function that
	// removes the subscription.
	Subscribe(fn func(Reading)) (unsubscribe func(), err error)
}

// PermissionRequester is implemented by sources that need explicit consent
// before readings flow.
type PermissionRequester interface {
	RequestPermission(ctx context.Context) error
}

// Sampler subscribes to a Source and forwards magnitude samples. It holds no
// state beyond the subscription and the outcome of the consent request.
type Sampler struct {
	source Source
	clock  clock.Clock

	mu          sync.Mutex
	unsubscribe func()
	asked       bool
	denied      bool
}

// NewSampler creates a Sampler. A nil source means the platform has no
// motion capability; Enable then logs and does nothing.
func NewSampler(source Source, clk clock.Clock) *Sampler {
	return &Sampler{source: source, clock: clk}
}

// Enable starts delivering samples to fn. Consent is requested once, before
// the first subscription; unsupported capability, denied consent and
// subscription failures are logged and leave sampling off. It reports
// whether sampling is running.
func (s *Sampler) Enable(ctx context.Context, fn func(Sample)) bool {
	if s.source == nil {
		slog.Warn("device motion not supported")
		return false
	}

	if !s.consent(ctx) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}

	unsub, err := s.source.Subscribe(func(r Reading) {
		if sample, ok := s.toSample(r); ok {
			fn(sample)
		}
	})
	if err != nil {
		slog.Warn("motion subscription failed", "error", err)
		return false
	}
	s.unsubscribe = unsub
	slog.Debug("motion sampling enabled")
	return true
}

// Disable removes the subscription. Calling it when not enabled is a no-op.
func (s *Sampler) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
		slog.Debug("motion sampling disabled")
	}
}

// Enabled reports whether a subscription is active.
func (s *Sampler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribe != nil
}

func (s *Sampler) consent(ctx context.Context) bool {
	req, ok := s.source.(PermissionRequester)
	if !ok {
		return true
	}

	s.mu.Lock()
	if s.asked {
		denied := s.denied
		s.mu.Unlock()
		return !denied
	}
	s.mu.Unlock()

	err := req.RequestPermission(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.asked = true
	s.denied = err != nil
	if err != nil {
		slog.Warn("motion permission denied", "error", err)
		return false
	}
	return true
}

func (s *Sampler) toSample(r Reading) (Sample, bool) {
	v := r.IncludingGravity
	if v == nil {
		v = r.Acceleration
	}
	if v == nil {
		return Sample{}, false
	}

	ts := r.Timestamp
	if ts.IsZero() {
		ts = s.clock.Now()
	}
	return Sample{
		Magnitude: v.Magnitude(),
		X:         v.X,
		Y:         v.Y,
		Z:         v.Z,
		Timestamp: ts,
	}, true
}
