// Package shake detects shake gestures: a run of acceleration spikes that
// arrive close enough together, followed by a cooldown.
package shake

import (
	"sync"
	"time"

	"github.com/setevik/safetywatch/internal/clock"
	"github.com/setevik/safetywatch/internal/motion"
)

// StandardGravity converts m/s² to g.
const StandardGravity = 9.80665

// Config tunes a Detector. Threshold is compared against the sample
// magnitude divided by Unit, so the same detector serves raw-acceleration and
// g-force configurations.
type Config struct {
	Threshold float64
	Unit      float64
	Window    time.Duration
	Required  int
	// Cooldown suppresses further firing after a shake. Zero disables it.
	Cooldown time.Duration
}

// Gesture is the UI shake gesture: three shakes above 2.2 g within 800ms each,
// then four seconds of quiet.
func Gesture() Config {
	return Config{
		Threshold: 2.2,
		Unit:      StandardGravity,
		Window:    800 * time.Millisecond,
		Required:  3,
		Cooldown:  4 * time.Second,
	}
}

// Distress is the safety monitor's motion detector: three raw-acceleration
// spikes above 15 m/s² within 2s of each other.
func Distress() Config {
	return Config{
		Threshold: 15,
		Unit:      1,
		Window:    2 * time.Second,
		Required:  3,
	}
}

// Detector counts qualifying spikes and fires its callback once per run.
type Detector struct {
	cfg    Config
	clock  clock.Clock
	onFire func(motion.Sample)

	mu          sync.Mutex
	lastSpike   time.Time
	consecutive int
	cooling     bool
	timer       clock.Timer
}

// New creates a Detector that calls onFire with the sample completing a run.
func New(cfg Config, clk clock.Clock, onFire func(motion.Sample)) *Detector {
	if cfg.Unit <= 0 {
		cfg.Unit = 1
	}
	if cfg.Required < 1 {
		cfg.Required = 1
	}
	return &Detector{cfg: cfg, clock: clk, onFire: onFire}
}

// Observe feeds one motion sample through the detector.
func (d *Detector) Observe(s motion.Sample) {
	if s.Magnitude/d.cfg.Unit <= d.cfg.Threshold {
		return
	}

	d.mu.Lock()
	if !d.lastSpike.IsZero() && s.Timestamp.Sub(d.lastSpike) <= d.cfg.Window {
		d.consecutive++
	} else {
		d.consecutive = 1
	}
	d.lastSpike = s.Timestamp

	if d.consecutive < d.cfg.Required || d.cooling {
		d.mu.Unlock()
		return
	}

	d.consecutive = 0
	if d.cfg.Cooldown > 0 {
		d.cooling = true
		d.timer = d.clock.AfterFunc(d.cfg.Cooldown, d.endCooldown)
	}
	d.mu.Unlock()

	d.onFire(s)
}

// Reset cancels a pending cooldown and forgets the current run. It is safe to
// call at any time, including repeatedly.
func (d *Detector) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.cooling = false
	d.consecutive = 0
	d.lastSpike = time.Time{}
}

// CoolingDown reports whether the detector is suppressing callbacks.
func (d *Detector) CoolingDown() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cooling
}

func (d *Detector) endCooldown() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cooling = false
	d.timer = nil
}
