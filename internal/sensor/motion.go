package sensor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/setevik/safetywatch/internal/motion"
)

// motionLine is the JSON shape a motion helper prints, one per line.
// Gravity reports whether x/y/z include gravity.
type motionLine struct {
	X         *float64 `json:"x"`
	Y         *float64 `json:"y"`
	Z         *float64 `json:"z"`
	Gravity   bool     `json:"gravity"`
	Timestamp int64    `json:"timestamp"`
}

// parseMotion decodes one helper line into a reading.
func parseMotion(line []byte) (motion.Reading, error) {
	var m motionLine
	if err := json.Unmarshal(line, &m); err != nil {
		return motion.Reading{}, fmt.Errorf("unmarshal motion: %w", err)
	}
	if m.X == nil || m.Y == nil || m.Z == nil {
		return motion.Reading{}, fmt.Errorf("motion reading missing axis")
	}

	v := &motion.Vector{X: *m.X, Y: *m.Y, Z: *m.Z}
	r := motion.Reading{}
	if m.Gravity {
		r.IncludingGravity = v
	} else {
		r.Acceleration = v
	}
	if m.Timestamp > 0 {
		r.Timestamp = time.UnixMilli(m.Timestamp)
	}
	return r, nil
}

// MotionSource turns a LineSource into a motion.Source. The helper runs
// only while at least one subscriber is attached.
type MotionSource struct {
	src LineSource

	mu     sync.Mutex
	subs   map[int]func(motion.Reading)
	nextID int
	cancel context.CancelFunc
}

// NewMotionSource creates a MotionSource reading from src.
func NewMotionSource(src LineSource) *MotionSource {
	return &MotionSource{src: src, subs: make(map[int]func(motion.Reading))}
}

func (m *MotionSource) Subscribe(fn func(motion.Reading)) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.subs) == 0 {
		ctx, cancel := context.WithCancel(context.Background())
		lines, err := m.src.Lines(ctx)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("starting motion sensor: %w", err)
		}
		m.cancel = cancel
		go m.run(lines)
	}

	id := m.nextID
	m.nextID++
	m.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() { m.unsubscribe(id) })
	}, nil
}

func (m *MotionSource) unsubscribe(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, id)
	if len(m.subs) == 0 && m.cancel != nil {
		m.cancel()
		m.cancel = nil
		m.src.Stop()
	}
}

func (m *MotionSource) run(lines <-chan []byte) {
	for line := range lines {
		r, err := parseMotion(line)
		if err != nil {
			slog.Debug("skipping unparseable motion line", "error", err)
			continue
		}

		m.mu.Lock()
		ids := make([]int, 0, len(m.subs))
		for id := range m.subs {
			ids = append(ids, id)
		}
		m.mu.Unlock()
		sort.Ints(ids)

		for _, id := range ids {
			// A subscriber removed by an earlier callback gets nothing more.
			m.mu.Lock()
			fn, ok := m.subs[id]
			m.mu.Unlock()
			if ok {
				fn(r)
			}
		}
	}
}
