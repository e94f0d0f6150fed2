// Package history owns the append-only safety event log and the emergency
// alert history. Both persist their whole collection through a store.KV on
// every mutation.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/setevik/safetywatch/internal/clock"
	"github.com/setevik/safetywatch/internal/event"
	"github.com/setevik/safetywatch/internal/store"
)

// ErrNotFound is returned by Update for events the store has never seen.
var ErrNotFound = errors.New("event not found")

// EventStore is the SafetyEvent log. Detectors only append; the confirmation
// and dispatch pipeline updates status and location in place.
type EventStore struct {
	kv    store.KV
	clock clock.Clock

	mu     sync.Mutex
	events []*event.SafetyEvent
}

// OpenEvents loads any persisted safety events from kv.
func OpenEvents(kv store.KV, clk clock.Clock) (*EventStore, error) {
	s := &EventStore{kv: kv, clock: clk}
	if err := load(kv, store.KeySafetyEvents, &s.events); err != nil {
		return nil, err
	}
	return s, nil
}

// Append wraps a single indicator in a new detected event and persists the
// log immediately. The returned event is a copy owned by the caller.
func (s *EventStore) Append(ind event.Indicator) (*event.SafetyEvent, error) {
	ev := event.New("safety", s.clock.Now(), ind)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, ev)
	if err := s.saveLocked(); err != nil {
		return ev.Clone(), err
	}

	slog.Info("safety event detected",
		"id", ev.ID,
		"kind", ind.Kind,
		"severity", ind.Severity,
		"confidence", ind.Confidence,
	)
	return ev.Clone(), nil
}

// Update replaces the stored copy of ev (matched by ID) and persists the log.
func (s *EventStore) Update(ev *event.SafetyEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, cur := range s.events {
		if cur.ID == ev.ID {
			s.events[i] = ev.Clone()
			return s.saveLocked()
		}
	}
	return fmt.Errorf("updating %s: %w", ev.ID, ErrNotFound)
}

// List returns all events in insertion order.
func (s *EventStore) List() []*event.SafetyEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*event.SafetyEvent, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Clone()
	}
	return out
}

// Since returns events detected at or after t, in insertion order.
func (s *EventStore) Since(t time.Time) []*event.SafetyEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*event.SafetyEvent
	for _, ev := range s.events {
		if !ev.DetectedAt.Before(t) {
			out = append(out, ev.Clone())
		}
	}
	return out
}

// Clear removes every event.
func (s *EventStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = nil
	if err := s.kv.Remove(store.KeySafetyEvents); err != nil {
		return fmt.Errorf("clearing safety events: %w", err)
	}
	slog.Info("safety events cleared")
	return nil
}

func (s *EventStore) saveLocked() error {
	return save(s.kv, store.KeySafetyEvents, s.events)
}

func load(kv store.KV, key string, into any) error {
	raw, ok, err := kv.Get(key)
	if err != nil {
		return fmt.Errorf("loading %s: %w", key, err)
	}
	if !ok || raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), into); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

func save(kv store.KV, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	if err := kv.Set(key, string(data)); err != nil {
		slog.Error("failed to save history", "key", key, "error", err)
		return err
	}
	return nil
}
