package history

import (
	"fmt"
	"sync"
	"time"

	"github.com/setevik/safetywatch/internal/event"
	"github.com/setevik/safetywatch/internal/store"
)

// AlertStore is the append-only EmergencyAlert history, kept apart from the
// safety event log.
type AlertStore struct {
	kv store.KV

	mu     sync.Mutex
	alerts []event.EmergencyAlert
}

// OpenAlerts loads any persisted alert history from kv.
func OpenAlerts(kv store.KV) (*AlertStore, error) {
	s := &AlertStore{kv: kv}
	if err := load(kv, store.KeyAlertHistory, &s.alerts); err != nil {
		return nil, err
	}
	return s, nil
}

// Append records an alert and persists the history immediately. The alert
// stays in memory even when persisting fails.
func (s *AlertStore) Append(a event.EmergencyAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts = append(s.alerts, a)
	return save(s.kv, store.KeyAlertHistory, s.alerts)
}

// List returns all alerts in insertion order.
func (s *AlertStore) List() []event.EmergencyAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.EmergencyAlert(nil), s.alerts...)
}

// Since returns alerts raised at or after t.
func (s *AlertStore) Since(t time.Time) []event.EmergencyAlert {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []event.EmergencyAlert
	for _, a := range s.alerts {
		if !a.Timestamp.Before(t) {
			out = append(out, a)
		}
	}
	return out
}

// Clear removes the whole alert history.
func (s *AlertStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts = nil
	if err := s.kv.Remove(store.KeyAlertHistory); err != nil {
		return fmt.Errorf("clearing alert history: %w", err)
	}
	return nil
}
