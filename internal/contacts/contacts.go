// Package contacts manages the emergency contact list. At most one contact is
// primary; the first contact ever added is promoted automatically.
package contacts

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/setevik/safetywatch/internal/clock"
	"github.com/setevik/safetywatch/internal/event"
	"github.com/setevik/safetywatch/internal/store"
)

// Relationship labels offered when adding a contact.
const (
	RelFamily    = "Family"
	RelFriend    = "Friend"
	RelNeighbor  = "Neighbor"
	RelDoctor    = "Doctor"
	RelTherapist = "Therapist"
	RelOther     = "Other"
)

var (
	ErrNotFound      = errors.New("contact not found")
	ErrPhoneRequired = errors.New("contact phone is required")
)

// Contact is a person notified when an emergency alert is dispatched.
type Contact struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	Relationship string `json:"relationship"`
	IsPrimary    bool   `json:"isPrimary"`
	IsActive     bool   `json:"isActive"`
}

// Update carries a partial contact update; nil fields are left unchanged.
type Update struct {
	Name         *string
	Phone        *string
	Email        *string
	Relationship *string
	IsPrimary    *bool
	IsActive     *bool
}

// Manager owns the persisted contact list.
type Manager struct {
	kv    store.KV
	clock clock.Clock

	mu       sync.Mutex
	contacts []Contact
}

// Open loads the persisted contact list from kv. clk stamps new contact ids.
func Open(kv store.KV, clk clock.Clock) (*Manager, error) {
	m := &Manager{kv: kv, clock: clk}

	raw, ok, err := kv.Get(store.KeyContacts)
	if err != nil {
		return nil, fmt.Errorf("loading contacts: %w", err)
	}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &m.contacts); err != nil {
			return nil, fmt.Errorf("decoding contacts: %w", err)
		}
	}
	return m, nil
}

// Add stores a new contact and returns its id. The first contact, or one
// marked primary, becomes the sole primary contact.
func (m *Manager) Add(c Contact) (string, error) {
	c.Phone = strings.TrimSpace(c.Phone)
	if c.Phone == "" {
		return "", ErrPhoneRequired
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c.ID = event.NewID("contact", m.clock.Now())
	if len(m.contacts) == 0 || c.IsPrimary {
		m.clearPrimaryLocked()
		c.IsPrimary = true
	}

	m.contacts = append(m.contacts, c)
	if err := m.saveLocked(); err != nil {
		return c.ID, err
	}

	slog.Info("emergency contact added", "id", c.ID, "name", c.Name, "primary", c.IsPrimary)
	return c.ID, nil
}

// Update applies u to the contact with the given id. Setting IsPrimary clears
// the flag on every other contact.
func (m *Manager) Update(id string, u Update) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("updating %s: %w", id, ErrNotFound)
	}

	c := m.contacts[i]
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Phone != nil {
		phone := strings.TrimSpace(*u.Phone)
		if phone == "" {
			return ErrPhoneRequired
		}
		c.Phone = phone
	}
	if u.Email != nil {
		c.Email = *u.Email
	}
	if u.Relationship != nil {
		c.Relationship = *u.Relationship
	}
	if u.IsActive != nil {
		c.IsActive = *u.IsActive
	}
	if u.IsPrimary != nil {
		if *u.IsPrimary {
			m.clearPrimaryLocked()
		}
		c.IsPrimary = *u.IsPrimary
	}

	m.contacts[i] = c
	return m.saveLocked()
}

// SetPrimary makes the contact with the given id the sole primary contact.
func (m *Manager) SetPrimary(id string) error {
	primary := true
	return m.Update(id, Update{IsPrimary: &primary})
}

// Remove deletes the contact with the given id.
func (m *Manager) Remove(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("removing %s: %w", id, ErrNotFound)
	}
	m.contacts = append(m.contacts[:i], m.contacts[i+1:]...)
	return m.saveLocked()
}

// List returns every contact in insertion order.
func (m *Manager) List() []Contact {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Contact(nil), m.contacts...)
}

// Primary returns the primary contact if it is also active.
func (m *Manager) Primary() (Contact, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, c := range m.contacts {
		if c.IsPrimary && c.IsActive {
			return c, true
		}
	}
	return Contact{}, false
}

// Active returns the contacts that should receive alerts.
func (m *Manager) Active() []Contact {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Contact
	for _, c := range m.contacts {
		if c.IsActive {
			out = append(out, c)
		}
	}
	return out
}

func (m *Manager) clearPrimaryLocked() {
	for i := range m.contacts {
		m.contacts[i].IsPrimary = false
	}
}

func (m *Manager) indexLocked(id string) int {
	for i, c := range m.contacts {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) saveLocked() error {
	data, err := json.Marshal(m.contacts)
	if err != nil {
		return fmt.Errorf("encoding contacts: %w", err)
	}
	if err := m.kv.Set(store.KeyContacts, string(data)); err != nil {
		slog.Error("failed to save emergency contacts", "error", err)
		return err
	}
	return nil
}
