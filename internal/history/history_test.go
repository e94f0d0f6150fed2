package history

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setevik/safetywatch/internal/clock"
	"github.com/setevik/safetywatch/internal/event"
	"github.com/setevik/safetywatch/internal/store"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func motionIndicator(at time.Time) event.Indicator {
	return event.NewIndicator(event.KindMotion, 1, 0.9, at, map[string]any{"magnitude": 16.0})
}

func TestAppendPersistsImmediately(t *testing.T) {
	kv := store.NewMemory()
	clk := clock.NewFake(t0)
	s, err := OpenEvents(kv, clk)
	require.NoError(t, err)

	ev, err := s.Append(motionIndicator(t0))
	require.NoError(t, err)
	assert.Equal(t, event.StatusDetected, ev.Status)
	assert.Equal(t, t0, ev.DetectedAt)

	raw, ok, err := kv.Get(store.KeySafetyEvents)
	require.NoError(t, err)
	require.True(t, ok)

	var persisted []event.SafetyEvent
	require.NoError(t, json.Unmarshal([]byte(raw), &persisted))
	require.Len(t, persisted, 1)
	assert.Equal(t, ev.ID, persisted[0].ID)
	assert.Equal(t, event.KindMotion, persisted[0].Indicators[0].Kind)
}

func TestListInsertionOrder(t *testing.T) {
	clk := clock.NewFake(t0)
	s, err := OpenEvents(store.NewMemory(), clk)
	require.NoError(t, err)

	var ids []string
	for i := 0; i < 3; i++ {
		ev, err := s.Append(motionIndicator(clk.Now()))
		require.NoError(t, err)
		ids = append(ids, ev.ID)
		clk.Advance(time.Second)
	}

	list := s.List()
	require.Len(t, list, 3)
	for i, ev := range list {
		assert.Equal(t, ids[i], ev.ID)
	}
}

func TestListReturnsCopies(t *testing.T) {
	s, err := OpenEvents(store.NewMemory(), clock.NewFake(t0))
	require.NoError(t, err)

	ev, err := s.Append(motionIndicator(t0))
	require.NoError(t, err)

	// Mutating the caller's copy must not leak into the store.
	require.NoError(t, ev.Transition(event.StatusFalsePositive))
	assert.Equal(t, event.StatusDetected, s.List()[0].Status)

	require.NoError(t, s.Update(ev))
	assert.Equal(t, event.StatusFalsePositive, s.List()[0].Status)
}

func TestUpdateUnknownEvent(t *testing.T) {
	s, err := OpenEvents(store.NewMemory(), clock.NewFake(t0))
	require.NoError(t, err)

	combined := event.New("combined", t0, motionIndicator(t0))
	err = s.Update(combined)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClearThenAppend(t *testing.T) {
	kv := store.NewMemory()
	clk := clock.NewFake(t0)
	s, err := OpenEvents(kv, clk)
	require.NoError(t, err)

	_, err = s.Append(motionIndicator(t0))
	require.NoError(t, err)
	_, err = s.Append(motionIndicator(t0))
	require.NoError(t, err)

	require.NoError(t, s.Clear())
	_, ok, _ := kv.Get(store.KeySafetyEvents)
	assert.False(t, ok)

	fresh, err := s.Append(motionIndicator(t0))
	require.NoError(t, err)

	// Reopen from the same KV: only the newly appended event survives.
	reopened, err := OpenEvents(kv, clk)
	require.NoError(t, err)
	list := reopened.List()
	require.Len(t, list, 1)
	assert.Equal(t, fresh.ID, list[0].ID)
}

func TestSince(t *testing.T) {
	clk := clock.NewFake(t0)
	s, err := OpenEvents(store.NewMemory(), clk)
	require.NoError(t, err)

	_, _ = s.Append(motionIndicator(clk.Now()))
	clk.Advance(40 * time.Second)
	recent, _ := s.Append(motionIndicator(clk.Now()))

	got := s.Since(clk.Now().Add(-30 * time.Second))
	require.Len(t, got, 1)
	assert.Equal(t, recent.ID, got[0].ID)
}

func TestOpenEventsCorrupt(t *testing.T) {
	kv := store.NewMemory()
	require.NoError(t, kv.Set(store.KeySafetyEvents, "{not json"))

	_, err := OpenEvents(kv, clock.NewFake(t0))
	assert.Error(t, err)
}

func TestAlertStore(t *testing.T) {
	kv := store.NewMemory()
	s, err := OpenAlerts(kv)
	require.NoError(t, err)

	a := event.EmergencyAlert{
		ID:        "alert_1",
		Type:      event.AlertGeneral,
		Timestamp: t0,
		Status:    event.AlertSent,
	}
	require.NoError(t, s.Append(a))
	require.NoError(t, s.Append(event.EmergencyAlert{ID: "alert_2", Type: event.AlertFall, Timestamp: t0.Add(time.Hour), Status: event.AlertSent}))

	reopened, err := OpenAlerts(kv)
	require.NoError(t, err)
	list := reopened.List()
	require.Len(t, list, 2)
	assert.Equal(t, "alert_1", list[0].ID)
	assert.Nil(t, list[0].Location)

	assert.Len(t, reopened.Since(t0.Add(time.Minute)), 1)

	require.NoError(t, reopened.Clear())
	assert.Empty(t, reopened.List())
	_, ok, _ := kv.Get(store.KeyAlertHistory)
	assert.False(t, ok)
}
