package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setevik/safetywatch/internal/clock"
	"github.com/setevik/safetywatch/internal/event"
	"github.com/setevik/safetywatch/internal/motion"
	"github.com/setevik/safetywatch/internal/reporter"
	"github.com/setevik/safetywatch/internal/shake"
)

type stubAlerter struct {
	mu    sync.Mutex
	types []event.AlertType
	infos []string
}

func (s *stubAlerter) SendDirectEmergencyAlert(_ context.Context, t event.AlertType, info string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types = append(s.types, t)
	s.infos = append(s.infos, info)
	return true
}

type collectSink struct {
	mu      sync.Mutex
	notices []reporter.Notice
}

func (c *collectSink) Notify(_ context.Context, n reporter.Notice) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notices = append(c.notices, n)
	return nil
}

func TestShakeBridgeSendsDirectAlert(t *testing.T) {
	clk := clock.NewFake(t0)
	src := motion.NewFakeSource()
	alerter := &stubAlerter{}
	sink := &collectSink{}

	b := NewShakeBridge(motion.NewSampler(src, clk), shake.Gesture(), clk, alerter, sink)
	require.True(t, b.Enable(context.Background()))

	hard := &motion.Vector{Z: 3 * shake.StandardGravity}
	for i := 0; i < 6; i++ {
		src.Emit(motion.Reading{IncludingGravity: hard, Timestamp: t0.Add(time.Duration(i*200) * time.Millisecond)})
	}
	b.Wait()

	assert.Equal(t, []event.AlertType{event.AlertGeneral}, alerter.types, "cooldown allows one alert")
	assert.Equal(t, "Emergency detected via triple-shake gesture", alerter.infos[0])
	require.Len(t, sink.notices, 1)
	assert.Equal(t, "Shake detected", sink.notices[0].Title)
	assert.Equal(t, "Triggering emergency protocol (3 shakes).", sink.notices[0].Description)
	assert.Equal(t, reporter.VariantDestructive, sink.notices[0].Variant)

	b.Disable()
	assert.Equal(t, 0, src.Subscribers())
	assert.Equal(t, 0, clk.Pending(), "cooldown timer cancelled")
}
