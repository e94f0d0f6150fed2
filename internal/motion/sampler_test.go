package motion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setevik/safetywatch/internal/clock"
)

func TestMagnitude(t *testing.T) {
	v := Vector{X: 3, Y: 4, Z: 12}
	assert.InDelta(t, 13.0, v.Magnitude(), 1e-9)
}

func TestSamplerForwardsMagnitude(t *testing.T) {
	src := NewFakeSource()
	clk := clock.NewFake(time.Unix(1000, 0))
	s := NewSampler(src, clk)

	var got []Sample
	require.True(t, s.Enable(context.Background(), func(smp Sample) { got = append(got, smp) }))

	ts := time.Unix(2000, 0)
	src.Emit(Reading{IncludingGravity: &Vector{X: 3, Y: 4, Z: 0}, Timestamp: ts})
	src.Emit(Reading{Acceleration: &Vector{X: 0, Y: 0, Z: 2}})
	src.Emit(Reading{}) // neither vector: ignored

	require.Len(t, got, 2)
	assert.InDelta(t, 5.0, got[0].Magnitude, 1e-9)
	assert.Equal(t, ts, got[0].Timestamp)
	assert.InDelta(t, 2.0, got[1].Magnitude, 1e-9)
	assert.Equal(t, clk.Now(), got[1].Timestamp, "missing timestamp falls back to the clock")
}

func TestSamplerPrefersGravityVector(t *testing.T) {
	src := NewFakeSource()
	s := NewSampler(src, clock.NewFake(time.Unix(0, 0)))

	var got Sample
	s.Enable(context.Background(), func(smp Sample) { got = smp })
	src.Emit(Reading{
		IncludingGravity: &Vector{Z: 9.8},
		Acceleration:     &Vector{Z: 0.1},
	})
	assert.InDelta(t, 9.8, got.Magnitude, 1e-9)
}

func TestSamplerDisableIdempotent(t *testing.T) {
	src := NewFakeSource()
	s := NewSampler(src, clock.NewFake(time.Unix(0, 0)))

	calls := 0
	s.Enable(context.Background(), func(Sample) { calls++ })
	assert.True(t, s.Enabled())

	s.Disable()
	s.Disable()
	assert.False(t, s.Enabled())
	assert.Equal(t, 0, src.Subscribers())

	src.Emit(Reading{Acceleration: &Vector{X: 1}})
	assert.Equal(t, 0, calls)
}

func TestSamplerReEnableReplacesSubscription(t *testing.T) {
	src := NewFakeSource()
	s := NewSampler(src, clock.NewFake(time.Unix(0, 0)))

	s.Enable(context.Background(), func(Sample) {})
	s.Enable(context.Background(), func(Sample) {})
	assert.Equal(t, 1, src.Subscribers())
}

func TestSamplerUnsupported(t *testing.T) {
	s := NewSampler(nil, clock.NewFake(time.Unix(0, 0)))
	assert.False(t, s.Enable(context.Background(), func(Sample) {}))
	s.Disable()
}

func TestSamplerConsentDenied(t *testing.T) {
	fake := NewFakeSource()
	fake.PermissionErr = errors.New("denied by user")
	src := ConsentSource{fake}
	s := NewSampler(src, clock.NewFake(time.Unix(0, 0)))

	assert.False(t, s.Enable(context.Background(), func(Sample) {}))
	assert.False(t, s.Enable(context.Background(), func(Sample) {}))
	assert.Equal(t, 1, fake.PermissionRequests(), "consent is asked once, never retried")
	assert.Equal(t, 0, fake.Subscribers())
}

func TestSamplerConsentGranted(t *testing.T) {
	fake := NewFakeSource()
	src := ConsentSource{fake}
	s := NewSampler(src, clock.NewFake(time.Unix(0, 0)))

	assert.True(t, s.Enable(context.Background(), func(Sample) {}))
	s.Disable()
	assert.True(t, s.Enable(context.Background(), func(Sample) {}))
	assert.Equal(t, 1, fake.PermissionRequests())
}
