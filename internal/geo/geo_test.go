package geo

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setevik/safetywatch/internal/clock"
	"github.com/setevik/safetywatch/internal/event"
)

var t0 = time.Date(2026, 2, 19, 14, 0, 0, 0, time.UTC)

type countingProvider struct {
	calls atomic.Int32
	inner Provider
}

func (c *countingProvider) CurrentPosition(ctx context.Context) (event.Location, error) {
	c.calls.Add(1)
	return c.inner.CurrentPosition(ctx)
}

type blockingProvider struct{}

func (blockingProvider) CurrentPosition(ctx context.Context) (event.Location, error) {
	<-ctx.Done()
	return event.Location{}, ctx.Err()
}

func TestAcquireStatic(t *testing.T) {
	clk := clock.NewFake(t0)
	l := NewLocator(Static{Latitude: 52.52, Longitude: 13.405, Accuracy: 20, Clock: clk}, clk, time.Second, 0)

	loc := l.Acquire(context.Background())
	require.NotNil(t, loc)
	assert.Equal(t, 52.52, loc.Latitude)
	assert.Equal(t, t0, loc.Timestamp)
}

func TestAcquireFailuresReturnNil(t *testing.T) {
	for _, p := range []Provider{Unsupported{}, Denied{}, nil} {
		l := NewLocator(p, clock.NewFake(t0), time.Second, time.Minute)
		assert.Nil(t, l.Acquire(context.Background()))
	}
}

func TestAcquireTimeout(t *testing.T) {
	l := NewLocator(blockingProvider{}, clock.NewFake(t0), 20*time.Millisecond, 0)

	start := time.Now()
	assert.Nil(t, l.Acquire(context.Background()))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFetchTimeoutError(t *testing.T) {
	l := NewLocator(blockingProvider{}, clock.NewFake(t0), 10*time.Millisecond, 0)
	_, err := l.fetch(context.Background())
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestAcquireUsesCacheWithinMaxAge(t *testing.T) {
	clk := clock.NewFake(t0)
	p := &countingProvider{inner: Static{Latitude: 1, Longitude: 2, Clock: clk}}
	l := NewLocator(p, clk, time.Second, 5*time.Minute)

	l.Acquire(context.Background())
	clk.Advance(4 * time.Minute)
	l.Acquire(context.Background())
	assert.EqualValues(t, 1, p.calls.Load())

	clk.Advance(2 * time.Minute)
	l.Acquire(context.Background())
	assert.EqualValues(t, 2, p.calls.Load())

	l.Forget()
	l.Acquire(context.Background())
	assert.EqualValues(t, 3, p.calls.Load())
}

func TestMapURL(t *testing.T) {
	got := MapURL(event.Location{Latitude: 40.7128, Longitude: -74.006})
	assert.Equal(t, "https://www.google.com/maps?q=40.712800,-74.006000", got)
}

func TestOpenGeoIPErrors(t *testing.T) {
	_, err := OpenGeoIP(filepath.Join(t.TempDir(), "missing.mmdb"), "8.8.8.8", clock.New())
	assert.Error(t, err)

	_, err = OpenGeoIP("whatever.mmdb", "not-an-ip", clock.New())
	assert.Error(t, err)
}
