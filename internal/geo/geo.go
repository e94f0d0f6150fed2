// Package geo resolves the device position for emergency alerts.
package geo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/setevik/safetywatch/internal/clock"
	"github.com/setevik/safetywatch/internal/event"
)

var (
	ErrUnsupported      = errors.New("geolocation not supported")
	ErrPermissionDenied = errors.New("geolocation permission denied")
	ErrTimeout          = errors.New("geolocation timed out")
)

// Provider returns a position fix.
type Provider interface {
	CurrentPosition(ctx context.Context) (event.Location, error)
}

const (
	DefaultTimeout = 10 * time.Second
	DefaultMaxAge  = 5 * time.Minute
)

const fixKey = "fix"

// Locator bounds how long a fix may take and reuses a recent one.
type Locator struct {
	provider Provider
	clock    clock.Clock
	timeout  time.Duration
	maxAge   time.Duration
	cache    *gocache.Cache
}

// NewLocator creates a Locator. A nil provider behaves like Unsupported.
func NewLocator(p Provider, clk clock.Clock, timeout, maxAge time.Duration) *Locator {
	if p == nil {
		p = Unsupported{}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Locator{
		provider: p,
		clock:    clk,
		timeout:  timeout,
		maxAge:   maxAge,
		cache:    gocache.New(maxAge, 2*maxAge),
	}
}

// Acquire returns the current location, or nil when none could be had in
// time. Failures are logged, never returned.
func (l *Locator) Acquire(ctx context.Context) *event.Location {
	if loc, ok := l.cached(); ok {
		slog.Debug("using cached location", "age", l.clock.Now().Sub(loc.Timestamp))
		return &loc
	}

	loc, err := l.fetch(ctx)
	if err != nil {
		slog.Warn("location unavailable", "error", err)
		return nil
	}
	if loc.Timestamp.IsZero() {
		loc.Timestamp = l.clock.Now()
	}
	if l.maxAge > 0 {
		l.cache.Set(fixKey, loc, gocache.DefaultExpiration)
	}
	return &loc
}

// Forget drops any cached fix.
func (l *Locator) Forget() {
	l.cache.Delete(fixKey)
}

func (l *Locator) cached() (event.Location, bool) {
	if l.maxAge <= 0 {
		return event.Location{}, false
	}
	v, ok := l.cache.Get(fixKey)
	if !ok {
		return event.Location{}, false
	}
	loc := v.(event.Location)
	if l.clock.Now().Sub(loc.Timestamp) > l.maxAge {
		l.cache.Delete(fixKey)
		return event.Location{}, false
	}
	return loc, true
}

func (l *Locator) fetch(ctx context.Context) (event.Location, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	type result struct {
		loc event.Location
		err error
	}
	ch := make(chan result, 1)
	go func() {
		loc, err := l.provider.CurrentPosition(ctx)
		ch <- result{loc, err}
	}()

	select {
	case r := <-ch:
		return r.loc, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return event.Location{}, fmt.Errorf("after %s: %w", l.timeout, ErrTimeout)
		}
		return event.Location{}, ctx.Err()
	}
}

// MapURL links to the location on a public map.
func MapURL(loc event.Location) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%f,%f", loc.Latitude, loc.Longitude)
}
