package motion

import (
	"context"
	"sync"
)

// FakeSource is an in-memory Source for tests and demos.
type FakeSource struct {
	// PermissionErr, when set, is returned from RequestPermission.
	PermissionErr error

	mu            sync.Mutex
	handlers      map[int]func(Reading)
	next          int
	permissionAsk int
}

// NewFakeSource creates a FakeSource that needs no consent.
func NewFakeSource() *FakeSource {
	return &FakeSource{handlers: make(map[int]func(Reading))}
}

func (f *FakeSource) Subscribe(fn func(Reading)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := f.next
	f.handlers[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers, id)
	}, nil
}

// Emit delivers r to every current subscriber.
func (f *FakeSource) Emit(r Reading) {
	f.mu.Lock()
	hs := make([]func(Reading), 0, len(f.handlers))
	for _, h := range f.handlers {
		hs = append(hs, h)
	}
	f.mu.Unlock()

	for _, h := range hs {
		h(r)
	}
}

// Subscribers returns the number of active subscriptions.
func (f *FakeSource) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handlers)
}

// ConsentSource wraps a FakeSource with a consent step.
type ConsentSource struct {
	*FakeSource
}

func (c ConsentSource) RequestPermission(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.permissionAsk++
	return c.PermissionErr
}

// PermissionRequests returns how many times consent was requested.
func (f *FakeSource) PermissionRequests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.permissionAsk
}
