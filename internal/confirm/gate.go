// Package confirm asks the user whether a detected safety event is real.
// Silence counts as yes: a missed emergency is worse than a false alarm.
package confirm

import (
	"log/slog"
	"sync"
	"time"

	"github.com/setevik/safetywatch/internal/clock"
	"github.com/setevik/safetywatch/internal/event"
)

// DefaultTimeout is how long a prompt waits before resolving as confirmed.
const DefaultTimeout = 10 * time.Second

// Prompter presents the yes/no question to the user.
type Prompter interface {
	// Show displays the prompt for ev. answer may be called at most once,
	// from any goroutine; calls after the prompt resolved are ignored.
	Show(ev *event.SafetyEvent, answer func(yes bool))
	// Dismiss removes the prompt for the given event id after a timeout.
	Dismiss(id string)
}

// Result is the resolution of one prompt.
type Result struct {
	Event     *event.SafetyEvent
	Confirmed bool
	Response  event.UserResponse
}

// Recorder persists an event whose status the gate changed.
type Recorder func(*event.SafetyEvent) error

// Gate serializes confirmation prompts: one is visible at a time, later
// submissions wait in FIFO order.
type Gate struct {
	prompter Prompter
	clock    clock.Clock
	timeout  time.Duration
	record   Recorder

	mu     sync.Mutex
	queue  []*prompt
	active *prompt
	seq    int
}

type prompt struct {
	ev    *event.SafetyEvent
	done  func(Result)
	seq   int
	timer clock.Timer
}

// New creates a Gate. record may be nil.
func New(p Prompter, clk clock.Clock, timeout time.Duration, record Recorder) *Gate {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Gate{prompter: p, clock: clk, timeout: timeout, record: record}
}

// Submit queues ev for confirmation; done is called exactly once with the
// outcome. Events that already left the detected status are ignored, done is
// never called for them and Submit returns false.
func (g *Gate) Submit(ev *event.SafetyEvent, done func(Result)) bool {
	if ev.Status != event.StatusDetected {
		slog.Debug("confirmation skipped", "id", ev.ID, "status", ev.Status)
		return false
	}

	g.mu.Lock()
	g.queue = append(g.queue, &prompt{ev: ev, done: done})
	idle := g.active == nil
	g.mu.Unlock()

	if idle {
		g.next()
	}
	return true
}

// Pending returns the number of events waiting or being prompted.
func (g *Gate) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := len(g.queue)
	if g.active != nil {
		n++
	}
	return n
}

func (g *Gate) next() {
	g.mu.Lock()
	if g.active != nil || len(g.queue) == 0 {
		g.mu.Unlock()
		return
	}
	p := g.queue[0]
	g.queue = g.queue[1:]
	g.seq++
	p.seq = g.seq
	g.active = p
	seq := p.seq
	p.timer = g.clock.AfterFunc(g.timeout, func() { g.resolve(seq, nil) })
	g.mu.Unlock()

	slog.Info("confirmation requested", "id", p.ev.ID, "timeout", g.timeout)
	g.prompter.Show(p.ev, func(yes bool) { g.resolve(seq, &yes) })
}

// resolve settles the active prompt. A nil answer means the timeout fired.
func (g *Gate) resolve(seq int, answer *bool) {
	g.mu.Lock()
	p := g.active
	if p == nil || p.seq != seq {
		g.mu.Unlock()
		return
	}
	g.active = nil
	if p.timer != nil {
		p.timer.Stop()
	}
	g.mu.Unlock()

	res := Result{Event: p.ev}
	var to event.Status
	switch {
	case answer == nil:
		res.Confirmed, res.Response, to = true, event.ResponseNoResponse, event.StatusConfirmed
		g.prompter.Dismiss(p.ev.ID)
	case *answer:
		res.Confirmed, res.Response, to = true, event.ResponseConfirmed, event.StatusConfirmed
	default:
		res.Confirmed, res.Response, to = false, event.ResponseDenied, event.StatusFalsePositive
	}

	p.ev.UserResponse = res.Response
	if err := p.ev.Transition(to); err != nil {
		slog.Warn("confirmation transition rejected", "id", p.ev.ID, "error", err)
	}
	if g.record != nil {
		if err := g.record(p.ev); err != nil {
			slog.Debug("confirmation not recorded", "id", p.ev.ID, "error", err)
		}
	}

	slog.Info("confirmation resolved", "id", p.ev.ID, "response", res.Response, "confirmed", res.Confirmed)
	if p.done != nil {
		p.done(res)
	}
	g.next()
}
