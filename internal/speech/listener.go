package speech

import (
	"log/slog"
	"sync"

	"github.com/setevik/safetywatch/internal/clock"
	"github.com/setevik/safetywatch/internal/event"
)

// Recognizer is a speech-to-text provider delivering utterances continuously.
type Recognizer interface {
	// Start begins recognition, calling fn for every utterance. An error
	// means recognition is unavailable (no microphone, consent denied).
	Start(fn func(Utterance)) error
	Stop()
}

// Listener runs a Recognizer and forwards non-low indicators.
type Listener struct {
	rec      Recognizer
	analyzer *Analyzer
	clock    clock.Clock
	onDetect func(event.Indicator)

	mu      sync.Mutex
	running bool
}

// NewListener creates a Listener. A nil recognizer means speech recognition
// is not supported on this platform.
func NewListener(rec Recognizer, analyzer *Analyzer, clk clock.Clock, onDetect func(event.Indicator)) *Listener {
	return &Listener{rec: rec, analyzer: analyzer, clock: clk, onDetect: onDetect}
}

// Start begins listening. Unsupported or failed recognition is logged and
// reported as false.
func (l *Listener) Start() bool {
	if l.rec == nil {
		slog.Warn("speech recognition not supported")
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return true
	}

	if err := l.rec.Start(l.handle); err != nil {
		slog.Warn("speech recognition unavailable", "error", err)
		return false
	}
	l.running = true
	slog.Debug("speech listener started")
	return true
}

// Stop ends recognition. Safe to call when not running.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.rec.Stop()
	l.running = false
	slog.Debug("speech listener stopped")
}

func (l *Listener) handle(u Utterance) {
	if u.At.IsZero() {
		u.At = l.clock.Now()
	}
	ind := l.analyzer.Analyze(u)
	if ind == nil {
		slog.Debug("utterance scored low", "transcript", u.Transcript)
		return
	}
	l.onDetect(*ind)
}
