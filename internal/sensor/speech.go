package sensor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/setevik/safetywatch/internal/speech"
)

type utteranceLine struct {
	Transcript string           `json:"transcript"`
	Confidence float64          `json:"confidence"`
	Features   *speech.Features `json:"features"`
	Timestamp  int64            `json:"timestamp"`
}

// parseUtterance decodes one recognizer line. Blank transcripts are
// rejected.
func parseUtterance(line []byte) (speech.Utterance, error) {
	var u utteranceLine
	if err := json.Unmarshal(line, &u); err != nil {
		return speech.Utterance{}, fmt.Errorf("unmarshal utterance: %w", err)
	}
	if strings.TrimSpace(u.Transcript) == "" {
		return speech.Utterance{}, errors.New("empty transcript")
	}

	out := speech.Utterance{
		Transcript: u.Transcript,
		Confidence: u.Confidence,
		Features:   u.Features,
	}
	if u.Timestamp > 0 {
		out.At = time.UnixMilli(u.Timestamp)
	}
	return out, nil
}

// SpeechSource runs a recognizer helper and implements speech.Recognizer.
type SpeechSource struct {
	src LineSource

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSpeechSource creates a SpeechSource reading from src.
func NewSpeechSource(src LineSource) *SpeechSource {
	return &SpeechSource{src: src}
}

func (s *SpeechSource) Start(fn func(speech.Utterance)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return errors.New("speech recognition already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	lines, err := s.src.Lines(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("starting speech recognizer: %w", err)
	}
	s.cancel = cancel

	go func() {
		for line := range lines {
			u, err := parseUtterance(line)
			if err != nil {
				slog.Debug("skipping unparseable utterance", "error", err)
				continue
			}
			fn(u)
		}
	}()
	return nil
}

func (s *SpeechSource) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
	s.src.Stop()
}
