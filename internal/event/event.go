// Package event defines the core data model for safetywatch: distress
// indicators, safety events and their status lifecycle.
package event

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the detector that produced an indicator.
type Kind string

const (
	KindMotion       Kind = "motion"
	KindSpeech       Kind = "speech"
	KindVoicePattern Kind = "voice_pattern"
)

// Severity indicates the urgency of an indicator. Severities are ordered;
// use Rank to compare them.
type Severity string

const (
	SevLow      Severity = "low"
	SevMedium   Severity = "medium"
	SevHigh     Severity = "high"
	SevCritical Severity = "critical"
)

// Rank orders severities from low (0) to critical (3). Unknown values rank -1.
func (s Severity) Rank() int {
	switch s {
	case SevLow:
		return 0
	case SevMedium:
		return 1
	case SevHigh:
		return 2
	case SevCritical:
		return 3
	default:
		return -1
	}
}

// SeverityFromScore maps an accumulated distress score to a severity:
// >=0.8 critical, >=0.6 high, >=0.4 medium, otherwise low.
func SeverityFromScore(score float64) Severity {
	// Additive scores such as 0.2+0.4 land a hair off the threshold.
	score = math.Round(score*1e6) / 1e6
	switch {
	case score >= 0.8:
		return SevCritical
	case score >= 0.6:
		return SevHigh
	case score >= 0.4:
		return SevMedium
	default:
		return SevLow
	}
}

// Status is the lifecycle state of a SafetyEvent.
type Status string

const (
	StatusDetected           Status = "detected"
	StatusConfirmed          Status = "confirmed"
	StatusFalsePositive      Status = "false_positive"
	StatusEmergencyActivated Status = "emergency_activated"
)

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusFalsePositive || s == StatusEmergencyActivated
}

// UserResponse records how the user answered the confirmation prompt.
type UserResponse string

const (
	ResponseConfirmed  UserResponse = "confirmed"
	ResponseDenied     UserResponse = "denied"
	ResponseNoResponse UserResponse = "no_response"
)

var (
	// ErrTerminal is returned when transitioning out of a terminal status.
	ErrTerminal = errors.New("event is in a terminal status")
	// ErrInvalidTransition is returned for transitions the lifecycle does not allow.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// transitions lists the allowed moves of the status state machine.
var transitions = map[Status][]Status{
	StatusDetected:  {StatusConfirmed, StatusFalsePositive, StatusEmergencyActivated},
	StatusConfirmed: {StatusEmergencyActivated},
}

// Location is a resolved position fix.
type Location struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// Indicator is a single detector's evidence of possible danger.
type Indicator struct {
	Kind       Kind           `json:"type"`
	Severity   Severity       `json:"severity"`
	Score      float64        `json:"score"`
	Confidence float64        `json:"confidence"`
	ObservedAt time.Time      `json:"timestamp"`
	Payload    map[string]any `json:"data,omitempty"`
}

// NewIndicator builds an indicator whose severity is derived from score and
// whose confidence is clamped to [0,1].
func NewIndicator(kind Kind, score, confidence float64, at time.Time, payload map[string]any) Indicator {
	return Indicator{
		Kind:       kind,
		Severity:   SeverityFromScore(score),
		Score:      score,
		Confidence: clamp01(confidence),
		ObservedAt: at,
		Payload:    payload,
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SafetyEvent groups one or more indicators under one confirmation and
// escalation lifecycle.
type SafetyEvent struct {
	ID           string       `json:"id"`
	DetectedAt   time.Time    `json:"timestamp"`
	Indicators   []Indicator  `json:"indicators"`
	Status       Status       `json:"status"`
	Location     *Location    `json:"location,omitempty"`
	UserResponse UserResponse `json:"userResponse,omitempty"`
}

// New creates a detected SafetyEvent wrapping the given indicators.
func New(prefix string, ts time.Time, indicators ...Indicator) *SafetyEvent {
	return &SafetyEvent{
		ID:         NewID(prefix, ts),
		DetectedAt: ts,
		Indicators: indicators,
		Status:     StatusDetected,
	}
}

// Transition moves the event to status to, enforcing the lifecycle.
func (e *SafetyEvent) Transition(to Status) error {
	if e.Status.Terminal() {
		return fmt.Errorf("%s -> %s: %w", e.Status, to, ErrTerminal)
	}
	for _, s := range transitions[e.Status] {
		if s == to {
			e.Status = to
			return nil
		}
	}
	return fmt.Errorf("%s -> %s: %w", e.Status, to, ErrInvalidTransition)
}

// Kinds returns the distinct indicator kinds in order of first appearance.
func (e *SafetyEvent) Kinds() []Kind {
	seen := make(map[Kind]bool)
	var kinds []Kind
	for _, ind := range e.Indicators {
		if !seen[ind.Kind] {
			seen[ind.Kind] = true
			kinds = append(kinds, ind.Kind)
		}
	}
	return kinds
}

// MaxSeverity returns the highest severity among the event's indicators.
func (e *SafetyEvent) MaxSeverity() Severity {
	top := SevLow
	for _, ind := range e.Indicators {
		if ind.Severity.Rank() > top.Rank() {
			top = ind.Severity
		}
	}
	return top
}

// Clone returns a copy of the event that shares no indicators, payload maps
// or location with e. Payload values themselves are not copied.
func (e *SafetyEvent) Clone() *SafetyEvent {
	c := *e
	c.Indicators = append([]Indicator(nil), e.Indicators...)
	for i := range c.Indicators {
		if c.Indicators[i].Payload != nil {
			c.Indicators[i].Payload = maps.Clone(c.Indicators[i].Payload)
		}
	}
	if e.Location != nil {
		loc := *e.Location
		c.Location = &loc
	}
	return &c
}

// NewID returns "<prefix>_<unix ms>_<random suffix>". Uniqueness is
// probabilistic.
func NewID(prefix string, ts time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s_%d_%s", prefix, ts.UnixMilli(), suffix)
}
