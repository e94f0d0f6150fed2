// Package speech scores transcribed utterances for signs of distress.
package speech

import (
	"strings"
	"time"

	"github.com/setevik/safetywatch/internal/event"
)

// Features are acoustic measurements of an utterance, each in [0,1]. They
// come from an external speech-processing collaborator.
type Features struct {
	PitchVariation  float64 `json:"pitchVariation"`
	VolumeVariation float64 `json:"volumeVariation"`
	SpeechRate      float64 `json:"speechRate"`
}

// Utterance is one recognized phrase.
type Utterance struct {
	Transcript string    `json:"transcript"`
	Confidence float64   `json:"confidence"`
	Features   *Features `json:"features,omitempty"`
	At         time.Time `json:"timestamp"`
}

// Result is the outcome of scoring one utterance.
type Result struct {
	Score      float64
	Confidence float64
	Severity   event.Severity
	Urgent     []string
	HelpCount  int
	WatchWords []string
}

// Analyzer scores utterances. It is stateless.
type Analyzer struct{}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Score evaluates u. Contributions are additive: an urgent phrase and
// repeated "help" both count.
func (a *Analyzer) Score(u Utterance) Result {
	text := normalize(u.Transcript)

	var r Result
	for _, p := range urgentPhrases {
		if strings.Contains(text, p) {
			r.Urgent = append(r.Urgent, p)
		}
	}
	for _, w := range watchWords {
		if strings.Contains(text, w) {
			r.WatchWords = append(r.WatchWords, w)
		}
	}
	r.HelpCount = len(helpRe.FindAllStringIndex(text, -1))

	if len(r.Urgent) > 0 {
		r.Score += urgentScore
		r.Confidence += urgentConfidence
	}
	if r.HelpCount >= repeatedHelp {
		r.Score += helpScore
		r.Confidence += helpConfidence
	}

	if f := u.Features; f != nil {
		if f.PitchVariation > pitchVariationAbove {
			r.Score += pitchScore
		}
		if f.VolumeVariation > volumeVariationAbove {
			r.Score += volumeScore
		}
		if f.SpeechRate < speechRateBelow {
			r.Score += slowSpeechScore
		}
	}

	if r.Confidence > 1 {
		r.Confidence = 1
	}
	r.Severity = event.SeverityFromScore(r.Score)
	return r
}

// Analyze returns a speech indicator for u, or nil when the utterance
// scores low.
func (a *Analyzer) Analyze(u Utterance) *event.Indicator {
	r := a.Score(u)
	if r.Severity == event.SevLow {
		return nil
	}

	payload := map[string]any{
		"transcript": u.Transcript,
		"confidence": u.Confidence,
		"helpCount":  r.HelpCount,
	}
	if len(r.Urgent) > 0 {
		payload["urgent"] = r.Urgent
	}
	if len(r.WatchWords) > 0 {
		payload["watchWords"] = r.WatchWords
	}
	if u.Features != nil {
		payload["audioFeatures"] = *u.Features
	}

	ind := event.NewIndicator(event.KindSpeech, r.Score, r.Confidence, u.At, payload)
	return &ind
}

func normalize(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer("’", "'", "‘", "'").Replace(s)
}
