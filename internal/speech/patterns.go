package speech

import "regexp"

// Urgent phrases score on their own, regardless of how often they occur.
var urgentPhrases = []string{
	"can't breathe",
	"choking",
	"drowning",
	"help me",
	"emergency",
}

// watchWords are broader distress vocabulary. They are recorded with the
// indicator for context but carry no score.
var watchWords = []string{
	"help", "can't breathe", "can't breath", "choking", "drowning",
	"emergency", "ambulance", "hospital", "pain", "hurt", "injured",
	"fall", "fallen", "stuck", "trapped", "fire", "smoke",
}

// helpRe counts standalone "help" words.
var helpRe = regexp.MustCompile(`\bhelp\b`)

// repeatedHelp is the count of "help" words at which an utterance scores.
const repeatedHelp = 3

// Scoring weights.
const (
	urgentScore      = 0.8
	urgentConfidence = 0.9
	helpScore        = 0.6
	helpConfidence   = 0.7
	pitchScore       = 0.3
	volumeScore      = 0.2
	slowSpeechScore  = 0.4
)

// Acoustic thresholds, all on a [0,1] scale.
const (
	pitchVariationAbove  = 0.5
	volumeVariationAbove = 0.4
	speechRateBelow      = 0.5
)
