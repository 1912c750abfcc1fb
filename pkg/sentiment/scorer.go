package sentiment

import (
	"math"
	"strings"
	"unicode"
)

// Scorer maps free text to a scalar score in [-1.0, 1.0]. It is a pure
// lexicon scorer: no I/O, no state mutation, deterministic for identical
// input, so it is safe to share across concurrent tickers.
type Scorer struct {
	lexicon map[string]float64
}

// normalizationAlpha dampens the compound score the same way VADER does:
// score / sqrt(score^2 + alpha) keeps the result strictly inside (-1, 1).
const normalizationAlpha = 15.0

var negations = map[string]struct{}{
	"not": {}, "no": {}, "never": {}, "without": {}, "hardly": {},
	"isn't": {}, "wasn't": {}, "won't": {}, "can't": {}, "don't": {},
	"doesn't": {}, "didn't": {}, "couldn't": {}, "shouldn't": {},
}

// defaultLexicon covers the vocabulary that dominates financial headlines.
// Valences follow the usual lexicon convention of roughly [-4, 4].
var defaultLexicon = map[string]float64{
	"beat": 2.2, "beats": 2.2, "record": 1.8, "strong": 2.1, "surge": 2.6,
	"surges": 2.6, "soar": 2.8, "soars": 2.8, "rally": 2.3, "gain": 1.9,
	"gains": 1.9, "growth": 1.8, "profit": 2.0, "profits": 2.0,
	"upgrade": 2.4, "upgraded": 2.4, "bullish": 2.5, "breakthrough": 2.7,
	"outperform": 2.3, "win": 2.0, "wins": 2.0, "partnership": 1.5,
	"expands": 1.4, "approval": 1.9, "approved": 1.9, "success": 2.2,
	"successful": 2.2, "innovative": 1.6, "launch": 1.2, "launches": 1.2,
	"boost": 1.8, "boosts": 1.8, "optimistic": 2.0, "exceeds": 2.1,
	"tops": 1.9, "raises": 1.5, "buyback": 1.4, "dividend": 1.0,

	"miss": -2.2, "misses": -2.2, "weak": -2.0, "plunge": -2.8,
	"plunges": -2.8, "crash": -3.2, "crashes": -3.2, "fall": -1.8,
	"falls": -1.8, "drop": -1.8, "drops": -1.8, "loss": -2.1,
	"losses": -2.1, "downgrade": -2.4, "downgraded": -2.4, "bearish": -2.5,
	"lawsuit": -2.3, "sues": -2.2, "sued": -2.2, "probe": -1.9,
	"investigation": -2.0, "recall": -2.2, "layoff": -2.4, "layoffs": -2.4,
	"warning": -1.9, "warns": -1.9, "cuts": -1.6, "cut": -1.6,
	"decline": -1.8, "declines": -1.8, "fraud": -3.3, "scandal": -3.0,
	"halt": -2.0, "halts": -2.0, "fears": -2.1, "risk": -1.4,
	"slump": -2.4, "slumps": -2.4, "shortage": -1.8, "delays": -1.7,
	"delay": -1.7, "disappointing": -2.3, "bankruptcy": -3.4,
}

// NewScorer returns a scorer backed by the built-in financial lexicon.
func NewScorer() *Scorer {
	return &Scorer{lexicon: defaultLexicon}
}

// NewScorerWithLexicon returns a scorer over a caller-supplied lexicon.
// Any lexicon satisfies the scorer contract as long as valences are finite.
func NewScorerWithLexicon(lexicon map[string]float64) *Scorer {
	if len(lexicon) == 0 {
		return NewScorer()
	}
	return &Scorer{lexicon: lexicon}
}

// Score returns a compound sentiment for text in [-1.0, 1.0]. Empty or
// unmatched text scores 0.
func (s *Scorer) Score(text string) float64 {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	tokens := tokenize(text)
	var sum float64
	for i, token := range tokens {
		valence, ok := s.lexicon[token]
		if !ok {
			continue
		}
		// A negation in the three preceding tokens flips the valence.
		for j := max(0, i-3); j < i; j++ {
			if _, neg := negations[tokens[j]]; neg {
				valence = -valence * 0.74
				break
			}
		}
		sum += valence
	}
	if sum == 0 {
		return 0
	}

	compound := sum / math.Sqrt(sum*sum+normalizationAlpha)
	return math.Max(-1, math.Min(1, compound))
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
