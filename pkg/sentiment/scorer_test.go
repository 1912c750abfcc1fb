package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_PositiveHeadline(t *testing.T) {
	s := NewScorer()
	score := s.Score("Apple beats earnings expectations, shares surge on record profit")
	assert.Greater(t, score, 0.0, "bullish headline should score positive")
	assert.LessOrEqual(t, score, 1.0)
}

func TestScore_NegativeHeadline(t *testing.T) {
	s := NewScorer()
	score := s.Score("Tesla shares plunge after disappointing deliveries and lawsuit fears")
	assert.Less(t, score, 0.0, "bearish headline should score negative")
	assert.GreaterOrEqual(t, score, -1.0)
}

func TestScore_NeutralHeadline(t *testing.T) {
	s := NewScorer()
	score := s.Score("Company schedules annual shareholder meeting for June")
	assert.Zero(t, score, "headline without lexicon hits should score zero")
}

func TestScore_EmptyInput(t *testing.T) {
	s := NewScorer()
	assert.Zero(t, s.Score(""))
	assert.Zero(t, s.Score("   "))
}

func TestScore_NegationFlipsValence(t *testing.T) {
	s := NewScorer()
	plain := s.Score("earnings beat expectations")
	negated := s.Score("earnings did not beat expectations")
	assert.Greater(t, plain, 0.0)
	assert.Less(t, negated, 0.0, "negation within three tokens should flip the valence")
}

func TestScore_Deterministic(t *testing.T) {
	s := NewScorer()
	const headline = "Regulator opens probe into accounting fraud, stock crashes"
	first := s.Score(headline)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.Score(headline), "identical input must produce identical score")
	}
}

func TestScore_AlwaysWithinBounds(t *testing.T) {
	s := NewScorer()
	extreme := "surge soar rally breakthrough record beat beats win wins success profit growth upgrade bullish"
	assert.LessOrEqual(t, s.Score(extreme), 1.0)
	crash := "crash fraud bankruptcy scandal plunge loss lawsuit downgrade bearish layoffs recall"
	assert.GreaterOrEqual(t, s.Score(crash), -1.0)
}

func TestScore_CustomLexicon(t *testing.T) {
	s := NewScorerWithLexicon(map[string]float64{"moon": 3.0})
	assert.Greater(t, s.Score("stock to the moon"), 0.0)
	assert.Zero(t, s.Score("stock beats estimates"), "custom lexicon replaces the default")
}
