package sentiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockit/internal/models"
)

func TestLexicon(t *testing.T) {
	a := NewAnalyzer(arbor.NewNoOpLogger())

	tests := []struct {
		name string
		text string
		want models.SentimentLabel
	}{
		{"positive", "Apple Inc shares surged after strong earnings", models.SentimentPositive},
		{"negative", "Terrible results and weak guidance", models.SentimentNegative},
		{"neutral", "The company will publish its annual report on Tuesday", models.SentimentNeutral},
		{"negated", "Results were not good", models.SentimentNegative},
		{"whitespace", "   ", models.SentimentNeutral},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := a.Lexicon(tt.text)
			assert.Equal(t, tt.want, result.Label, "score %v", result.Score)
			assert.GreaterOrEqual(t, result.Score, -1.0)
			assert.LessOrEqual(t, result.Score, 1.0)
			assert.InDelta(t, abs(result.Score), result.Confidence, 1e-9)
		})
	}
}

func TestLexicon_BoostersAndExclamations(t *testing.T) {
	a := NewAnalyzer(arbor.NewNoOpLogger())

	base := a.Lexicon("good quarter")
	boosted := a.Lexicon("very good quarter")
	shouted := a.Lexicon("good quarter!!!")

	assert.Greater(t, boosted.Score, base.Score)
	assert.Greater(t, shouted.Score, base.Score)
}

func TestPolarity(t *testing.T) {
	good := Polarity("A very good and impressive quarter")
	assert.Equal(t, models.SentimentPositive, good.Label)
	assert.Greater(t, good.Score, 0.5)

	bad := Polarity("Disappointing results and weak guidance")
	assert.Equal(t, models.SentimentNegative, bad.Label)

	negated := Polarity("The outlook is not good")
	assert.Equal(t, models.SentimentNegative, negated.Label)
	assert.InDelta(t, -0.35, negated.Score, 1e-9)

	none := Polarity("Shareholders meet on Tuesday")
	assert.Equal(t, models.SentimentNeutral, none.Label)
	assert.Zero(t, none.Confidence)
}

func TestPolarity_ConfidenceFromCoverage(t *testing.T) {
	dense := Polarity("good great excellent")
	sparse := Polarity("good results were published today by the company in its quarterly filing with regulators")

	assert.Equal(t, 1.0, dense.Confidence)
	assert.Less(t, sparse.Confidence, dense.Confidence)
	assert.Greater(t, sparse.Confidence, 0.0)
}

func TestAnalyzer_Score(t *testing.T) {
	a := NewAnalyzer(arbor.NewNoOpLogger())
	ctx := context.Background()

	for _, model := range models.SentimentModels {
		result, err := a.Score(ctx, "", model)
		require.NoError(t, err, model)
		assert.Equal(t, models.SentimentNeutral, result.Label)
		assert.Zero(t, result.Score)
		assert.Zero(t, result.Confidence)
	}

	result, err := a.Score(ctx, "Strong growth and great profit", models.SentimentModelLexicon)
	require.NoError(t, err)
	assert.Equal(t, models.SentimentPositive, result.Label)

	_, err = a.Score(ctx, "text", "VADER")
	assert.Error(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = a.Score(cancelled, "text", models.SentimentModelPolarity)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"apple", "doesn't", "miss", "q"}, tokenize("Apple DOESN’T miss Q3!"))
	assert.Empty(t, tokenize("  123 !! "))
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
