// Package sentiment scores article text under the two fixed sentiment models.
package sentiment

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/jonreiter/govader"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/stockit/internal/models"
)

const (
	lexiconThreshold  = 0.05
	polarityThreshold = 0.1

	// share of opinion words at which the polarity model is fully confident
	fullCoverage = 0.2
)

// Analyzer implements interfaces.SentimentScorer with the lexicon and polarity models.
// The lexicon model is VADER, backed by govader; its word tables load once here.
type Analyzer struct {
	vader  *govader.SentimentIntensityAnalyzer
	logger arbor.ILogger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(logger arbor.ILogger) *Analyzer {
	return &Analyzer{
		vader:  govader.NewSentimentIntensityAnalyzer(),
		logger: logger,
	}
}

// Score evaluates text under model. Empty text is neutral with zero confidence.
func (a *Analyzer) Score(ctx context.Context, text string, model string) (models.SentimentResult, error) {
	if err := ctx.Err(); err != nil {
		return models.SentimentResult{}, err
	}

	var result models.SentimentResult
	switch model {
	case models.SentimentModelLexicon:
		result = a.Lexicon(text)
	case models.SentimentModelPolarity:
		result = Polarity(text)
	default:
		return models.SentimentResult{}, fmt.Errorf("unknown sentiment model %q", model)
	}

	a.logger.Trace().
		Str("model", model).
		Str("label", string(result.Label)).
		Str("score", fmt.Sprintf("%.4f", result.Score)).
		Msg("Scored text")
	return result, nil
}

// Lexicon returns the VADER compound score in [-1, 1]. Confidence is its magnitude.
func (a *Analyzer) Lexicon(text string) models.SentimentResult {
	if strings.TrimSpace(text) == "" {
		return neutral()
	}

	compound := clamp(a.vader.PolarityScores(text).Compound)
	return models.SentimentResult{
		Score:      round(compound),
		Label:      label(compound, lexiconThreshold),
		Confidence: round(math.Abs(compound)),
	}
}

// Polarity averages adjective polarities, scaled by intensifiers and halved and
// flipped under negation. Confidence grows with the share of opinion words.
func Polarity(text string) models.SentimentResult {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return neutral()
	}

	total := 0.0
	hits := 0
	for i, tok := range tokens {
		p, ok := polarity[tok]
		if !ok {
			continue
		}
		if i > 0 {
			if m, ok := intensifiers[tokens[i-1]]; ok {
				p = clamp(p * m)
			}
		}
		if negatedWithin(tokens, i, 2) {
			p *= -0.5
		}
		total += p
		hits++
	}

	if hits == 0 {
		return neutral()
	}

	score := clamp(total / float64(hits))
	coverage := float64(hits) / float64(len(tokens))
	return models.SentimentResult{
		Score:      round(score),
		Label:      label(score, polarityThreshold),
		Confidence: round(math.Min(1, coverage/fullCoverage)),
	}
}

// tokenize lowercases text and splits it into words, keeping inner apostrophes ("doesn't").
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\'' && r != '’'
	})
	tokens := fields[:0]
	for _, f := range fields {
		f = strings.Trim(strings.ReplaceAll(f, "’", "'"), "'")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func negatedWithin(tokens []string, i, window int) bool {
	for j := i - 1; j >= 0 && j >= i-window; j-- {
		if negations[tokens[j]] || strings.HasSuffix(tokens[j], "n't") {
			return true
		}
	}
	return false
}

func label(score, threshold float64) models.SentimentLabel {
	switch {
	case score >= threshold:
		return models.SentimentPositive
	case score <= -threshold:
		return models.SentimentNegative
	default:
		return models.SentimentNeutral
	}
}

func neutral() models.SentimentResult {
	return models.SentimentResult{Label: models.SentimentNeutral}
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

func round(v float64) float64 {
	return math.Round(v*10000) / 10000
}
