package sentiment

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/Bhavy-official/RevLens/internal/domain"
	"github.com/Bhavy-official/RevLens/internal/ports"
)

// Analyzer turns free review text into a single sentiment label plus
// confidence by aggregating sentence-level classifications.
type Analyzer struct {
	classifier ports.SentimentClassifier
}

// NewAnalyzer wires the external classifier capability.
func NewAnalyzer(classifier ports.SentimentClassifier) *Analyzer {
	return &Analyzer{classifier: classifier}
}

// Score classifies each sentence of text and combines the results.
// ok is false when the text yields no sentences; the review is then skipped,
// not failed. An error means the classifier itself misbehaved for this text.
func (a *Analyzer) Score(ctx context.Context, text string) (label domain.Sentiment, score float64, ok bool, err error) {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return domain.SentimentUnset, 0, false, nil
	}

	weighted := make([]float64, 0, len(sentences))
	positives := 0

	for _, sentence := range sentences {
		raw, confidence, cErr := a.classifier.Classify(ctx, sentence)
		if cErr != nil {
			return domain.SentimentUnset, 0, false, fmt.Errorf("classify sentence: %w", cErr)
		}

		// Fold onto one scale: near 1 strongly positive, near 0 strongly negative.
		if raw == domain.SentimentPositive {
			positives++
			weighted = append(weighted, confidence)
		} else {
			weighted = append(weighted, 1-confidence)
		}
	}

	meanScore := mean(weighted)
	medianScore := median(weighted)

	// Ties resolve to positive.
	majority := domain.SentimentNegative
	if float64(positives) >= float64(len(sentences))/2 {
		majority = domain.SentimentPositive
	}

	// Median is robust to a single extreme sentence; the majority vote only
	// decides when the median falls below the boundary.
	label = majority
	if medianScore >= 0.5 {
		label = domain.SentimentPositive
	}

	return label, round3(meanScore), true, nil
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
