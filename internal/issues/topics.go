package issues

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/Bhavy-official/RevLens/internal/domain"
	"github.com/Bhavy-official/RevLens/internal/ports"
)

// IssueLabels is the closed topic set used for zero-shot classification.
var IssueLabels = []string{
	"health safety problem",
	"product defect",
	"performance problem",
	"delivery or packaging issue",
	"taste or consumption issue",
	"value for money complaint",
	"general dissatisfaction",
}

// severityBase orders topics by how seriously a mention should be taken.
var severityBase = map[string]float64{
	"health safety problem":       9,
	"product defect":              8,
	"performance problem":         7,
	"delivery or packaging issue": 5,
	"taste or consumption issue":  4,
	"value for money complaint":   3,
	"general dissatisfaction":     2,
}

var strongWords = []string{"terrible", "worst", "horrible", "disgusting", "hate", "awful", "painful"}

const (
	topicConfidenceFloor = 0.4
	maxTopicsPerReview   = 5
	maxEvidenceSentences = 2
	maxSeverity          = 10
)

var readMoreExpr = regexp.MustCompile(`(?i)read more`)

// TopicExtractor runs the zero-shot strategy over a review corpus.
type TopicExtractor struct {
	classifier ports.TopicClassifier
}

// NewTopicExtractor wires the external zero-shot capability.
func NewTopicExtractor(classifier ports.TopicClassifier) *TopicExtractor {
	return &TopicExtractor{classifier: classifier}
}

// LanguageIntensity scales 1.0-2.0 with the count of strong negative words
// literally present in the text.
func LanguageIntensity(text string) float64 {
	lower := strings.ToLower(text)
	count := 0
	for _, w := range strongWords {
		count += strings.Count(lower, w)
	}
	bonus := float64(count) * 0.3
	if bonus > 1 {
		bonus = 1
	}
	return 1 + bonus
}

// EvidenceSentences picks up to max sentences backing a topic: split on
// sentence punctuation, scrub scrape artifacts, dedup, keep sentences sharing
// a keyword with the topic label, falling back to the most intense ones.
func EvidenceSentences(text, topicLabel string, max int) []string {
	parts := regexp.MustCompile(`[.!?]+`).Split(text, -1)

	var clean []string
	seen := map[string]struct{}{}
	for _, p := range parts {
		p = strings.TrimSpace(readMoreExpr.ReplaceAllString(p, ""))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		clean = append(clean, p)
	}

	keywords := strings.Fields(topicLabel)
	var evidence []string
	for _, s := range clean {
		lower := strings.ToLower(s)
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				evidence = append(evidence, s)
				break
			}
		}
	}

	if len(evidence) == 0 {
		evidence = append(evidence, clean...)
		sort.SliceStable(evidence, func(i, j int) bool {
			return LanguageIntensity(evidence[i]) > LanguageIntensity(evidence[j])
		})
	}

	if len(evidence) > max {
		evidence = evidence[:max]
	}
	return evidence
}

// AnalyzeReview classifies one review against the topic set and returns its
// accepted mentions, at most maxTopicsPerReview in descending confidence.
func (e *TopicExtractor) AnalyzeReview(ctx context.Context, review domain.Review) ([]domain.IssueMention, error) {
	if review.Text == "" {
		return nil, nil
	}

	scores, err := e.classifier.ClassifyTopics(ctx, review.Text, IssueLabels)
	if err != nil {
		return nil, fmt.Errorf("classify topics: %w", err)
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Confidence > scores[j].Confidence
	})

	intensity := LanguageIntensity(review.Text)

	var mentions []domain.IssueMention
	for _, score := range scores {
		if score.Confidence <= topicConfidenceFloor {
			continue
		}

		base, ok := severityBase[score.Label]
		if !ok {
			base = 1
		}
		severity := base * score.Confidence * intensity
		if severity > maxSeverity {
			severity = maxSeverity
		}

		mentions = append(mentions, domain.IssueMention{
			Topic:      score.Label,
			Confidence: round3(score.Confidence),
			Severity:   round2(severity),
			Evidence:   EvidenceSentences(review.Text, score.Label, maxEvidenceSentences),
			Reviewer:   review.Reviewer,
			Rating:     review.Rating,
			ReviewID:   review.ID,
		})
		if len(mentions) >= maxTopicsPerReview {
			break
		}
	}

	return mentions, nil
}
