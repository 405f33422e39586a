package issues

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/Bhavy-official/RevLens/internal/domain"
)

// ExtractReport runs the topic strategy over the given reviews and builds the
// ranked report. Reviews whose classification fails individually are skipped
// and counted; the flagged slice holds ids of reviews that contributed at
// least one mention and must be marked critical by the caller.
func (e *TopicExtractor) ExtractReport(ctx context.Context, reviews []domain.Review, logger *slog.Logger) (domain.IssueReport, []int64, error) {
	byTopic := map[string][]domain.IssueMention{}
	var flagged []int64
	skipped := 0

	for i, review := range reviews {
		mentions, err := e.AnalyzeReview(ctx, review)
		if err != nil {
			skipped++
			if logger != nil {
				logger.Warn("skipping review", "review_id", review.ID, "error", err)
			}
			continue
		}
		if len(mentions) == 0 {
			continue
		}

		for _, m := range mentions {
			byTopic[m.Topic] = append(byTopic[m.Topic], m)
		}
		flagged = append(flagged, review.ID)

		if logger != nil && (i+1)%10 == 0 {
			logger.Info("topic extraction progress", "processed", i+1, "total", len(reviews))
		}
	}

	report := domain.IssueReport{
		TotalReviews:    len(reviews),
		FlaggedCritical: len(flagged),
		Skipped:         skipped,
		Summaries:       Summarize(byTopic),
	}
	report.Digest = Digest(report.Summaries, len(reviews))

	return report, flagged, nil
}

// Summarize folds per-topic mentions into display summaries ranked by total
// mention count, descending.
func Summarize(byTopic map[string][]domain.IssueMention) []domain.IssueSummary {
	summaries := make([]domain.IssueSummary, 0, len(byTopic))

	for topic, mentions := range byTopic {
		var severitySum float64
		for _, m := range mentions {
			severitySum += m.Severity
		}

		summaries = append(summaries, domain.IssueSummary{
			Topic:           topic,
			TotalMentions:   len(mentions),
			AverageSeverity: round2(severitySum / float64(len(mentions))),
			TopReviewers:    topReviewers(mentions, 3),
			ExampleEvidence: exampleEvidence(mentions, 2),
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].TotalMentions > summaries[j].TotalMentions
	})
	return summaries
}

// topReviewers tallies reviewers by mention count; ties keep first-seen order.
func topReviewers(mentions []domain.IssueMention, limit int) []domain.ReviewerTally {
	counts := map[string]int{}
	var order []string
	for _, m := range mentions {
		if _, ok := counts[m.Reviewer]; !ok {
			order = append(order, m.Reviewer)
		}
		counts[m.Reviewer]++
	}

	tallies := make([]domain.ReviewerTally, 0, len(order))
	for _, reviewer := range order {
		tallies = append(tallies, domain.ReviewerTally{Reviewer: reviewer, Mentions: counts[reviewer]})
	}
	sort.SliceStable(tallies, func(i, j int) bool {
		return tallies[i].Mentions > tallies[j].Mentions
	})

	if len(tallies) > limit {
		tallies = tallies[:limit]
	}
	return tallies
}

// exampleEvidence collects up to limit distinct evidence sentences, walking
// mentions in order.
func exampleEvidence(mentions []domain.IssueMention, limit int) []string {
	var examples []string
	seen := map[string]struct{}{}
	for _, m := range mentions {
		for _, e := range m.Evidence {
			if _, ok := seen[e]; ok {
				continue
			}
			seen[e] = struct{}{}
			examples = append(examples, e)
		}
		if len(examples) >= limit {
			break
		}
	}
	if len(examples) > limit {
		examples = examples[:limit]
	}
	return examples
}

// Digest renders the one-paragraph prose summary of a ranked issue list.
func Digest(summaries []domain.IssueSummary, totalReviews int) string {
	if len(summaries) == 0 {
		return "No critical issues detected."
	}

	top := summaries
	if len(top) > 3 {
		top = top[:3]
	}

	text := fmt.Sprintf("We analyzed %d reviews in total. The most common problem was '%s' (%d mentions).",
		totalReviews, top[0].Topic, top[0].TotalMentions)

	if len(top) > 1 {
		text += " Other notable issues include "
		for i, s := range top[1:] {
			if i > 0 {
				text += ", "
			}
			text += fmt.Sprintf("'%s' (avg severity %.2f/10)", s.Topic, s.AverageSeverity)
		}
		text += "."
	}
	return text
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
