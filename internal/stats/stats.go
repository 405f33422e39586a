package stats

import (
	"math"
	"time"

	"github.com/Bhavy-official/RevLens/internal/domain"
)

// Aggregator computes the display-ready metrics for one product's reviews.
type Aggregator struct {
	defaultAverage float64
	recentLimit    int
}

// NewAggregator configures the fallback average used when a product has no
// parseable ratings, and how many recent reviews the dashboard shows.
func NewAggregator(defaultAverage float64, recentLimit int) *Aggregator {
	if recentLimit <= 0 {
		recentLimit = 50
	}
	return &Aggregator{defaultAverage: defaultAverage, recentLimit: recentLimit}
}

// Compute builds ProductStats from reviews in insertion order.
func (a *Aggregator) Compute(reviews []domain.Review) domain.ProductStats {
	result := domain.ProductStats{
		TotalReviews:    len(reviews),
		AverageRating:   a.defaultAverage,
		SentimentCounts: []domain.SentimentCount{},
		RecentReviews:   []domain.RecentReview{},
	}

	var ratingSum float64
	rated := 0
	counts := map[string]int{}
	var order []string

	for _, r := range reviews {
		// Ratings were validated at normalization time, but rows written by
		// older ingests may carry values outside the scale; those stay out of
		// both numerator and denominator.
		if r.Rating >= 1.0 && r.Rating <= 5.0 {
			ratingSum += r.Rating
			rated++
		}

		label := sentimentDisplay(r.Sentiment, "unknown")
		if _, ok := counts[label]; !ok {
			order = append(order, label)
		}
		counts[label]++
	}

	if rated > 0 {
		result.AverageRating = math.Round(ratingSum/float64(rated)*100) / 100
	}

	for _, label := range order {
		result.SentimentCounts = append(result.SentimentCounts, domain.SentimentCount{
			Sentiment: label,
			Count:     counts[label],
		})
	}

	// Newest first: reverse of insertion order.
	for i := len(reviews) - 1; i >= 0 && len(result.RecentReviews) < a.recentLimit; i-- {
		r := reviews[i]
		result.RecentReviews = append(result.RecentReviews, domain.RecentReview{
			Reviewer:   r.Reviewer,
			Rating:     r.Rating,
			Text:       r.Text,
			Sentiment:  sentimentDisplay(r.Sentiment, "neutral"),
			ReviewDate: displayDate(r.ReviewDate),
		})
	}

	return result
}

func sentimentDisplay(s domain.Sentiment, fallback string) string {
	if s == domain.SentimentUnset {
		return fallback
	}
	return string(s)
}

// displayDate renders normalized dates as "Aug 21, 2025"; anything else is
// shown as scraped.
func displayDate(date string) string {
	if parsed, err := time.Parse("2006-01-02", date); err == nil {
		return parsed.Format("Jan 02, 2006")
	}
	return date
}
