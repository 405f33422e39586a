package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bhavy-official/RevLens/internal/domain"
)

func TestComputeAverageSkipsUnratedRows(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(0, 10)
	// The middle row models a legacy record whose rating never parsed.
	reviews := []domain.Review{
		{Rating: 5, Sentiment: domain.SentimentPositive},
		{Rating: 0, Sentiment: domain.SentimentNegative},
		{Rating: 3, Sentiment: domain.SentimentNegative},
	}

	got := agg.Compute(reviews)
	assert.Equal(t, 3, got.TotalReviews)
	assert.InDelta(t, 4.0, got.AverageRating, 1e-9)
}

func TestComputeEmptyProductUsesDefault(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(2.5, 10)
	got := agg.Compute(nil)

	assert.Zero(t, got.TotalReviews)
	assert.InDelta(t, 2.5, got.AverageRating, 1e-9)
	assert.Empty(t, got.SentimentCounts)
	assert.Empty(t, got.RecentReviews)
}

func TestComputeSentimentDistributionHasUnknownBucket(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(0, 10)
	reviews := []domain.Review{
		{Rating: 4, Sentiment: domain.SentimentPositive},
		{Rating: 2, Sentiment: domain.SentimentNegative},
		{Rating: 3},
		{Rating: 1},
	}

	got := agg.Compute(reviews)
	require.Len(t, got.SentimentCounts, 3)
	assert.Contains(t, got.SentimentCounts, domain.SentimentCount{Sentiment: "positive", Count: 1})
	assert.Contains(t, got.SentimentCounts, domain.SentimentCount{Sentiment: "negative", Count: 1})
	assert.Contains(t, got.SentimentCounts, domain.SentimentCount{Sentiment: "unknown", Count: 2})
}

func TestComputeRecentReviewsNewestFirst(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(0, 2)
	reviews := []domain.Review{
		{Reviewer: "First", Rating: 5, Text: "oldest", ReviewDate: "2025-08-19"},
		{Reviewer: "Second", Rating: 4, Text: "middle", ReviewDate: "2025-08-20"},
		{Reviewer: "Third", Rating: 3, Text: "newest", ReviewDate: "2025-08-21"},
	}

	got := agg.Compute(reviews)
	require.Len(t, got.RecentReviews, 2)
	assert.Equal(t, "Third", got.RecentReviews[0].Reviewer)
	assert.Equal(t, "Aug 21, 2025", got.RecentReviews[0].ReviewDate)
	assert.Equal(t, "neutral", got.RecentReviews[0].Sentiment)
	assert.Equal(t, "Second", got.RecentReviews[1].Reviewer)
}

func TestComputeKeepsUnparseableDateAsIs(t *testing.T) {
	t.Parallel()

	agg := NewAggregator(0, 10)
	got := agg.Compute([]domain.Review{{Reviewer: "Amy", Rating: 4, ReviewDate: "last tuesday"}})
	require.Len(t, got.RecentReviews, 1)
	assert.Equal(t, "last tuesday", got.RecentReviews[0].ReviewDate)
}
