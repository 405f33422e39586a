package usecase

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bhavy-official/RevLens/internal/domain"
	"github.com/Bhavy-official/RevLens/internal/issues"
	"github.com/Bhavy-official/RevLens/internal/ports"
	"github.com/Bhavy-official/RevLens/internal/sentiment"
	"github.com/Bhavy-official/RevLens/internal/stats"
)

// memoryRepo is an in-memory ReviewRepository for pipeline tests.
type memoryRepo struct {
	products  []domain.Product
	reviews   map[int64][]domain.Review
	issues    map[int64][]domain.Issue
	nextID    int64
	nextRevID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		reviews: map[int64][]domain.Review{},
		issues:  map[int64][]domain.Issue{},
	}
}

func (m *memoryRepo) GetOrCreateProduct(_ context.Context, pid, name string) (domain.Product, bool, error) {
	for _, p := range m.products {
		if p.PID == pid {
			return p, false, nil
		}
	}
	m.nextID++
	p := domain.Product{ID: m.nextID, PID: pid, Name: name}
	m.products = append(m.products, p)
	return p, true, nil
}

func (m *memoryRepo) ProductByPID(_ context.Context, pid string) (domain.Product, error) {
	for _, p := range m.products {
		if p.PID == pid {
			return p, nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

func (m *memoryRepo) ProductByName(_ context.Context, name string) (domain.Product, error) {
	for _, p := range m.products {
		if p.Name == name {
			return p, nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

func (m *memoryRepo) ListProducts(context.Context) ([]domain.Product, error) {
	return m.products, nil
}

func (m *memoryRepo) DeleteProduct(_ context.Context, id int64) error {
	delete(m.reviews, id)
	delete(m.issues, id)
	return nil
}

func (m *memoryRepo) SaveReview(_ context.Context, review domain.Review) (int64, error) {
	m.nextRevID++
	review.ID = m.nextRevID
	m.reviews[review.ProductID] = append(m.reviews[review.ProductID], review)
	return review.ID, nil
}

func (m *memoryRepo) UpdateReview(_ context.Context, review domain.Review) error {
	list := m.reviews[review.ProductID]
	for i := range list {
		if list[i].ID == review.ID {
			list[i] = review
			return nil
		}
	}
	return nil
}

func (m *memoryRepo) DeleteReview(_ context.Context, id int64) error {
	for pid, list := range m.reviews {
		for i := range list {
			if list[i].ID == id {
				m.reviews[pid] = append(list[:i], list[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

func (m *memoryRepo) ListReviews(_ context.Context, productID int64) ([]domain.Review, error) {
	return append([]domain.Review(nil), m.reviews[productID]...), nil
}

func (m *memoryRepo) ListReviewsByMaxRating(_ context.Context, productID int64, maxRating float64) ([]domain.Review, error) {
	var out []domain.Review
	for _, r := range m.reviews[productID] {
		if r.Rating <= maxRating {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryRepo) ListReviewsBySentiment(_ context.Context, productID int64, s domain.Sentiment) ([]domain.Review, error) {
	var out []domain.Review
	for _, r := range m.reviews[productID] {
		if r.Sentiment == s {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memoryRepo) ReplaceIssues(_ context.Context, productID int64, snapshotID string, list []domain.Issue) error {
	for i := range list {
		list[i].SnapshotID = snapshotID
	}
	m.issues[productID] = list
	return nil
}

func (m *memoryRepo) ListIssues(_ context.Context, productID int64) ([]domain.Issue, error) {
	return m.issues[productID], nil
}

var _ ports.ReviewRepository = (*memoryRepo)(nil)

// keywordClassifier labels sentences negative when they contain a bad word.
type keywordClassifier struct {
	down bool
}

func (k *keywordClassifier) Classify(_ context.Context, text string) (domain.Sentiment, float64, error) {
	for _, w := range []string{"broke", "bad", "refund", "drains"} {
		if containsFold(text, w) {
			return domain.SentimentNegative, 0.9, nil
		}
	}
	return domain.SentimentPositive, 0.9, nil
}

func (k *keywordClassifier) Ping(context.Context) error {
	if k.down {
		return domain.ErrClassifierUnavailable
	}
	return nil
}

func containsFold(haystack, needle string) bool {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := 0; j < len(needle); j++ {
			a, b := haystack[i+j], needle[j]
			if a >= 'A' && a <= 'Z' {
				a += 32
			}
			if a != b {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

func newTestPipeline(repo ports.ReviewRepository, clf ports.SentimentClassifier) *Pipeline {
	return NewPipeline(PipelineDeps{
		Repository: repo,
		Sentiment:  sentiment.NewAnalyzer(clf),
		Classifier: clf,
		Stats:      stats.NewAggregator(0, 50),
	})
}

func TestIngestCountsSavedAndRejected(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	pipeline := newTestPipeline(repo, &keywordClassifier{})

	raws := []domain.RawReview{
		{ReviewerName: "Amy", Rating: "5", ReviewText: "Excellent product, very happy.", Date: "21 August 2025"},
		{ReviewerName: "Ben", Rating: "0.5", ReviewText: "Rating out of range here."},
		{ReviewerName: "Cal", Rating: "4", ReviewText: "ok"},
		{ReviewerName: "amy", Rating: "5", ReviewText: "Excellent   product, very happy."},
	}

	result, err := pipeline.Ingest(context.Background(), "PID1", "Trimmer", raws)
	require.NoError(t, err)
	assert.Equal(t, IngestResult{Saved: 1, Rejected: 2, Duplicates: 1}, result)

	stored, err := repo.ListReviews(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Amy", stored[0].Reviewer)
	assert.Equal(t, "2025-08-21", stored[0].ReviewDate)
}

func TestIngestIsIdempotentAcrossRuns(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	pipeline := newTestPipeline(repo, &keywordClassifier{})

	raws := []domain.RawReview{
		{ReviewerName: "Amy", Rating: "5", ReviewText: "Excellent product, very happy."},
	}

	first, err := pipeline.Ingest(context.Background(), "PID1", "Trimmer", raws)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Saved)

	second, err := pipeline.Ingest(context.Background(), "PID1", "Trimmer", raws)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Saved)
	assert.Equal(t, 1, second.Duplicates)
}

func TestScoreSentimentsUpdatesUnscored(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	pipeline := newTestPipeline(repo, &keywordClassifier{})
	ctx := context.Background()

	_, err := pipeline.Ingest(ctx, "PID1", "Trimmer", []domain.RawReview{
		{ReviewerName: "Amy", Rating: "5", ReviewText: "Great buy. Works well."},
		{ReviewerName: "Ben", Rating: "1", ReviewText: "It broke. Total refund bad experience."},
	})
	require.NoError(t, err)

	result, err := pipeline.ScoreSentiments(ctx, "PID1", false)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Updated)
	assert.Zero(t, result.Skipped)

	stored, _ := repo.ListReviews(ctx, 1)
	assert.Equal(t, domain.SentimentPositive, stored[0].Sentiment)
	assert.Equal(t, domain.SentimentNegative, stored[1].Sentiment)

	// second pass finds nothing unscored
	again, err := pipeline.ScoreSentiments(ctx, "PID1", false)
	require.NoError(t, err)
	assert.Zero(t, again.Updated)
}

func TestScoreSentimentsAbortsWhenClassifierDown(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	clf := &keywordClassifier{down: true}
	pipeline := newTestPipeline(repo, clf)
	ctx := context.Background()

	_, err := pipeline.Ingest(ctx, "PID1", "Trimmer", []domain.RawReview{
		{ReviewerName: "Amy", Rating: "5", ReviewText: "Great buy indeed."},
	})
	require.NoError(t, err)

	_, err = pipeline.ScoreSentiments(ctx, "PID1", false)
	require.ErrorIs(t, err, domain.ErrClassifierUnavailable)
}

func TestScoreSentimentsUnknownProduct(t *testing.T) {
	t.Parallel()

	pipeline := newTestPipeline(newMemoryRepo(), &keywordClassifier{})

	_, err := pipeline.ScoreSentiments(context.Background(), "nope", false)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

// stubSummarizer condenses deterministically and fails on a marker string.
type stubSummarizer struct {
	failOn string
}

func (s *stubSummarizer) Summarize(_ context.Context, text string) (string, error) {
	if s.failOn != "" && strings.Contains(text, s.failOn) {
		return "", fmt.Errorf("model overloaded")
	}
	return "condensed: " + text[:16], nil
}

func TestSummarizeReviewsCondensesLongOnes(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	pipeline := NewPipeline(PipelineDeps{
		Repository: repo,
		Summarizer: &stubSummarizer{failOn: "FLAKY"},
		Stats:      stats.NewAggregator(0, 50),
	})
	ctx := context.Background()

	product, _, err := repo.GetOrCreateProduct(ctx, "PID1", "Trimmer")
	require.NoError(t, err)

	longText := strings.Repeat("The battery drains fast and support ignored me. ", 8)
	saveReview := func(text, summary string) int64 {
		id, err := repo.SaveReview(ctx, domain.Review{
			ProductID: product.ID,
			Reviewer:  "Amy",
			Rating:    2,
			Text:      text,
			Summary:   summary,
		})
		require.NoError(t, err)
		return id
	}

	longID := saveReview(longText, "")
	saveReview("Too short to bother.", "")
	saveReview("FLAKY "+longText, "")
	doneID := saveReview(longText, "already condensed")

	result, err := pipeline.SummarizeReviews(ctx, "PID1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Skipped)

	stored, err := repo.ListReviews(ctx, product.ID)
	require.NoError(t, err)
	byID := map[int64]domain.Review{}
	for _, r := range stored {
		byID[r.ID] = r
	}
	assert.True(t, strings.HasPrefix(byID[longID].Summary, "condensed: "))
	assert.Equal(t, "already condensed", byID[doneID].Summary)

	// redo revisits reviews that already carry a summary
	result, err = pipeline.SummarizeReviews(ctx, "PID1", true)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Updated)
	assert.Equal(t, 1, result.Skipped)

	stored, err = repo.ListReviews(ctx, product.ID)
	require.NoError(t, err)
	for _, r := range stored {
		if r.ID == doneID {
			assert.True(t, strings.HasPrefix(r.Summary, "condensed: "))
		}
	}
}

func TestSummarizeReviewsWithoutBackend(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	pipeline := newTestPipeline(repo, &keywordClassifier{})
	ctx := context.Background()

	_, _, err := repo.GetOrCreateProduct(ctx, "PID1", "Trimmer")
	require.NoError(t, err)

	_, err = pipeline.SummarizeReviews(ctx, "PID1", false)
	require.ErrorIs(t, err, domain.ErrClassifierUnavailable)
}

func TestSummarizeReviewsUnknownProduct(t *testing.T) {
	t.Parallel()

	pipeline := NewPipeline(PipelineDeps{
		Repository: newMemoryRepo(),
		Summarizer: &stubSummarizer{},
	})

	_, err := pipeline.SummarizeReviews(context.Background(), "missing", false)
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestExtractIssuesFrequencyReplacesSnapshot(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	pipeline := newTestPipeline(repo, &keywordClassifier{})
	ctx := context.Background()

	_, err := pipeline.Ingest(ctx, "PID1", "Trimmer", []domain.RawReview{
		{ReviewerName: "Amy", Rating: "2", ReviewText: "Battery drains fast. Battery drains overnight."},
		{ReviewerName: "Ben", Rating: "1", ReviewText: "Battery drains in hours, very bad."},
		{ReviewerName: "Cal", Rating: "5", ReviewText: "Lovely device, recommend strongly."},
	})
	require.NoError(t, err)
	_, err = pipeline.ScoreSentiments(ctx, "PID1", false)
	require.NoError(t, err)

	first, err := pipeline.ExtractIssues(ctx, IssueOptions{PID: "PID1"})
	require.NoError(t, err)
	require.NotEmpty(t, first.Phrases)
	assert.Equal(t, "battery", first.Phrases[0].Text)

	// running again with no new reviews yields the identical list
	second, err := pipeline.ExtractIssues(ctx, IssueOptions{PID: "PID1"})
	require.NoError(t, err)
	assert.Equal(t, first.Phrases, second.Phrases)

	stored, err := pipeline.Issues(ctx, "PID1")
	require.NoError(t, err)
	require.NotEmpty(t, stored)
	assert.Equal(t, "battery", stored[0].Phrase)
	assert.LessOrEqual(t, len(stored), 5)
}

func TestExtractIssuesFrequencySkipsUnscoredAndPositive(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	pipeline := newTestPipeline(repo, &keywordClassifier{})
	ctx := context.Background()

	_, err := pipeline.Ingest(ctx, "PID1", "Trimmer", []domain.RawReview{
		{ReviewerName: "Amy", Rating: "2", ReviewText: "Battery drains fast, screen broke twice."},
		{ReviewerName: "Ben", Rating: "5", ReviewText: "Lovely device overall, recommend strongly."},
	})
	require.NoError(t, err)

	// no sentiment pass has run, so nothing counts as negative yet
	result, err := pipeline.ExtractIssues(ctx, IssueOptions{PID: "PID1"})
	require.NoError(t, err)
	assert.Empty(t, result.Phrases)

	stored, err := pipeline.Issues(ctx, "PID1")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestExtractIssuesTopicsFlagsCritical(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	clf := &keywordClassifier{}
	topicClf := &fixedTopicClassifier{}
	pipeline := NewPipeline(PipelineDeps{
		Repository: repo,
		Sentiment:  sentiment.NewAnalyzer(clf),
		Classifier: clf,
		Topics:     issues.NewTopicExtractor(topicClf),
		TopicsPing: topicClf,
		Stats:      stats.NewAggregator(0, 50),
	})
	ctx := context.Background()

	_, err := pipeline.Ingest(ctx, "PID1", "Trimmer", []domain.RawReview{
		{ReviewerName: "Amy", Rating: "1", ReviewText: "Obvious product defect, it cracked."},
		{ReviewerName: "Ben", Rating: "5", ReviewText: "Perfect, would buy again."},
	})
	require.NoError(t, err)

	result, err := pipeline.ExtractIssues(ctx, IssueOptions{PID: "PID1", Strategy: "topics", MinRating: 3.0})
	require.NoError(t, err)
	require.NotNil(t, result.Report)
	assert.Equal(t, 1, result.Report.FlaggedCritical)
	require.Len(t, result.Report.Summaries, 1)
	assert.Equal(t, "product defect", result.Report.Summaries[0].Topic)

	stored, _ := repo.ListReviews(ctx, 1)
	assert.True(t, stored[0].IsCritical)
	assert.False(t, stored[1].IsCritical)
}

func TestStatsForProduct(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	pipeline := newTestPipeline(repo, &keywordClassifier{})
	ctx := context.Background()

	_, err := pipeline.Ingest(ctx, "PID1", "Trimmer", []domain.RawReview{
		{ReviewerName: "Amy", Rating: "5", ReviewText: "Excellent product, very happy."},
		{ReviewerName: "Ben", Rating: "3", ReviewText: "Average at best honestly."},
	})
	require.NoError(t, err)

	got, err := pipeline.Stats(ctx, "PID1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalReviews)
	assert.InDelta(t, 4.0, got.AverageRating, 1e-9)
	require.Len(t, got.RecentReviews, 2)
	assert.Equal(t, "Ben", got.RecentReviews[0].Reviewer)

	_, err = pipeline.Stats(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestCleanStoredRemovesInvalidRows(t *testing.T) {
	t.Parallel()

	repo := newMemoryRepo()
	pipeline := newTestPipeline(repo, &keywordClassifier{})
	ctx := context.Background()

	product, _, err := repo.GetOrCreateProduct(ctx, "PID1", "Trimmer")
	require.NoError(t, err)

	// Rows written before validation was tightened.
	seed := []domain.Review{
		{ProductID: product.ID, Reviewer: "amy smith", Rating: 4, Text: "Fine   product overall", ReviewDate: "21 August 2025"},
		{ProductID: product.ID, Reviewer: "Bad", Rating: 9, Text: "rating out of range but long"},
		{ProductID: product.ID, Reviewer: "AMY SMITH", Rating: 4, Text: "fine product overall"},
		{ProductID: product.ID, Reviewer: "Tiny", Rating: 3, Text: "no"},
	}
	for _, r := range seed {
		_, err := repo.SaveReview(ctx, r)
		require.NoError(t, err)
	}

	result, err := pipeline.CleanStored(ctx)
	require.NoError(t, err)
	assert.Equal(t, CleanResult{Cleaned: 1, Deleted: 3}, result)

	remaining, _ := repo.ListReviews(ctx, product.ID)
	require.Len(t, remaining, 1)
	assert.Equal(t, "Amy Smith", remaining[0].Reviewer)
	assert.Equal(t, "Fine product overall", remaining[0].Text)
	assert.Equal(t, "2025-08-21", remaining[0].ReviewDate)
}

// fixedTopicClassifier flags any text containing "defect" as a product defect.
type fixedTopicClassifier struct{}

func (f *fixedTopicClassifier) ClassifyTopics(_ context.Context, text string, _ []string) ([]domain.TopicScore, error) {
	if containsFold(text, "defect") {
		return []domain.TopicScore{{Label: "product defect", Confidence: 0.85}}, nil
	}
	return []domain.TopicScore{{Label: "general dissatisfaction", Confidence: 0.1}}, nil
}

func (f *fixedTopicClassifier) Ping(context.Context) error { return nil }
