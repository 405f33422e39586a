package ports

import (
	"context"

	"github.com/Bhavy-official/RevLens/internal/domain"
)

// ScrapeRequest carries everything a marketplace scraper needs for one product.
type ScrapeRequest struct {
	PID      string
	URL      string
	MaxPages int
	Options  map[string]string
}

// ReviewSource pulls raw review records from a marketplace page.
type ReviewSource interface {
	FetchReviews(ctx context.Context, req ScrapeRequest) ([]domain.RawReview, error)
}

// ReviewRepository persists products, reviews, and issue snapshots.
type ReviewRepository interface {
	// GetOrCreateProduct is idempotent per PID; the name is only applied on create.
	GetOrCreateProduct(ctx context.Context, pid, name string) (domain.Product, bool, error)
	ProductByPID(ctx context.Context, pid string) (domain.Product, error)
	ProductByName(ctx context.Context, name string) (domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	SaveReview(ctx context.Context, review domain.Review) (int64, error)
	UpdateReview(ctx context.Context, review domain.Review) error
	DeleteReview(ctx context.Context, id int64) error
	// ListReviews returns a product's reviews in insertion order.
	ListReviews(ctx context.Context, productID int64) ([]domain.Review, error)
	ListReviewsByMaxRating(ctx context.Context, productID int64, maxRating float64) ([]domain.Review, error)
	ListReviewsBySentiment(ctx context.Context, productID int64, s domain.Sentiment) ([]domain.Review, error)

	// ReplaceIssues swaps the product's live issue snapshot atomically.
	ReplaceIssues(ctx context.Context, productID int64, snapshotID string, issues []domain.Issue) error
	ListIssues(ctx context.Context, productID int64) ([]domain.Issue, error)
}

// SentimentClassifier scores a single text span as positive or negative.
type SentimentClassifier interface {
	Classify(ctx context.Context, text string) (label domain.Sentiment, confidence float64, err error)
	// Ping verifies the capability is reachable before a batch starts.
	Ping(ctx context.Context) error
}

// TopicClassifier scores a text against a closed label set, multi-label.
type TopicClassifier interface {
	ClassifyTopics(ctx context.Context, text string, labels []string) ([]domain.TopicScore, error)
	Ping(ctx context.Context) error
}

// Summarizer condenses an issue report into prose.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Notifier pushes issue digests to an outbound channel.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when refresh jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func()) error
	Stop(ctx context.Context) error
}
