package domain

import (
	"errors"
	"time"
)

// Sentiment is the binary label assigned by the sentence-level aggregator.
// The zero value means the review has not been scored yet.
type Sentiment string

const (
	SentimentUnset    Sentiment = ""
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
)

// Category is the aspect bucket a review complaint falls into.
type Category string

const (
	CategoryProduct  Category = "product"
	CategoryDelivery Category = "delivery"
	CategorySeller   Category = "seller"
	CategoryOther    Category = "other"
)

// AnonymousReviewer substitutes a missing reviewer name everywhere.
const AnonymousReviewer = "Anonymous"

// Sentinel errors surfaced to callers; everything else is absorbed into
// per-run counters (validation and per-record classification failures).
var (
	ErrProductNotFound       = errors.New("product not found")
	ErrClassifierUnavailable = errors.New("classifier unavailable")
)

// Product is a catalog item whose reviews are being analyzed.
type Product struct {
	ID        int64
	PID       string
	Name      string
	CreatedAt time.Time
}

// Review is a single customer rating+text record owned by one product.
type Review struct {
	ID             int64
	ProductID      int64
	Reviewer       string
	Rating         float64
	Verified       bool
	Text           string
	Title          string
	Location       string
	ReviewDate     string
	Sentiment      Sentiment
	SentimentScore float64
	Summary        string
	IsCritical     bool
	Category       Category
	CreatedAt      time.Time
}

// RawReview carries one scraped record before normalization. Rating stays a
// string because marketplaces render it as text and bad values must be
// rejected, not zeroed.
type RawReview struct {
	ReviewerName string `json:"reviewer_name"`
	Rating       string `json:"rating"`
	Title        string `json:"title"`
	ReviewText   string `json:"review_text"`
	Location     string `json:"location"`
	Date         string `json:"date"`
	Verified     bool   `json:"verified"`
}

// Issue is one recorded complaint phrase for a product. Rows belong to an
// extraction snapshot; only the newest snapshot is live.
type Issue struct {
	ID          int64
	ProductID   int64
	Phrase      string
	Frequency   int
	AvgSeverity float64
	Aspect      string
	SnapshotID  string
}

// TopicScore is one zero-shot classification result for a review text.
type TopicScore struct {
	Label      string
	Confidence float64
}

// IssueMention records that one review contributed to a topic.
type IssueMention struct {
	Topic      string
	Confidence float64
	Severity   float64
	Evidence   []string
	Reviewer   string
	Rating     float64
	ReviewID   int64
}

// IssueSummary aggregates all mentions of one topic across a product's reviews.
type IssueSummary struct {
	Topic           string         `json:"issue"`
	TotalMentions   int            `json:"total_mentions"`
	AverageSeverity float64        `json:"average_severity"`
	TopReviewers    []ReviewerTally `json:"top_reviewers"`
	ExampleEvidence []string       `json:"example_evidence"`
}

// ReviewerTally pairs a reviewer with the number of mentions they contributed.
type ReviewerTally struct {
	Reviewer string `json:"reviewer"`
	Mentions int    `json:"mentions"`
}

// IssueReport is the full output of one topic-strategy extraction run.
type IssueReport struct {
	ProductPID      string         `json:"product_pid,omitempty"`
	TotalReviews    int            `json:"total_reviews"`
	FlaggedCritical int            `json:"flagged_critical"`
	Skipped         int            `json:"skipped"`
	Summaries       []IssueSummary `json:"issues"`
	Digest          string         `json:"digest"`
	Narrative       string         `json:"narrative,omitempty"`
}

// ProductStats is the display-ready aggregate consumed by the dashboard.
type ProductStats struct {
	TotalReviews    int              `json:"total_reviews"`
	AverageRating   float64          `json:"avg_rating"`
	SentimentCounts []SentimentCount `json:"sentiment_counts"`
	RecentReviews   []RecentReview   `json:"recent_reviews"`
}

// SentimentCount is one slice of the sentiment distribution chart.
type SentimentCount struct {
	Sentiment string `json:"sentiment"`
	Count     int    `json:"count"`
}

// RecentReview is the dashboard row for one stored review.
type RecentReview struct {
	Reviewer   string  `json:"reviewer"`
	Rating     float64 `json:"rating"`
	Text       string  `json:"text"`
	Sentiment  string  `json:"sentiment"`
	ReviewDate string  `json:"review_date"`
}
