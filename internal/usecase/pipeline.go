package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/Bhavy-official/RevLens/internal/domain"
	"github.com/Bhavy-official/RevLens/internal/issues"
	"github.com/Bhavy-official/RevLens/internal/normalize"
	"github.com/Bhavy-official/RevLens/internal/ports"
	"github.com/Bhavy-official/RevLens/internal/sentiment"
	"github.com/Bhavy-official/RevLens/internal/stats"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Repository ports.ReviewRepository
	Source     ports.ReviewSource
	Sentiment  *sentiment.Analyzer
	Classifier ports.SentimentClassifier
	Topics     *issues.TopicExtractor
	TopicsPing ports.TopicClassifier
	Stats      *stats.Aggregator
	Summarizer ports.Summarizer
	Notifier   ports.Notifier
	Logger     *slog.Logger
}

// Pipeline implements the review-to-insight workflow: ingest, normalize,
// score, extract, aggregate. All batch operations for one product run to
// completion sequentially; runs against the same product are serialized by a
// per-product lock because issue extraction replaces state.
type Pipeline struct {
	repository ports.ReviewRepository
	source     ports.ReviewSource
	sentiment  *sentiment.Analyzer
	classifier ports.SentimentClassifier
	topics     *issues.TopicExtractor
	topicsPing ports.TopicClassifier
	stats      *stats.Aggregator
	summarizer ports.Summarizer
	notifier   ports.Notifier
	logger     *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		repository: deps.Repository,
		source:     deps.Source,
		sentiment:  deps.Sentiment,
		classifier: deps.Classifier,
		topics:     deps.Topics,
		topicsPing: deps.TopicsPing,
		stats:      deps.Stats,
		summarizer: deps.Summarizer,
		notifier:   deps.Notifier,
		logger:     deps.Logger,
		locks:      map[string]*sync.Mutex{},
	}
}

// productLock returns the mutex serializing runs for one product.
func (p *Pipeline) productLock(pid string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	if lock, ok := p.locks[pid]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	p.locks[pid] = lock
	return lock
}

// IngestResult carries the counters an ingestion run must report.
type IngestResult struct {
	Saved      int `json:"saved"`
	Rejected   int `json:"rejected"`
	Duplicates int `json:"duplicates"`
}

// Ingest normalizes raw scraped records and persists the survivors under the
// product identified by pid, creating the product on first use. Validation
// and duplicate rejections are counted, never raised.
func (p *Pipeline) Ingest(ctx context.Context, pid, name string, raws []domain.RawReview) (IngestResult, error) {
	lock := p.productLock(pid)
	lock.Lock()
	defer lock.Unlock()

	return p.ingestLocked(ctx, pid, name, raws)
}

func (p *Pipeline) ingestLocked(ctx context.Context, pid, name string, raws []domain.RawReview) (IngestResult, error) {
	product, created, err := p.repository.GetOrCreateProduct(ctx, pid, name)
	if err != nil {
		return IngestResult{}, fmt.Errorf("get or create product: %w", err)
	}
	if created {
		p.logInfo("product created", "pid", pid, "name", name)
	}

	var result IngestResult
	dedup := normalize.NewDeduper()

	// Seed the dedup set with what is already stored so re-ingesting the same
	// pages stays idempotent.
	existing, err := p.repository.ListReviews(ctx, product.ID)
	if err != nil {
		return IngestResult{}, fmt.Errorf("list reviews: %w", err)
	}
	for _, r := range existing {
		dedup.Seen(r.Reviewer, r.Text)
	}

	for _, raw := range raws {
		review, reason, ok := normalize.Normalize(raw, dedup)
		if !ok {
			if reason == normalize.ReasonDuplicate {
				result.Duplicates++
			} else {
				result.Rejected++
			}
			continue
		}

		review.ProductID = product.ID
		if _, err := p.repository.SaveReview(ctx, review); err != nil {
			return result, fmt.Errorf("save review: %w", err)
		}
		result.Saved++
	}

	p.logInfo("ingest finished", "pid", pid,
		"saved", result.Saved, "rejected", result.Rejected, "duplicates", result.Duplicates)
	return result, nil
}

// IngestFromSource scrapes the configured marketplace for pid and ingests the
// result.
func (p *Pipeline) IngestFromSource(ctx context.Context, pid, name, marketplace string, maxPages int) (IngestResult, error) {
	if p.source == nil {
		return IngestResult{}, fmt.Errorf("no review source configured")
	}

	req := ports.ScrapeRequest{PID: pid, MaxPages: maxPages}
	if marketplace != "" {
		req.Options = map[string]string{"marketplace": marketplace}
	}

	raws, err := p.source.FetchReviews(ctx, req)
	if err != nil {
		return IngestResult{}, fmt.Errorf("fetch reviews: %w", err)
	}

	return p.Ingest(ctx, pid, name, raws)
}

// ScoreResult carries the counters a scoring run must report.
type ScoreResult struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// ScoreSentiments runs the sentence-level aggregator over the product's
// reviews. When rescoreAll is false only reviews without a label are visited.
// A dead classifier aborts the whole batch; individual failures skip the
// record and continue.
func (p *Pipeline) ScoreSentiments(ctx context.Context, pid string, rescoreAll bool) (ScoreResult, error) {
	lock := p.productLock(pid)
	lock.Lock()
	defer lock.Unlock()

	product, err := p.repository.ProductByPID(ctx, pid)
	if err != nil {
		return ScoreResult{}, err
	}

	if p.classifier != nil {
		if err := p.classifier.Ping(ctx); err != nil {
			return ScoreResult{}, err
		}
	}

	reviews, err := p.repository.ListReviews(ctx, product.ID)
	if err != nil {
		return ScoreResult{}, fmt.Errorf("list reviews: %w", err)
	}

	var result ScoreResult
	for _, review := range reviews {
		if !rescoreAll && review.Sentiment != domain.SentimentUnset {
			continue
		}

		label, score, ok, err := p.sentiment.Score(ctx, review.Text)
		if err != nil {
			result.Skipped++
			p.logWarn("skipping review", "review_id", review.ID, "error", err)
			continue
		}
		if !ok {
			result.Skipped++
			continue
		}

		review.Sentiment = label
		review.SentimentScore = score
		if err := p.repository.UpdateReview(ctx, review); err != nil {
			return result, fmt.Errorf("update review %d: %w", review.ID, err)
		}
		result.Updated++
	}

	p.logInfo("sentiment scoring finished", "pid", pid,
		"updated", result.Updated, "skipped", result.Skipped)
	return result, nil
}

// summaryMinChars is the length below which a review reads faster than any
// condensed version of it would.
const summaryMinChars = 240

// SummarizeResult counts one summarization batch.
type SummarizeResult struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// SummarizeReviews condenses the product's long reviews through the
// summarizer and stores the result on each review. Reviews that already
// carry a summary are revisited only when redo is set; individual failures
// skip the record and continue.
func (p *Pipeline) SummarizeReviews(ctx context.Context, pid string, redo bool) (SummarizeResult, error) {
	if p.summarizer == nil {
		return SummarizeResult{}, domain.ErrClassifierUnavailable
	}

	lock := p.productLock(pid)
	lock.Lock()
	defer lock.Unlock()

	product, err := p.repository.ProductByPID(ctx, pid)
	if err != nil {
		return SummarizeResult{}, err
	}

	reviews, err := p.repository.ListReviews(ctx, product.ID)
	if err != nil {
		return SummarizeResult{}, fmt.Errorf("list reviews: %w", err)
	}

	var result SummarizeResult
	for _, review := range reviews {
		if !redo && review.Summary != "" {
			continue
		}
		if len(review.Text) < summaryMinChars {
			continue
		}

		summary, err := p.summarizer.Summarize(ctx, review.Text)
		if err != nil {
			result.Skipped++
			p.logWarn("skipping review", "review_id", review.ID, "error", err)
			continue
		}
		summary = strings.TrimSpace(summary)
		if summary == "" {
			result.Skipped++
			continue
		}

		review.Summary = summary
		if err := p.repository.UpdateReview(ctx, review); err != nil {
			return result, fmt.Errorf("update review %d: %w", review.ID, err)
		}
		result.Updated++
	}

	p.logInfo("summarization finished", "pid", pid,
		"updated", result.Updated, "skipped", result.Skipped)
	return result, nil
}

// IssueOptions selects the corpus and strategy for an extraction run.
type IssueOptions struct {
	PID         string
	ProductName string
	MinRating   float64
	Strategy    string
}

// ExtractionResult is the combined output of an extraction run; Report is set
// by the topics strategy, Phrases by the frequency strategy.
type ExtractionResult struct {
	Report  *domain.IssueReport `json:"report,omitempty"`
	Phrases []issues.Phrase     `json:"phrases,omitempty"`
}

// ExtractIssues runs the selected strategy for one product. The frequency
// strategy replaces the stored issue snapshot; the topics strategy returns a
// ranked report and flags contributing reviews critical.
func (p *Pipeline) ExtractIssues(ctx context.Context, opts IssueOptions) (ExtractionResult, error) {
	product, err := p.resolveProduct(ctx, opts)
	if err != nil {
		return ExtractionResult{}, err
	}

	lock := p.productLock(product.PID)
	lock.Lock()
	defer lock.Unlock()

	switch opts.Strategy {
	case "", "frequency":
		phrases, err := p.extractFrequency(ctx, product)
		if err != nil {
			return ExtractionResult{}, err
		}
		return ExtractionResult{Phrases: phrases}, nil
	case "topics":
		report, err := p.extractTopics(ctx, product, opts.MinRating)
		if err != nil {
			return ExtractionResult{}, err
		}
		return ExtractionResult{Report: report}, nil
	default:
		return ExtractionResult{}, fmt.Errorf("unknown extraction strategy %q", opts.Strategy)
	}
}

func (p *Pipeline) resolveProduct(ctx context.Context, opts IssueOptions) (domain.Product, error) {
	if opts.PID != "" {
		return p.repository.ProductByPID(ctx, opts.PID)
	}
	if opts.ProductName != "" {
		return p.repository.ProductByName(ctx, opts.ProductName)
	}
	return domain.Product{}, domain.ErrProductNotFound
}

func (p *Pipeline) extractFrequency(ctx context.Context, product domain.Product) ([]issues.Phrase, error) {
	reviews, err := p.repository.ListReviewsBySentiment(ctx, product.ID, domain.SentimentNegative)
	if err != nil {
		return nil, fmt.Errorf("list negative reviews: %w", err)
	}

	phrases := issues.TopPhrases(reviews)

	snapshot := make([]domain.Issue, 0, len(phrases))
	for _, phrase := range phrases {
		snapshot = append(snapshot, domain.Issue{
			ProductID: product.ID,
			Phrase:    phrase.Text,
			Frequency: phrase.Frequency,
			Aspect:    string(domain.CategoryProduct),
		})
	}

	if err := p.repository.ReplaceIssues(ctx, product.ID, uuid.NewString(), snapshot); err != nil {
		return nil, fmt.Errorf("replace issues: %w", err)
	}

	p.logInfo("frequency extraction finished", "pid", product.PID, "phrases", len(phrases))
	return phrases, nil
}

func (p *Pipeline) extractTopics(ctx context.Context, product domain.Product, minRating float64) (*domain.IssueReport, error) {
	if p.topics == nil {
		return nil, domain.ErrClassifierUnavailable
	}
	if p.topicsPing != nil {
		if err := p.topicsPing.Ping(ctx); err != nil {
			return nil, err
		}
	}

	if minRating <= 0 {
		minRating = 3.0
	}

	reviews, err := p.repository.ListReviewsByMaxRating(ctx, product.ID, minRating)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	report, flagged, err := p.topics.ExtractReport(ctx, reviews, p.logger)
	if err != nil {
		return nil, err
	}
	report.ProductPID = product.PID

	flaggedIDs := map[int64]struct{}{}
	for _, id := range flagged {
		flaggedIDs[id] = struct{}{}
	}
	for _, review := range reviews {
		if _, ok := flaggedIDs[review.ID]; !ok {
			continue
		}
		review.IsCritical = true
		if err := p.repository.UpdateReview(ctx, review); err != nil {
			return nil, fmt.Errorf("flag review %d: %w", review.ID, err)
		}
	}

	if p.summarizer != nil && len(report.Summaries) > 0 {
		narrative, err := p.summarizer.Summarize(ctx, report.Digest)
		if err != nil {
			p.logWarn("summarize digest", "error", err)
		} else {
			report.Narrative = narrative
		}
	}

	if p.notifier != nil && len(report.Summaries) > 0 {
		message := report.Digest
		if report.Narrative != "" {
			message = report.Narrative
		}
		if err := p.notifier.PublishDigest(ctx, message); err != nil {
			p.logWarn("publish digest", "error", err)
		}
	}

	p.logInfo("topic extraction finished", "pid", product.PID,
		"issues", len(report.Summaries), "flagged", report.FlaggedCritical, "skipped", report.Skipped)
	return &report, nil
}

// Products lists the catalog in creation order.
func (p *Pipeline) Products(ctx context.Context) ([]domain.Product, error) {
	return p.repository.ListProducts(ctx)
}

// Stats computes the dashboard aggregate for one product.
func (p *Pipeline) Stats(ctx context.Context, pid string) (domain.ProductStats, error) {
	product, err := p.repository.ProductByPID(ctx, pid)
	if err != nil {
		return domain.ProductStats{}, err
	}

	reviews, err := p.repository.ListReviews(ctx, product.ID)
	if err != nil {
		return domain.ProductStats{}, fmt.Errorf("list reviews: %w", err)
	}

	return p.stats.Compute(reviews), nil
}

// Issues returns the product's live issue snapshot.
func (p *Pipeline) Issues(ctx context.Context, pid string) ([]domain.Issue, error) {
	product, err := p.repository.ProductByPID(ctx, pid)
	if err != nil {
		return nil, err
	}
	return p.repository.ListIssues(ctx, product.ID)
}

// CleanResult carries the counters a clean run must report.
type CleanResult struct {
	Cleaned int `json:"cleaned"`
	Deleted int `json:"deleted"`
}

// CleanStored re-applies normalization to every stored review of every
// product, deleting rows that are now invalid or duplicate another. Fields
// like location or title are re-cleaned, never wiped.
func (p *Pipeline) CleanStored(ctx context.Context) (CleanResult, error) {
	products, err := p.repository.ListProducts(ctx)
	if err != nil {
		return CleanResult{}, fmt.Errorf("list products: %w", err)
	}

	var result CleanResult
	for _, product := range products {
		lock := p.productLock(product.PID)
		lock.Lock()
		cleaned, deleted, err := p.cleanProduct(ctx, product)
		lock.Unlock()
		if err != nil {
			return result, err
		}
		result.Cleaned += cleaned
		result.Deleted += deleted
	}

	p.logInfo("clean finished", "cleaned", result.Cleaned, "deleted", result.Deleted)
	return result, nil
}

func (p *Pipeline) cleanProduct(ctx context.Context, product domain.Product) (cleaned, deleted int, err error) {
	reviews, err := p.repository.ListReviews(ctx, product.ID)
	if err != nil {
		return 0, 0, fmt.Errorf("list reviews: %w", err)
	}

	dedup := normalize.NewDeduper()
	for _, review := range reviews {
		text := normalize.CleanText(review.Text)
		if len(text) < 5 || review.Rating < 1.0 || review.Rating > 5.0 {
			if err := p.repository.DeleteReview(ctx, review.ID); err != nil {
				return cleaned, deleted, fmt.Errorf("delete review %d: %w", review.ID, err)
			}
			deleted++
			continue
		}

		reviewer := normalize.CleanReviewer(review.Reviewer)
		if dedup.Seen(reviewer, text) {
			if err := p.repository.DeleteReview(ctx, review.ID); err != nil {
				return cleaned, deleted, fmt.Errorf("delete review %d: %w", review.ID, err)
			}
			deleted++
			continue
		}

		review.Text = text
		review.Reviewer = reviewer
		review.Title = normalize.CleanTitle(review.Title)
		review.ReviewDate = normalize.NormalizeDate(review.ReviewDate)
		if err := p.repository.UpdateReview(ctx, review); err != nil {
			return cleaned, deleted, fmt.Errorf("update review %d: %w", review.ID, err)
		}
		cleaned++
	}

	return cleaned, deleted, nil
}

// RefreshProduct runs the full pipeline for one product: scrape, ingest,
// score, extract. Used by the HTTP ingestion boundary and the periodic job.
func (p *Pipeline) RefreshProduct(ctx context.Context, pid, name, marketplace string, maxPages int) (IngestResult, ScoreResult, error) {
	ingested, err := p.IngestFromSource(ctx, pid, name, marketplace, maxPages)
	if err != nil {
		return IngestResult{}, ScoreResult{}, err
	}

	scored, err := p.ScoreSentiments(ctx, pid, false)
	if err != nil {
		return ingested, ScoreResult{}, err
	}

	if _, err := p.ExtractIssues(ctx, IssueOptions{PID: pid, Strategy: "frequency"}); err != nil {
		return ingested, scored, err
	}

	return ingested, scored, nil
}

// RefreshAll re-runs the pipeline for every stored product; errors are logged
// per product so one bad catalog entry cannot stall the periodic job.
func (p *Pipeline) RefreshAll(ctx context.Context) {
	products, err := p.repository.ListProducts(ctx)
	if err != nil {
		p.logWarn("refresh all", "error", err)
		return
	}

	for _, product := range products {
		if _, _, err := p.RefreshProduct(ctx, product.PID, product.Name, "", 0); err != nil {
			if errors.Is(err, domain.ErrClassifierUnavailable) {
				p.logWarn("refresh aborted", "error", err)
				return
			}
			p.logWarn("refresh product", "pid", product.PID, "error", err)
		}
	}
}

func (p *Pipeline) logInfo(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) logWarn(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
