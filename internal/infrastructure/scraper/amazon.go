package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/Bhavy-official/RevLens/internal/domain"
	"github.com/Bhavy-official/RevLens/internal/ports"
	"github.com/Bhavy-official/RevLens/internal/scraper"
)

// AmazonScraper crawls Amazon review pages for a product URL.
type AmazonScraper struct {
	client *http.Client
}

var _ scraper.Scraper = (*AmazonScraper)(nil)

// NewAmazonScraper wires an HTTP client with a sane default timeout.
func NewAmazonScraper(client *http.Client) *AmazonScraper {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &AmazonScraper{client: client}
}

// Name identifies the strategy inside the registry.
func (a *AmazonScraper) Name() string {
	return "amazon"
}

// Scrape paginates the review listing via the pageNumber query parameter.
// A page that fails to fetch is skipped rather than aborting the whole run,
// matching how flaky Amazon is about rate limits.
func (a *AmazonScraper) Scrape(ctx context.Context, req ports.ScrapeRequest) ([]domain.RawReview, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("amazon scraper requires a product review url")
	}

	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = 2
	}

	var reviews []domain.RawReview
	for page := 1; page <= maxPages; page++ {
		pageURL, err := withPageNumber(req.URL, page)
		if err != nil {
			return nil, err
		}

		doc, err := fetchDocument(ctx, a.client, pageURL)
		if err != nil {
			continue
		}

		reviews = append(reviews, extractAmazonReviews(doc)...)
	}

	return reviews, nil
}

func withPageNumber(base string, page int) (string, error) {
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid product url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("pageNumber", strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func extractAmazonReviews(doc *goquery.Document) []domain.RawReview {
	blocks := doc.Find("li[data-hook=review]")
	if blocks.Length() == 0 {
		blocks = doc.Find("div.a-section.celwidget")
	}

	var reviews []domain.RawReview
	blocks.Each(func(_ int, block *goquery.Selection) {
		body := text(block, "span[data-hook=review-collapsed]")
		if body == "" {
			body = text(block, "span[data-hook=review-body]")
		}

		reviews = append(reviews, domain.RawReview{
			ReviewerName: text(block, ".a-profile-name"),
			ReviewText:   body,
			Title:        text(block, "a[data-hook=review-title]"),
			Rating:       amazonRating(block),
			Date:         amazonDate(block),
			Verified:     block.Find("span[data-hook=avp-badge-linkless]").Length() > 0,
		})
	})

	return reviews
}

// amazonRating extracts "4.0" from strings like "4.0 out of 5 stars".
func amazonRating(block *goquery.Selection) string {
	raw := text(block, "i[data-hook=review-star-rating] span.a-icon-alt")
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// amazonDate strips the locale prefix from "Reviewed in India on 21 August 2025".
func amazonDate(block *goquery.Selection) string {
	raw := text(block, "span[data-hook=review-date]")
	if idx := strings.LastIndex(raw, " on "); idx >= 0 {
		return strings.TrimSpace(raw[idx+len(" on "):])
	}
	return raw
}
