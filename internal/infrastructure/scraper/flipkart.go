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

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// FlipkartScraper crawls Flipkart product-review pages for a PID.
type FlipkartScraper struct {
	client  *http.Client
	baseURL string
}

var _ scraper.Scraper = (*FlipkartScraper)(nil)

// NewFlipkartScraper wires an HTTP client; baseURL defaults to the live site.
func NewFlipkartScraper(client *http.Client, baseURL string) *FlipkartScraper {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if baseURL == "" {
		baseURL = "https://www.flipkart.com"
	}
	return &FlipkartScraper{client: client, baseURL: baseURL}
}

// Name identifies the strategy inside the registry.
func (f *FlipkartScraper) Name() string {
	return "flipkart"
}

// Scrape walks paginated review pages until one yields no review blocks or
// MaxPages is reached.
func (f *FlipkartScraper) Scrape(ctx context.Context, req ports.ScrapeRequest) ([]domain.RawReview, error) {
	if req.PID == "" {
		return nil, fmt.Errorf("flipkart scraper requires a pid")
	}

	maxPages := req.MaxPages
	if maxPages <= 0 {
		maxPages = 4
	}

	base := req.URL
	if base == "" {
		base = f.baseURL
	}

	var reviews []domain.RawReview
	for page := 1; page <= maxPages; page++ {
		pageURL, err := buildReviewPageURL(base, req.PID, page)
		if err != nil {
			return nil, err
		}

		doc, err := fetchDocument(ctx, f.client, pageURL)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}

		pageReviews := extractFlipkartReviews(doc)
		if len(pageReviews) == 0 {
			break
		}
		reviews = append(reviews, pageReviews...)
	}

	return reviews, nil
}

func buildReviewPageURL(base, pid string, page int) (string, error) {
	parsed, err := url.Parse(base + "/product-reviews/" + pid)
	if err != nil {
		return "", fmt.Errorf("invalid base url %s: %w", base, err)
	}

	query := parsed.Query()
	query.Set("pid", pid)
	query.Set("marketplace", "FLIPKART")
	query.Set("page", strconv.Itoa(page))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// extractFlipkartReviews pulls raw field dictionaries out of the page's
// review blocks. The obfuscated class names track the live markup and break
// when the site ships new CSS; resilience to that belongs to the operator,
// not this code.
func extractFlipkartReviews(doc *goquery.Document) []domain.RawReview {
	var reviews []domain.RawReview

	doc.Find("div.col-12-12").Each(func(_ int, block *goquery.Selection) {
		textValue := text(block, "div.ZmyHeo")
		rating := text(block, "div.XQDdHH.Ga3i8K")
		if textValue == "" && rating == "" {
			return
		}

		reviews = append(reviews, domain.RawReview{
			Title:        text(block, "p.z9E0IG"),
			ReviewText:   textValue,
			ReviewerName: text(block, "p._2NsDsF.AwS1CA"),
			Location:     text(block, "p.MztJPv"),
			Rating:       rating,
			Date:         text(block, "p._2NsDsF:not(.AwS1CA)"),
			Verified:     true,
		})
	})

	return reviews
}

func text(block *goquery.Selection, selector string) string {
	return strings.TrimSpace(block.Find(selector).First().Text())
}

func fetchDocument(ctx context.Context, client *http.Client, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("marketplace returned %s", resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	return doc, nil
}
