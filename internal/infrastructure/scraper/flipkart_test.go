package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/Bhavy-official/RevLens/internal/ports"
)

const flipkartReviewHTML = `
<div class="col-12-12">
  <div class="XQDdHH Ga3i8K">4</div>
  <p class="z9E0IG">Good but noisy</p>
  <div class="ZmyHeo">Trimmer works well. Motor is a bit loud.</div>
  <p class="_2NsDsF AwS1CA">Ravi Kumar</p>
  <p class="MztJPv">Certified Buyer, Pune</p>
  <p class="_2NsDsF">21 August 2025</p>
</div>`

func TestBuildReviewPageURL(t *testing.T) {
	t.Parallel()

	u, err := buildReviewPageURL("https://www.flipkart.com", "ITM123", 3)
	if err != nil {
		t.Fatalf("buildReviewPageURL returned error: %v", err)
	}

	parsed, err := url.Parse(u)
	if err != nil {
		t.Fatalf("parse result: %v", err)
	}

	if !strings.HasSuffix(parsed.Path, "/product-reviews/ITM123") {
		t.Fatalf("unexpected path: %s", parsed.Path)
	}

	q := parsed.Query()
	if q.Get("pid") != "ITM123" {
		t.Fatalf("expected pid=ITM123, got %s", q.Get("pid"))
	}
	if q.Get("page") != "3" {
		t.Fatalf("expected page=3, got %s", q.Get("page"))
	}
}

func TestExtractFlipkartReviews(t *testing.T) {
	t.Parallel()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(flipkartReviewHTML))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	reviews := extractFlipkartReviews(doc)
	if len(reviews) != 1 {
		t.Fatalf("expected 1 review, got %d", len(reviews))
	}

	r := reviews[0]
	if r.Title != "Good but noisy" {
		t.Fatalf("unexpected title: %q", r.Title)
	}
	if r.ReviewText != "Trimmer works well. Motor is a bit loud." {
		t.Fatalf("unexpected text: %q", r.ReviewText)
	}
	if r.ReviewerName != "Ravi Kumar" {
		t.Fatalf("unexpected reviewer: %q", r.ReviewerName)
	}
	if r.Rating != "4" {
		t.Fatalf("unexpected rating: %q", r.Rating)
	}
	if r.Date != "21 August 2025" {
		t.Fatalf("unexpected date: %q", r.Date)
	}
}

func TestFlipkartScraperStopsOnEmptyPage(t *testing.T) {
	t.Parallel()

	var pagesServed int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pagesServed++
		if r.URL.Query().Get("page") == "1" {
			_, _ = w.Write([]byte(flipkartReviewHTML))
			return
		}
		_, _ = w.Write([]byte("<div>no more reviews</div>"))
	}))
	defer server.Close()

	sc := NewFlipkartScraper(server.Client(), server.URL)

	reviews, err := sc.Scrape(context.Background(), ports.ScrapeRequest{PID: "ITM123", MaxPages: 5})
	if err != nil {
		t.Fatalf("Scrape error: %v", err)
	}

	if len(reviews) != 1 {
		t.Fatalf("expected 1 review, got %d", len(reviews))
	}
	if pagesServed != 2 {
		t.Fatalf("expected scrape to stop after the first empty page, served %d", pagesServed)
	}
}

func TestAmazonExtract(t *testing.T) {
	t.Parallel()

	html := `
	<li data-hook="review">
	  <span class="a-profile-name">Jane</span>
	  <a data-hook="review-title">Stopped working</a>
	  <i data-hook="review-star-rating"><span class="a-icon-alt">2.0 out of 5 stars</span></i>
	  <span data-hook="review-date">Reviewed in India on 21 August 2025</span>
	  <span data-hook="review-body">Died after a week of use.</span>
	  <span data-hook="avp-badge-linkless">Verified Purchase</span>
	</li>`

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}

	reviews := extractAmazonReviews(doc)
	if len(reviews) != 1 {
		t.Fatalf("expected 1 review, got %d", len(reviews))
	}

	r := reviews[0]
	if r.Rating != "2.0" {
		t.Fatalf("unexpected rating: %q", r.Rating)
	}
	if r.Date != "21 August 2025" {
		t.Fatalf("unexpected date: %q", r.Date)
	}
	if !r.Verified {
		t.Fatal("expected verified purchase")
	}
	if r.ReviewText != "Died after a week of use." {
		t.Fatalf("unexpected text: %q", r.ReviewText)
	}
}
