package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/Bhavy-official/RevLens/internal/domain"
)

const (
	minTextLength = 5
	minRating     = 1.0
	maxRating     = 5.0
)

var (
	whitespaceExpr = regexp.MustCompile(`\s+`)
	nonASCIIExpr   = regexp.MustCompile(`[^\x00-\x7F]+`)
)

// scrape date layouts seen on marketplace pages, e.g. "21 August 2025".
var dateLayouts = []string{"2 January 2006", "2 Jan 2006"}

// Reason classifies why a raw review was rejected.
type Reason string

const (
	ReasonTextTooShort Reason = "text_too_short"
	ReasonBadRating    Reason = "bad_rating"
	ReasonDuplicate    Reason = "duplicate"
)

// Result aggregates counters for one normalization run.
type Result struct {
	Accepted   int
	Rejected   int
	Duplicates int
}

// Deduper tracks (reviewer, text) keys already seen within a run.
type Deduper struct {
	seen map[string]struct{}
}

// NewDeduper builds an empty per-run dedup set.
func NewDeduper() *Deduper {
	return &Deduper{seen: map[string]struct{}{}}
}

// Seen records the key for the given reviewer/text pair and reports whether
// it was already present.
func (d *Deduper) Seen(reviewer, text string) bool {
	key := strings.ToLower(reviewer) + "\x00" + strings.ToLower(text)
	if _, ok := d.seen[key]; ok {
		return true
	}
	d.seen[key] = struct{}{}
	return false
}

// Normalize cleans and validates one raw review. The returned Reason is only
// meaningful when ok is false. Validation failures never become errors; the
// caller counts them.
func Normalize(raw domain.RawReview, dedup *Deduper) (domain.Review, Reason, bool) {
	text := CleanText(raw.ReviewText)
	if len(text) < minTextLength {
		return domain.Review{}, ReasonTextTooShort, false
	}

	rating, err := strconv.ParseFloat(strings.TrimSpace(raw.Rating), 64)
	if err != nil || rating < minRating || rating > maxRating {
		return domain.Review{}, ReasonBadRating, false
	}

	reviewer := CleanReviewer(raw.ReviewerName)

	if dedup != nil && dedup.Seen(reviewer, text) {
		return domain.Review{}, ReasonDuplicate, false
	}

	review := domain.Review{
		Reviewer:   reviewer,
		Rating:     rating,
		Verified:   raw.Verified,
		Text:       text,
		Title:      CleanTitle(raw.Title),
		Location:   strings.TrimSpace(raw.Location),
		ReviewDate: NormalizeDate(raw.Date),
		Category:   domain.CategoryOther,
	}
	return review, "", true
}

// CleanText collapses whitespace runs and strips non-ASCII bytes.
// Stripping non-ASCII discards legitimate international text; kept as the
// recorded policy rather than silently changed.
func CleanText(text string) string {
	text = collapseWhitespace(text)
	text = nonASCIIExpr.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// CleanTitle collapses whitespace only; titles keep their original
// characters and a missing title is never invented.
func CleanTitle(title string) string {
	return collapseWhitespace(title)
}

// CleanReviewer trims and title-cases the name, substituting the anonymous
// sentinel when nothing remains.
func CleanReviewer(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.AnonymousReviewer
	}
	return titleCase(name)
}

// NormalizeDate rewrites scrape-format dates ("21 August 2025") to
// YYYY-MM-DD. Dates already containing "-" pass through; unparseable values
// are returned unchanged.
func NormalizeDate(date string) string {
	date = strings.TrimSpace(date)
	if date == "" || strings.Contains(date, "-") {
		return date
	}

	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, date); err == nil {
			return parsed.Format("2006-01-02")
		}
	}
	return date
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceExpr.ReplaceAllString(s, " "))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
