package issues

import (
	"regexp"
	"sort"
	"strings"

	"github.com/Bhavy-official/RevLens/internal/domain"
)

const topPhraseLimit = 5

var wordExpr = regexp.MustCompile(`[a-z]{3,}`)

// stopWords are dropped before counting; they carry no complaint signal.
var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "this": {}, "that": {}, "with": {}, "from": {},
	"have": {}, "been": {}, "just": {}, "very": {}, "also": {}, "but": {},
	"are": {}, "too": {}, "not": {}, "for": {}, "you": {}, "your": {},
	"was": {}, "has": {}, "had": {}, "its": {}, "they": {}, "them": {},
	"their": {}, "there": {}, "after": {}, "more": {}, "less": {},
	"when": {}, "where": {}, "which": {}, "then": {}, "than": {},
	"what": {}, "why": {}, "how": {}, "can": {}, "could": {},
	"would": {}, "should": {}, "may": {}, "might": {}, "did": {},
	"does": {}, "done": {}, "into": {}, "over": {}, "under": {},
	"onto": {}, "upon": {},
}

// bannedPhrases are generic or positive fillers that kept surfacing in
// negative reviews without describing an issue.
var bannedPhrases = map[string]struct{}{
	"good": {}, "great": {}, "nice": {}, "awesome": {}, "perfect": {},
	"amazing": {}, "product": {}, "quality": {},
}

// Phrase is one ranked complaint phrase with its corpus frequency.
type Phrase struct {
	Text      string
	Frequency int
}

// TopPhrases runs the frequency heuristic over the negative-review corpus:
// tokenize, drop stop words, merge unigram and bigram counts, drop generic
// fillers, and keep the most frequent phrases.
func TopPhrases(reviews []domain.Review) []Phrase {
	var negatives []string
	for _, r := range reviews {
		if r.Sentiment == domain.SentimentNegative && r.Text != "" {
			negatives = append(negatives, r.Text)
		}
	}
	if len(negatives) == 0 {
		return nil
	}

	blob := strings.ToLower(strings.Join(negatives, " "))

	var words []string
	for _, w := range wordExpr.FindAllString(blob, -1) {
		if _, stop := stopWords[w]; !stop {
			words = append(words, w)
		}
	}

	counts := map[string]int{}
	for _, w := range words {
		counts[w]++
	}
	for i := 0; i+1 < len(words); i++ {
		counts[words[i]+" "+words[i+1]]++
	}

	phrases := make([]Phrase, 0, len(counts))
	for phrase, freq := range counts {
		if _, banned := bannedPhrases[phrase]; banned {
			continue
		}
		phrases = append(phrases, Phrase{Text: phrase, Frequency: freq})
	}

	// Deterministic order: frequency descending, then lexicographic, so two
	// runs over the same corpus always yield the same top list.
	sort.Slice(phrases, func(i, j int) bool {
		if phrases[i].Frequency != phrases[j].Frequency {
			return phrases[i].Frequency > phrases[j].Frequency
		}
		return phrases[i].Text < phrases[j].Text
	})

	if len(phrases) > topPhraseLimit {
		phrases = phrases[:topPhraseLimit]
	}
	return phrases
}
