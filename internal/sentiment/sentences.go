package sentiment

import (
	"regexp"
	"strings"
)

var boundaryExpr = regexp.MustCompile(`[.!?]+`)

// SplitSentences segments text on sentence-ending punctuation, preserving
// order and dropping empty spans.
func SplitSentences(text string) []string {
	parts := boundaryExpr.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}
