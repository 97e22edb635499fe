package intent

import (
	"strings"
	"unicode"

	"github.com/xiaot623/ragbook/internal/domain"
)

// Keywords is the fallback vocabulary of stems. A message with a word that
// starts with any of them is treated as a booking request, so "meeting" and
// "booked" match while "facebook" does not.
var Keywords = []string{"interview", "schedul", "book", "meet", "call", "talk", "hire", "hiring"}

const (
	keywordMatchConfidence = 0.9
	keywordMissConfidence  = 0.1
)

// KeywordClassify is the deterministic fallback classifier.
func KeywordClassify(query string) domain.IntentResult {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		for _, k := range Keywords {
			if strings.HasPrefix(w, k) {
				return domain.IntentResult{
					IsBooking:  true,
					Confidence: keywordMatchConfidence,
					Reason:     "keyword match: " + w,
				}
			}
		}
	}
	return domain.IntentResult{
		IsBooking:  false,
		Confidence: keywordMissConfidence,
		Reason:     "no booking keywords",
	}
}
