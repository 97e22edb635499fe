package booking

import (
	"regexp"
	"strings"
	"time"

	"github.com/xiaot623/ragbook/internal/domain"
)

var (
	emailToken = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	nameToken  = regexp.MustCompile(`(?i)\b(?:(?:my name is|i am|i'm)\s+|name\s*:\s*)([A-Za-z][A-Za-z'\-]*(?:[ \t]+[A-Za-z][A-Za-z'\-]*){0,3})`)

	isoDateToken     = regexp.MustCompile(`\b\d{4}[-/]\d{1,2}[-/]\d{1,2}\b`)
	slashDateToken   = regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{4}\b`)
	monthDayToken    = regexp.MustCompile(`(?i)\b(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(?:st|nd|rd|th)?(?:,?\s+\d{4})?\b`)
	dayMonthToken    = regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)?\s+(?:of\s+)?(?:jan|feb|mar|apr|may|jun|jul|aug|sep|sept|oct|nov|dec)[a-z]*\.?(?:,?\s+\d{4})?\b`)
	relativeDayToken = regexp.MustCompile(`(?i)\b(?:today|tomorrow)\b`)

	clockToken    = regexp.MustCompile(`(?i)\b\d{1,2}:\d{2}(?:\s*[ap]\.?m\.?)?`)
	meridiemToken = regexp.MustCompile(`(?i)\b\d{1,2}\s*[ap]\.?m\b\.?`)
	noonToken     = regexp.MustCompile(`(?i)\b(?:noon|midnight)\b`)
)

// nameStopWords end a captured name; a name starting with one is discarded.
var nameStopWords = map[string]bool{
	"and": true, "at": true, "on": true, "my": true, "email": true, "e-mail": true,
	"today": true, "tomorrow": true, "from": true, "with": true, "for": true, "to": true,
	"available": true, "free": true, "looking": true, "interested": true, "going": true,
	"not": true, "a": true, "an": true, "the": true, "here": true, "ready": true,
	"trying": true, "writing": true, "calling": true, "wondering": true, "applying": true,
	"happy": true, "fine": true, "good": true, "sorry": true, "just": true, "also": true,
	"so": true, "very": true, "really": true, "in": true, "booking": true, "scheduling": true,
}

var dateTokens = []*regexp.Regexp{isoDateToken, slashDateToken, monthDayToken, dayMonthToken, relativeDayToken}

var timeTokens = []*regexp.Regexp{clockToken, meridiemToken, noonToken}

// Heuristic extracts booking fields with regular expressions. It reads the
// user turns of history first and the current query last, so later values
// win. It never fails; fields it cannot find stay empty.
func Heuristic(query string, history []domain.TurnMessage, now time.Time) domain.BookingDraft {
	var draft domain.BookingDraft
	for _, msg := range history {
		if msg.Role == domain.RoleUser {
			scanInto(&draft, msg.Text, now)
		}
	}
	scanInto(&draft, query, now)
	return draft
}

// FieldsIn reports which booking fields text mentions on its own.
func FieldsIn(text string, now time.Time) []string {
	var d domain.BookingDraft
	scanInto(&d, text, now)

	var found []string
	for _, f := range domain.BookingFields {
		if d.Get(f) != "" {
			found = append(found, f)
		}
	}
	return found
}

func scanInto(d *domain.BookingDraft, text string, now time.Time) {
	if v := findEmail(text); v != "" {
		d.Email = v
	}
	if v := findName(text); v != "" {
		d.Name = v
	}
	if v := findDate(text, now); v != "" {
		d.Date = v
	}
	if v := findTime(text); v != "" {
		d.Time = v
	}
}

func findEmail(text string) string {
	v, _ := NormalizeEmail(emailToken.FindString(text))
	return v
}

func findName(text string) string {
	m := nameToken.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	var words []string
	for _, w := range strings.Fields(m[1]) {
		if nameStopWords[strings.ToLower(w)] {
			break
		}
		words = append(words, w)
	}
	v, _ := NormalizeName(strings.Join(words, " "))
	return v
}

func findDate(text string, now time.Time) string {
	for _, re := range dateTokens {
		for _, tok := range re.FindAllString(text, -1) {
			if v, ok := NormalizeDate(tok, now); ok {
				return v
			}
		}
	}
	return ""
}

func findTime(text string) string {
	for _, re := range timeTokens {
		for _, tok := range re.FindAllString(text, -1) {
			if v, ok := NormalizeTime(tok); ok {
				return v
			}
		}
	}
	return ""
}
