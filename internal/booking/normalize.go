package booking

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/xiaot623/ragbook/internal/domain"
)

// Canonical layouts for booking fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

const maxNameLen = 100

var (
	emailPattern     = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	isoDatePattern   = regexp.MustCompile(`^(\d{4})[-/](\d{1,2})[-/](\d{1,2})$`)
	slashDatePattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
	clockPattern     = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?(?::\d{2})?\s*([ap])?\.?\s*m?\.?$`)
)

var monthLayouts = []string{
	"January 2 2006", "Jan 2 2006",
	"2 January 2006", "2 Jan 2006",
	"January 2", "Jan 2",
	"2 January", "2 Jan",
}

// NormalizeEmail trims s and checks address syntax.
func NormalizeEmail(s string) (string, bool) {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "<>.,;"))
	if !emailPattern.MatchString(s) {
		return "", false
	}
	return s, true
}

// NormalizeName collapses whitespace and strips surrounding punctuation.
func NormalizeName(s string) (string, bool) {
	s = strings.Join(strings.Fields(s), " ")
	s = strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) && r != '\'' && r != '-'
	})
	s = strings.TrimSpace(s)
	if s == "" || len([]rune(s)) > maxNameLen {
		return "", false
	}
	if !strings.ContainsFunc(s, unicode.IsLetter) || strings.Contains(s, "@") {
		return "", false
	}
	return s, true
}

// NormalizeDate converts an ISO, slash, month-name or relative date into
// YYYY-MM-DD. Relative words resolve against now.
func NormalizeDate(s string, now time.Time) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimRight(s, ".,;")
	switch s {
	case "":
		return "", false
	case "today":
		return now.Format(DateLayout), true
	case "tomorrow":
		return now.AddDate(0, 0, 1).Format(DateLayout), true
	}

	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		return civilDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}
	if m := slashDatePattern.FindStringSubmatch(s); m != nil {
		first, second, year := atoi(m[1]), atoi(m[2]), atoi(m[3])
		// Month first unless that is impossible.
		if first > 12 {
			return civilDate(year, second, first)
		}
		return civilDate(year, first, second)
	}
	return parseMonthName(s, now)
}

var ordinalSuffix = regexp.MustCompile(`(\d+)(st|nd|rd|th)\b`)

func parseMonthName(s string, now time.Time) (string, bool) {
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	s = strings.NewReplacer(",", " ", ".", " ", " of ", " ").Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return "", false
	}
	// time.Parse month names are case-sensitive title case.
	s = titleWords(s)

	for _, layout := range monthLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if !strings.Contains(layout, "2006") {
			t = nextOccurrence(t.Month(), t.Day(), now)
		}
		return t.Format(DateLayout), true
	}
	return "", false
}

// nextOccurrence returns month/day in the current year, or next year when it has already passed.
func nextOccurrence(month time.Month, day int, now time.Time) time.Time {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(now.Year(), month, day, 0, 0, 0, 0, time.UTC)
	if t.Before(today) {
		t = t.AddDate(1, 0, 0)
	}
	return t
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func civilDate(year, month, day int) (string, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	// time.Date normalises overflow such as Feb 30; reject it.
	if t.Day() != day || int(t.Month()) != month {
		return "", false
	}
	return t.Format(DateLayout), true
}

// NormalizeTime converts "14:00", "9:30", "2pm", "3:30 p.m.", "noon" or
// "midnight" into 24-hour HH:MM.
func NormalizeTime(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return "", false
	case "noon", "midday":
		return "12:00", true
	case "midnight":
		return "00:00", true
	}

	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	hour, minute := atoi(m[1]), 0
	if m[2] != "" {
		minute = atoi(m[2])
	}
	if minute > 59 {
		return "", false
	}

	switch m[3] {
	case "a", "p":
		if hour < 1 || hour > 12 {
			return "", false
		}
		if hour == 12 {
			hour = 0
		}
		if m[3] == "p" {
			hour += 12
		}
	default:
		// Bare numbers like "14" are not treated as times.
		if m[2] == "" || hour > 23 {
			return "", false
		}
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// NormalizeField normalises value for the named field.
func NormalizeField(field, value string, now time.Time) (string, bool) {
	switch field {
	case domain.FieldName:
		return NormalizeName(value)
	case domain.FieldEmail:
		return NormalizeEmail(value)
	case domain.FieldDate:
		return NormalizeDate(value, now)
	case domain.FieldTime:
		return NormalizeTime(value)
	}
	return "", false
}

var fieldFormats = map[string]string{
	domain.FieldName:  "must be a non-empty name",
	domain.FieldEmail: "must be a valid email address",
	domain.FieldDate:  "must be a date in YYYY-MM-DD format",
	domain.FieldTime:  "must be a time in 24-hour HH:MM format",
}

// NormalizeDraft normalises every field of d. The returned error joins a
// ValidationError for each missing or malformed field.
func NormalizeDraft(d domain.BookingDraft, now time.Time) (domain.BookingDraft, error) {
	var out domain.BookingDraft
	var errs []error
	for _, field := range domain.BookingFields {
		value, ok := NormalizeField(field, d.Get(field), now)
		if !ok {
			errs = append(errs, domain.Invalid(field, fieldFormats[field]))
			continue
		}
		out.Set(field, value)
	}
	return out, errors.Join(errs...)
}

// ValidateDraft checks that every field of d is present and already canonical.
func ValidateDraft(d domain.BookingDraft) error {
	var errs []error
	if v, ok := NormalizeName(d.Name); !ok || v != d.Name {
		errs = append(errs, domain.Invalid(domain.FieldName, fieldFormats[domain.FieldName]))
	}
	if !emailPattern.MatchString(d.Email) {
		errs = append(errs, domain.Invalid(domain.FieldEmail, fieldFormats[domain.FieldEmail]))
	}
	if _, err := time.Parse(DateLayout, d.Date); err != nil {
		errs = append(errs, domain.Invalid(domain.FieldDate, fieldFormats[domain.FieldDate]))
	}
	if _, err := time.Parse(TimeLayout, d.Time); err != nil || len(d.Time) != len(TimeLayout) {
		errs = append(errs, domain.Invalid(domain.FieldTime, fieldFormats[domain.FieldTime]))
	}
	return errors.Join(errs...)
}
