// Package booking extracts and validates interview booking details.
package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xiaot623/ragbook/internal/adapter/llm"
	"github.com/xiaot623/ragbook/internal/config"
	"github.com/xiaot623/ragbook/internal/domain"
)

const (
	// DefaultTimeout bounds the remote extraction call.
	DefaultTimeout = 15 * time.Second
	// HistoryWindow is how many past messages the extractor reads.
	HistoryWindow = 10
)

// Extraction sources.
const (
	SourceRemote    = "remote"
	SourceHeuristic = "heuristic"
	SourceNone      = "none"
)

// Extractor fills a booking draft from a message and recent history.
type Extractor struct {
	client   llm.Client
	strategy string
	timeout  time.Duration
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewExtractor creates an Extractor. strategy is one of config.ExtractorRemote,
// config.ExtractorHeuristic or config.ExtractorRemoteOnly.
func NewExtractor(client llm.Client, strategy string, timeout time.Duration, log logrus.FieldLogger) *Extractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Extractor{
		client:   client,
		strategy: strategy,
		timeout:  timeout,
		log:      log.WithField("component", "extractor"),
		now:      time.Now,
	}
}

// WithClock overrides the clock used to resolve relative dates.
func (e *Extractor) WithClock(now func() time.Time) *Extractor {
	e.now = now
	return e
}

// Extract never fails. Complete is always recomputed from Data.
func (e *Extractor) Extract(ctx context.Context, query string, history []domain.TurnMessage) domain.Extraction {
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}
	history = OpenDraft(history)
	now := e.now()

	if e.client == nil || e.strategy == config.ExtractorHeuristic {
		return result(Heuristic(query, history, now), SourceHeuristic)
	}

	draft, err := e.remote(ctx, query, history, now)
	if err == nil {
		return result(draft, SourceRemote)
	}

	if e.strategy == config.ExtractorRemoteOnly {
		e.log.WithError(err).Warn("booking extraction failed, treating every field as missing")
		return result(domain.BookingDraft{}, SourceNone)
	}
	e.log.WithError(err).Warn("booking extraction failed, using heuristic fallback")
	return result(Heuristic(query, history, now), SourceHeuristic)
}

// OpenDraft returns the part of history that belongs to the booking still
// being filled: everything after the last assistant message that was not a
// re-prompt. A confirmation or an ordinary answer closes the previous draft.
func OpenDraft(history []domain.TurnMessage) []domain.TurnMessage {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleAssistant && !IsRePrompt(history[i].Text) {
			return history[i+1:]
		}
	}
	return history
}

func result(d domain.BookingDraft, source string) domain.Extraction {
	missing := d.Missing()
	return domain.Extraction{
		Complete: len(missing) == 0,
		Data:     d,
		Missing:  missing,
		Source:   source,
	}
}

// extractionReply mirrors the JSON the model is asked for. The model's own
// "complete" and "missing_fields" are read but never trusted.
type extractionReply struct {
	Complete      *bool          `json:"complete"`
	Data          map[string]any `json:"data"`
	MissingFields []string       `json:"missing_fields"`
}

func (e *Extractor) remote(ctx context.Context, query string, history []domain.TurnMessage, now time.Time) (domain.BookingDraft, error) {
	text, err := llm.GenerateWithTimeout(ctx, e.client, e.timeout, &llm.GenerateRequest{
		Prompt:      buildPrompt(query, history, now),
		MaxTokens:   300,
		Temperature: 0.3,
	})
	if err != nil {
		return domain.BookingDraft{}, err
	}
	return ParseReply(text, now)
}

// ParseReply validates an extraction reply and normalises each field.
// Values that fail validation are dropped, so they count as missing.
func ParseReply(text string, now time.Time) (domain.BookingDraft, error) {
	var reply extractionReply
	if err := llm.DecodeJSON(text, &reply); err != nil {
		return domain.BookingDraft{}, err
	}
	if reply.Data == nil {
		return domain.BookingDraft{}, fmt.Errorf("%w: reply has no data object", domain.ErrRemoteUnavailable)
	}

	var draft domain.BookingDraft
	for _, field := range domain.BookingFields {
		raw, ok := reply.Data[field].(string)
		if !ok || isNullish(raw) {
			continue
		}
		if v, ok := NormalizeField(field, raw, now); ok {
			draft.Set(field, v)
		}
	}
	return draft, nil
}

func isNullish(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "null", "none", "n/a", "unknown":
		return true
	}
	return false
}

func buildPrompt(query string, history []domain.TurnMessage, now time.Time) string {
	var h strings.Builder
	for _, m := range history {
		fmt.Fprintf(&h, "%s: %s\n", m.Role, m.Text)
	}
	historyText := strings.TrimSpace(h.String())
	if historyText == "" {
		historyText = "No previous conversation"
	}

	return fmt.Sprintf(`Extract booking information from the conversation. Look for:
- name: Full name of the person
- email: Email address
- date: Date in YYYY-MM-DD format
- time: Time in HH:MM format (24-hour)

Today's date is %s.

CONVERSATION HISTORY:
%s

CURRENT MESSAGE:
%s

Respond with ONLY a JSON object:
{
  "complete": true/false,
  "data": {
    "name": "extracted name or null",
    "email": "extracted email or null",
    "date": "YYYY-MM-DD or null",
    "time": "HH:MM or null"
  },
  "missing_fields": ["list", "of", "missing", "fields"]
}

Important:
- Mark complete=true ONLY if ALL four fields are present
- Convert dates to YYYY-MM-DD (e.g., "tomorrow" → calculate date, "25th Dec" → the next December 25)
- Convert times to 24-hour HH:MM (e.g., "2pm" → "14:00", "3:30pm" → "15:30")
- Be lenient with name formats
- Validate email format
`, now.Format(DateLayout), historyText, query)
}
