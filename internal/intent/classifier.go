// Package intent decides whether a message asks to book an interview.
package intent

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xiaot623/ragbook/internal/adapter/llm"
	"github.com/xiaot623/ragbook/internal/config"
	"github.com/xiaot623/ragbook/internal/domain"
)

// DefaultTimeout bounds the remote classification call.
const DefaultTimeout = 15 * time.Second

// Classifier labels messages as booking requests or knowledge queries.
type Classifier struct {
	client   llm.Client
	strategy string
	timeout  time.Duration
	log      logrus.FieldLogger
}

// NewClassifier creates a Classifier. strategy is config.ClassifierRemote or
// config.ClassifierKeywords; a nil client behaves like keywords.
func NewClassifier(client llm.Client, strategy string, timeout time.Duration, log logrus.FieldLogger) *Classifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Classifier{
		client:   client,
		strategy: strategy,
		timeout:  timeout,
		log:      log.WithField("component", "intent"),
	}
}

// Classify makes at most one remote attempt and falls back to keyword
// matching on any failure. It never fails.
func (c *Classifier) Classify(ctx context.Context, query string) domain.IntentResult {
	if c.client == nil || c.strategy == config.ClassifierKeywords {
		return KeywordClassify(query)
	}

	res, err := c.remote(ctx, query)
	if err != nil {
		c.log.WithError(err).Warn("intent classification failed, using keyword fallback")
		return KeywordClassify(query)
	}
	return res
}

type intentReply struct {
	IsBooking  *bool    `json:"is_booking"`
	Confidence *float64 `json:"confidence"`
	Reason     string   `json:"reason"`
}

func (c *Classifier) remote(ctx context.Context, query string) (domain.IntentResult, error) {
	text, err := llm.GenerateWithTimeout(ctx, c.client, c.timeout, &llm.GenerateRequest{
		Prompt:      buildPrompt(query),
		MaxTokens:   150,
		Temperature: 0.3,
	})
	if err != nil {
		return domain.IntentResult{}, err
	}
	return ParseReply(text)
}

// ParseReply validates a classifier reply. is_booking is required;
// confidence is clamped to [0, 1] and defaults to 0.5 when absent.
func ParseReply(text string) (domain.IntentResult, error) {
	var reply intentReply
	if err := llm.DecodeJSON(text, &reply); err != nil {
		return domain.IntentResult{}, err
	}
	if reply.IsBooking == nil {
		return domain.IntentResult{}, fmt.Errorf("%w: reply has no is_booking", domain.ErrRemoteUnavailable)
	}

	confidence := 0.5
	if reply.Confidence != nil && !math.IsNaN(*reply.Confidence) {
		confidence = math.Max(0, math.Min(1, *reply.Confidence))
	}
	return domain.IntentResult{
		IsBooking:  *reply.IsBooking,
		Confidence: confidence,
		Reason:     reply.Reason,
	}, nil
}

func buildPrompt(query string) string {
	return fmt.Sprintf(`Analyze if this query is about scheduling/booking an interview or appointment.

Query: %q

Respond with ONLY a JSON object:
{
  "is_booking": true/false,
  "confidence": 0.0-1.0,
  "reason": "brief explanation"
}

Examples of booking queries:
- "I want to schedule an interview"
- "Can I book a meeting for tomorrow at 2pm?"
- "Schedule interview for John at john@email.com"
- "Book me for 25th December 3pm"

Examples of NON-booking queries:
- "What is the interview process?"
- "Tell me about your company"
- "How do I prepare for interviews?"
`, query)
}
