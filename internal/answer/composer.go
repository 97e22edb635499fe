// Package answer composes grounded answers from retrieved passages.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/xiaot623/ragbook/internal/adapter/llm"
	"github.com/xiaot623/ragbook/internal/domain"
)

// Fixed replies used instead of a generated answer.
const (
	InsufficientContext = "I don't have enough context to answer that: none of the available documents contain relevant information. Please try rephrasing or upload a document that covers it."
	ApologyTimeout      = "I'm sorry, generating an answer took too long. Please try again in a moment."
	ApologyUnavailable  = "I'm sorry, I couldn't generate an answer right now. Please try again later."
)

// Defaults for Options.
const (
	DefaultTopK         = 4
	DefaultHistory      = 6
	DefaultMaxTokens    = 500
	DefaultTimeout      = 30 * time.Second
	DefaultPreviewChars = 150
	DefaultTemperature  = 0.7
)

// Retriever finds passages relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievalHit, error)
}

// HistoryReader reads recent conversation turns.
type HistoryReader interface {
	Recent(ctx context.Context, sessionID string, n int) ([]domain.TurnMessage, error)
}

// Options tunes a Composer. Zero values take the defaults.
type Options struct {
	TopK      int
	History   int
	MaxTokens int
	Timeout   time.Duration
}

// Composer builds the grounded prompt and calls the generation adapter.
type Composer struct {
	retriever Retriever
	history   HistoryReader
	client    llm.Client
	opts      Options
	log       logrus.FieldLogger
}

// NewComposer creates a Composer.
func NewComposer(retriever Retriever, history HistoryReader, client llm.Client, opts Options, log logrus.FieldLogger) *Composer {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if opts.History <= 0 {
		opts.History = DefaultHistory
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = DefaultMaxTokens
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Composer{
		retriever: retriever,
		history:   history,
		client:    client,
		opts:      opts,
		log:       log.WithField("component", "composer"),
	}
}

// Compose answers query for sessionID, reading its recent history first.
func (c *Composer) Compose(ctx context.Context, query, sessionID string) (*domain.Answer, error) {
	history, err := c.history.Recent(ctx, sessionID, c.opts.History)
	if err != nil {
		c.log.WithError(err).WithField("session_id", sessionID).Warn("failed to read history, answering without it")
		history = nil
	}
	return c.ComposeWithHistory(ctx, query, history)
}

// ComposeWithHistory answers query using the given history, of which only the
// last Options.History entries are used. It fails only when ctx is done.
func (c *Composer) ComposeWithHistory(ctx context.Context, query string, history []domain.TurnMessage) (*domain.Answer, error) {
	if len(history) > c.opts.History {
		history = history[len(history)-c.opts.History:]
	}

	hits, err := c.retriever.Retrieve(ctx, query, c.opts.TopK)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.WithError(err).Warn("retrieval failed, answering without context")
		hits = nil
	}

	if len(hits) == 0 {
		return &domain.Answer{Text: InsufficientContext, Sources: []domain.Source{}}, nil
	}

	text, err := llm.GenerateWithTimeout(ctx, c.client, c.opts.Timeout, &llm.GenerateRequest{
		Prompt:      BuildPrompt(query, hits, history),
		MaxTokens:   c.opts.MaxTokens,
		Temperature: DefaultTemperature,
	})
	switch {
	case errors.Is(err, llm.ErrTimeout):
		c.log.WithField("timeout", c.opts.Timeout).Warn("generation timed out")
		text = ApologyTimeout
	case err != nil:
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.log.WithError(err).Warn("generation failed")
		text = ApologyUnavailable
	case strings.TrimSpace(text) == "":
		c.log.Warn("generation returned empty text")
		text = ApologyUnavailable
	}

	return &domain.Answer{Text: text, Sources: Sources(hits, DefaultPreviewChars)}, nil
}

// Label names a hit in the prompt: its source, or "Context n" (1-based) when it has none.
func Label(hit domain.RetrievalHit, n int) string {
	if s := sourceOf(hit); s != "" {
		return s
	}
	return fmt.Sprintf("Context %d", n)
}

func sourceOf(hit domain.RetrievalHit) string {
	if hit.Source != "" {
		return hit.Source
	}
	if s, ok := hit.Metadata["source"].(string); ok {
		return s
	}
	return ""
}

// BuildPrompt assembles the context, history and question into one prompt.
func BuildPrompt(query string, hits []domain.RetrievalHit, history []domain.TurnMessage) string {
	blocks := make([]string, 0, len(hits))
	for i, h := range hits {
		blocks = append(blocks, fmt.Sprintf("[Source: %s]\n%s", Label(h, i+1), strings.TrimSpace(h.Text)))
	}
	contextText := strings.Join(blocks, "\n\n")
	if contextText == "" {
		contextText = "No relevant context found."
	}

	lines := make([]string, 0, len(history))
	for _, m := range history {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Text))
	}
	historyText := strings.Join(lines, "\n")
	if historyText == "" {
		historyText = "No previous conversation."
	}

	return fmt.Sprintf(`You are a helpful AI assistant. Use the provided context and conversation history to answer the user's question.

CONTEXT:
%s

CONVERSATION HISTORY:
%s

QUESTION:
%s

Instructions:
- Answer concisely and accurately
- Cite the sources you used by their label (e.g., "According to [Source: handbook.pdf]...")
- If the context doesn't contain the information needed, say explicitly that the context is insufficient
- Maintain conversation continuity using the history`, contextText, historyText, query)
}

// Sources lists each distinct source once, in first-seen order, with a
// preview of its first passage. Hits without a source are skipped.
func Sources(hits []domain.RetrievalHit, previewChars int) []domain.Source {
	seen := make(map[string]bool, len(hits))
	sources := []domain.Source{}
	for _, h := range hits {
		s := sourceOf(h)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		sources = append(sources, domain.Source{Source: s, Preview: Preview(h.Text, previewChars)})
	}
	return sources
}

// Preview returns the first n runes of text, followed by "..." when truncated.
func Preview(text string, n int) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if len(r) <= n {
		return text
	}
	return string(r[:n]) + "..."
}
