package answer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/ragbook/internal/adapter/llm"
	"github.com/xiaot623/ragbook/internal/domain"
	"github.com/xiaot623/ragbook/internal/logger"
)

type fakeRetriever struct {
	hits  []domain.RetrievalHit
	err   error
	topK  int
	calls int
}

func (f *fakeRetriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievalHit, error) {
	f.calls++
	f.topK = topK
	return f.hits, f.err
}

type fakeHistory struct {
	turns []domain.TurnMessage
	err   error
	n     int
}

func (f *fakeHistory) Recent(ctx context.Context, sessionID string, n int) ([]domain.TurnMessage, error) {
	f.n = n
	return f.turns, f.err
}

type recordingClient struct {
	reply   string
	err     error
	prompts []string
	block   bool
}

func (r *recordingClient) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	r.prompts = append(r.prompts, req.Prompt)
	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}
	return &llm.GenerateResponse{Text: r.reply}, nil
}

func hits(sources ...string) []domain.RetrievalHit {
	out := make([]domain.RetrievalHit, len(sources))
	for i, s := range sources {
		out[i] = domain.RetrievalHit{ID: s + string(rune('0'+i)), Text: "passage " + s, Source: s}
	}
	return out
}

func TestComposeDeduplicatesSources(t *testing.T) {
	ret := &fakeRetriever{hits: hits("a", "a", "b")}
	client := &recordingClient{reply: "According to [Source: a] ..."}
	c := NewComposer(ret, &fakeHistory{}, client, Options{}, logger.Discard())

	ans, err := c.Compose(context.Background(), "question?", "s1")
	require.NoError(t, err)
	assert.Equal(t, "According to [Source: a] ...", ans.Text)

	var names []string
	for _, s := range ans.Sources {
		names = append(names, s.Source)
	}
	assert.Equal(t, []string{"a", "b"}, names)
	assert.Equal(t, DefaultTopK, ret.topK)
}

func TestComposeEmptyCorpusSkipsGeneration(t *testing.T) {
	client := &recordingClient{reply: "should not be used"}
	c := NewComposer(&fakeRetriever{}, &fakeHistory{}, client, Options{}, logger.Discard())

	ans, err := c.Compose(context.Background(), "What is your return policy?", "s1")
	require.NoError(t, err)
	assert.Equal(t, InsufficientContext, ans.Text)
	assert.Contains(t, ans.Text, "enough context")
	assert.Empty(t, ans.Sources)
	assert.NotNil(t, ans.Sources)
	assert.Empty(t, client.prompts)
}

func TestComposeTimeoutReturnsApology(t *testing.T) {
	client := &recordingClient{block: true}
	c := NewComposer(&fakeRetriever{hits: hits("a")}, &fakeHistory{}, client, Options{Timeout: 20 * time.Millisecond}, logger.Discard())

	ans, err := c.Compose(context.Background(), "q", "s1")
	require.NoError(t, err)
	assert.Equal(t, ApologyTimeout, ans.Text)
	assert.Len(t, ans.Sources, 1)
}

func TestComposeTimeoutWithStuckClient(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	stuck := llm.ClientFunc(func(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
		<-release
		return &llm.GenerateResponse{Text: "too late"}, nil
	})
	c := NewComposer(&fakeRetriever{hits: hits("a")}, &fakeHistory{}, stuck, Options{Timeout: 20 * time.Millisecond}, logger.Discard())

	ans, err := c.Compose(context.Background(), "q", "s1")
	require.NoError(t, err)
	assert.Equal(t, ApologyTimeout, ans.Text)
}

func TestComposeGenerationFailureReturnsApology(t *testing.T) {
	client := &recordingClient{err: errors.New("503")}
	c := NewComposer(&fakeRetriever{hits: hits("a")}, &fakeHistory{}, client, Options{}, logger.Discard())

	ans, err := c.Compose(context.Background(), "q", "s1")
	require.NoError(t, err)
	assert.Equal(t, ApologyUnavailable, ans.Text)
}

func TestComposeDegradesOnRetrievalAndHistoryFailure(t *testing.T) {
	client := &recordingClient{reply: "x"}
	c := NewComposer(&fakeRetriever{err: errors.New("embed failed")}, &fakeHistory{err: errors.New("redis down")}, client, Options{}, logger.Discard())

	ans, err := c.Compose(context.Background(), "q", "s1")
	require.NoError(t, err)
	assert.Equal(t, InsufficientContext, ans.Text)
}

func TestComposeUsesLastSixHistoryEntries(t *testing.T) {
	var turns []domain.TurnMessage
	for i := 0; i < 8; i++ {
		turns = append(turns, domain.TurnMessage{Role: domain.RoleUser, Text: "turn-" + string(rune('a'+i))})
	}
	hist := &fakeHistory{turns: turns}
	client := &recordingClient{reply: "ok"}
	c := NewComposer(&fakeRetriever{hits: hits("a")}, hist, client, Options{}, logger.Discard())

	_, err := c.Compose(context.Background(), "q", "s1")
	require.NoError(t, err)
	assert.Equal(t, DefaultHistory, hist.n)

	require.Len(t, client.prompts, 1)
	prompt := client.prompts[0]
	assert.NotContains(t, prompt, "turn-a")
	assert.NotContains(t, prompt, "turn-b")
	assert.Contains(t, prompt, "turn-c")
	assert.Contains(t, prompt, "turn-h")
}

func TestBuildPromptLabelsContext(t *testing.T) {
	prompt := BuildPrompt("Where is the office?", []domain.RetrievalHit{
		{Text: "Berlin office", Source: "about.md"},
		{Text: "unlabelled passage"},
		{Text: "from metadata", Metadata: map[string]any{"source": "meta.txt"}},
	}, nil)

	assert.Contains(t, prompt, "[Source: about.md]\nBerlin office")
	assert.Contains(t, prompt, "[Source: Context 2]\nunlabelled passage")
	assert.Contains(t, prompt, "[Source: meta.txt]")
	assert.Contains(t, prompt, "No previous conversation.")
	assert.Contains(t, prompt, "QUESTION:\nWhere is the office?")
	assert.Contains(t, prompt, "context is insufficient")
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "short", Preview("short", 150))
	long := strings.Repeat("é", 200)
	p := Preview(long, 150)
	assert.True(t, strings.HasSuffix(p, "..."))
	assert.Equal(t, 153, len([]rune(p)))
}
