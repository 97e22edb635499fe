package service

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/ragbook/internal/adapter/llm"
	"github.com/xiaot623/ragbook/internal/answer"
	"github.com/xiaot623/ragbook/internal/booking"
	"github.com/xiaot623/ragbook/internal/config"
	"github.com/xiaot623/ragbook/internal/domain"
	"github.com/xiaot623/ragbook/internal/intent"
	"github.com/xiaot623/ragbook/internal/logger"
	"github.com/xiaot623/ragbook/internal/memory"
	"github.com/xiaot623/ragbook/internal/policy"
	"github.com/xiaot623/ragbook/internal/repository"
	"github.com/xiaot623/ragbook/internal/retrieval"
	"github.com/xiaot623/ragbook/internal/testutil"
)

var fixedNow = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

const johnReply = `{"complete": true, "data": {"name": "John Doe", "email": "john@example.com", "date": "2025-12-25", "time": "14:00"}, "missing_fields": []}`

const emptyReply = `{"complete": false, "data": {"name": null, "email": null, "date": null, "time": null}, "missing_fields": ["name", "email", "date", "time"]}`

// extractionClient answers extraction prompts with John's details once his
// email appears in the current message.
func extractionClient() llm.Client {
	return llm.ClientFunc(func(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
		current := req.Prompt[strings.Index(req.Prompt, "CURRENT MESSAGE:"):]
		if strings.Contains(current, "john@example.com") {
			return &llm.GenerateResponse{Text: johnReply}, nil
		}
		return &llm.GenerateResponse{Text: emptyReply}, nil
	})
}

type fixture struct {
	svc    *Service
	store  *repository.SQLiteStore
	memory memory.Store
	index  *retrieval.MemoryIndex
}

func newFixture(t *testing.T, generator llm.Client, opts answer.Options) *fixture {
	t.Helper()
	log := logger.Discard()
	store := testutil.NewTestSQLiteStore(t)
	mem := memory.NewSQLStore(store)
	index := retrieval.NewMemoryIndex()
	embedder := retrieval.NewHashEmbedder(64)

	engine, err := policy.Load(context.Background(), "")
	require.NoError(t, err)

	if generator == nil {
		generator = llm.NewMockClient()
	}

	svc := New(Deps{
		Store:      store,
		Memory:     mem,
		Classifier: intent.NewClassifier(nil, config.ClassifierKeywords, 0, log),
		Extractor:  booking.NewExtractor(extractionClient(), config.ExtractorRemote, 0, log).WithClock(func() time.Time { return fixedNow }),
		Composer:   answer.NewComposer(retrieval.NewRetriever(embedder, index), mem, generator, opts, log),
		Policy:     engine,
		Ingestor:   retrieval.NewIngestor(embedder, index, store, log),
		Logger:     log,
	}).WithClock(func() time.Time { return fixedNow })

	return &fixture{svc: svc, store: store, memory: mem, index: index}
}

func TestAskBookingIntentRepromptsForAllFields(t *testing.T) {
	f := newFixture(t, nil, answer.Options{})
	ctx := context.Background()

	resp, err := f.svc.Ask(ctx, domain.AskRequest{SessionID: "s1", Query: "I want to schedule an interview"})
	require.NoError(t, err)

	assert.True(t, resp.BookingDetected)
	assert.Empty(t, resp.BookingID)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, "s1", resp.SessionID)
	for _, field := range domain.BookingFields {
		assert.Contains(t, resp.Answer, field)
	}

	history, err := f.memory.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.RoleUser, history[0].Role)
	assert.Equal(t, resp.Answer, history[1].Text)
}

func TestAskCompletesPendingBooking(t *testing.T) {
	f := newFixture(t, nil, answer.Options{})
	ctx := context.Background()

	_, err := f.svc.Ask(ctx, domain.AskRequest{SessionID: "s1", Query: "I want to schedule an interview"})
	require.NoError(t, err)

	resp, err := f.svc.Ask(ctx, domain.AskRequest{SessionID: "s1", Query: "John Doe, john@example.com, 2025-12-25, 14:00"})
	require.NoError(t, err)

	assert.True(t, resp.BookingDetected)
	require.NotEmpty(t, resp.BookingID)
	require.NotNil(t, resp.BookingData)
	assert.Equal(t, domain.BookingDraft{Name: "John Doe", Email: "john@example.com", Date: "2025-12-25", Time: "14:00"}, *resp.BookingData)
	assert.Contains(t, resp.Answer, "John Doe")

	stored, err := f.svc.GetBooking(ctx, resp.BookingID)
	require.NoError(t, err)
	assert.Equal(t, "s1", stored.SessionID)
	assert.Equal(t, "2025-12-25", stored.Date)

	history, err := f.memory.Recent(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestAskAfterConfirmationDoesNotRebook(t *testing.T) {
	f := newFixture(t, nil, answer.Options{})
	f.svc.extractor = booking.NewExtractor(nil, config.ExtractorHeuristic, 0, logger.Discard()).
		WithClock(func() time.Time { return fixedNow })
	ctx := context.Background()

	first, err := f.svc.Ask(ctx, domain.AskRequest{SessionID: "s9", Query: "Book an interview. My name is Ann Lee, ann@corp.com, 2026-12-01 at 10:00"})
	require.NoError(t, err)
	require.NotEmpty(t, first.BookingID)

	second, err := f.svc.Ask(ctx, domain.AskRequest{SessionID: "s9", Query: "Can I call you to ask a question?"})
	require.NoError(t, err)
	assert.True(t, second.BookingDetected)
	assert.Empty(t, second.BookingID)
	assert.True(t, booking.IsRePrompt(second.Answer))

	listed, err := f.svc.ListBookings(ctx, "s9", 10)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestAskWithoutPendingBookingAnswers(t *testing.T) {
	f := newFixture(t, nil, answer.Options{})

	resp, err := f.svc.Ask(context.Background(), domain.AskRequest{Query: "What is your return policy?"})
	require.NoError(t, err)

	assert.False(t, resp.BookingDetected)
	assert.Equal(t, answer.InsufficientContext, resp.Answer)
	assert.NotNil(t, resp.Sources)
	assert.Empty(t, resp.Sources)
	assert.Equal(t, domain.AnonymousSessionID, resp.SessionID)
}

func TestAskPolicyRejectionReprompts(t *testing.T) {
	f := newFixture(t, nil, answer.Options{})
	f.svc.extractor = fixedExtractor{draft: domain.BookingDraft{
		Name: "Jane Roe", Email: "jane@mailinator.com", Date: "2026-10-20", Time: "10:00",
	}}

	resp, err := f.svc.Ask(context.Background(), domain.AskRequest{SessionID: "s2", Query: "book me an interview"})
	require.NoError(t, err)

	assert.True(t, resp.BookingDetected)
	assert.Empty(t, resp.BookingID)
	assert.True(t, booking.IsRePrompt(resp.Answer))
	assert.Contains(t, resp.Answer, "email")

	bookings, err := f.svc.ListBookings(context.Background(), "", 0)
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestAskGenerationTimeoutApologises(t *testing.T) {
	slow := llm.ClientFunc(func(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	f := newFixture(t, slow, answer.Options{Timeout: 20 * time.Millisecond})
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, "faq.txt", []byte("Returns are accepted within 30 days of purchase."), domain.ChunkStrategyFixed)
	require.NoError(t, err)

	resp, err := f.svc.Ask(ctx, domain.AskRequest{SessionID: "s3", Query: "What is your return policy?"})
	require.NoError(t, err)

	assert.Equal(t, answer.ApologyTimeout, resp.Answer)
	require.NotEmpty(t, resp.Sources)
	assert.Equal(t, "faq.txt", resp.Sources[0].Source)
}

type countingClassifier struct{ calls atomic.Int32 }

func (c *countingClassifier) Classify(ctx context.Context, query string) domain.IntentResult {
	c.calls.Add(1)
	return domain.IntentResult{}
}

type fixedExtractor struct{ draft domain.BookingDraft }

func (f fixedExtractor) Extract(ctx context.Context, query string, history []domain.TurnMessage) domain.Extraction {
	missing := f.draft.Missing()
	return domain.Extraction{Complete: len(missing) == 0, Data: f.draft, Missing: missing}
}

func TestAskRejectsEmptyQuery(t *testing.T) {
	f := newFixture(t, nil, answer.Options{})
	classifier := &countingClassifier{}
	f.svc.classifier = classifier

	_, err := f.svc.Ask(context.Background(), domain.AskRequest{SessionID: "s4", Query: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, classifier.calls.Load())

	history, err := f.memory.Recent(context.Background(), "s4", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestScheduleNormalizesAndStores(t *testing.T) {
	f := newFixture(t, nil, answer.Options{})

	resp, err := f.svc.Schedule(context.Background(), domain.ScheduleRequest{
		Name: "  ada lovelace ", Email: "Ada@Example.com", Date: "tomorrow", Time: "2pm",
	})
	require.NoError(t, err)

	assert.True(t, resp.Success)
	require.NotNil(t, resp.Booking)
	assert.Equal(t, "ada@example.com", resp.Booking.Email)
	assert.Equal(t, "2026-10-17", resp.Booking.Date)
	assert.Equal(t, "14:00", resp.Booking.Time)
	assert.Equal(t, domain.AnonymousSessionID, resp.Booking.SessionID)
	assert.Equal(t, "Interview scheduled successfully for "+resp.Booking.Name+" on 2026-10-17 at 14:00", resp.Message)
}

func TestScheduleRejectsInvalidAndBlockedDetails(t *testing.T) {
	f := newFixture(t, nil, answer.Options{})
	ctx := context.Background()

	_, err := f.svc.Schedule(ctx, domain.ScheduleRequest{Name: "Ada", Email: "not-an-email", Date: "2026-10-20", Time: "10:00"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Schedule(ctx, domain.ScheduleRequest{Name: "Ada", Email: "ada@mailinator.com", Date: "2026-10-20", Time: "10:00"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	bookings, err := f.svc.ListBookings(ctx, "", 0)
	require.NoError(t, err)
	assert.Empty(t, bookings)
}

func TestBookingLifecycle(t *testing.T) {
	f := newFixture(t, nil, answer.Options{})
	ctx := context.Background()

	resp, err := f.svc.Schedule(ctx, domain.ScheduleRequest{
		Name: "Ada Lovelace", Email: "ada@example.com", Date: "2026-10-20", Time: "10:00", SessionID: "s5",
	})
	require.NoError(t, err)

	listed, err := f.svc.ListBookings(ctx, "s5", 10)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, resp.BookingID, listed[0].BookingID)

	_, err = f.svc.ListBookings(ctx, "", 101)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	msg, err := f.svc.DeleteBooking(ctx, resp.BookingID)
	require.NoError(t, err)
	assert.Equal(t, "Booking "+resp.BookingID+" cancelled successfully", msg)

	_, err = f.svc.DeleteBooking(ctx, resp.BookingID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.svc.GetBooking(ctx, resp.BookingID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClearSession(t *testing.T) {
	f := newFixture(t, nil, answer.Options{})
	ctx := context.Background()

	_, err := f.svc.Ask(ctx, domain.AskRequest{SessionID: "s6", Query: "I want to schedule an interview"})
	require.NoError(t, err)

	msg, err := f.svc.ClearSession(ctx, "s6")
	require.NoError(t, err)
	assert.Equal(t, "Session s6 cleared successfully", msg)

	turns, err := f.svc.SessionMessages(ctx, "s6", 0)
	require.NoError(t, err)
	assert.Empty(t, turns)

	_, err = f.svc.ClearSession(ctx, "never-seen")
	assert.NoError(t, err)
}

func TestUploadValidatesInput(t *testing.T) {
	f := newFixture(t, nil, answer.Options{})
	ctx := context.Background()

	_, err := f.svc.Upload(ctx, "notes.pdf", []byte("%PDF"), domain.ChunkStrategyFixed)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Upload(ctx, "notes.txt", []byte("text"), domain.ChunkStrategy("semantic"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	resp, err := f.svc.Upload(ctx, "Guide.md", []byte("# Guide\n\nInterviews last one hour."), "")
	require.NoError(t, err)
	assert.Equal(t, "Guide.md", resp.FileName)
	assert.Equal(t, 1, resp.TotalChunks)
	assert.Equal(t, 1, f.index.Len())
}

func TestUploadKeepsFileNameCase(t *testing.T) {
	f := newFixture(t, nil, answer.Options{})
	ctx := context.Background()

	up, err := f.svc.Upload(ctx, "docs/Handbook.MD", []byte("The dress code is business casual."), "")
	require.NoError(t, err)
	assert.Equal(t, "Handbook.MD", up.FileName)
	assert.Equal(t, "md", up.FileType)

	resp, err := f.svc.Ask(ctx, domain.AskRequest{SessionID: "s10", Query: "What is the dress code?"})
	require.NoError(t, err)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "Handbook.MD", resp.Sources[0].Source)
}

func TestSweepSessionsPrunesIdleSessions(t *testing.T) {
	f := newFixture(t, nil, answer.Options{})
	ctx := context.Background()

	require.NoError(t, f.memory.AppendTurn(ctx, "old", "hello", "hi"))

	f.svc.WithClock(func() time.Time { return time.Now().Add(48 * time.Hour) })
	removed, err := f.svc.SweepSessions(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	history, err := f.memory.Recent(ctx, "old", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestRunRetentionRejectsBadSchedule(t *testing.T) {
	f := newFixture(t, nil, answer.Options{})
	err := f.svc.RunRetention(context.Background(), "not a schedule", time.Hour)
	assert.Error(t, err)
}
