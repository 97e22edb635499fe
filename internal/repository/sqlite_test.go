package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/ragbook/internal/domain"
	"github.com/xiaot623/ragbook/internal/testutil"
)

func newBooking(sessionID string, createdAt time.Time) *domain.Booking {
	return &domain.Booking{
		BookingID: uuid.NewString(),
		Name:      "John Doe",
		Email:     "john@example.com",
		Date:      "2025-12-25",
		Time:      "14:00",
		SessionID: sessionID,
		CreatedAt: createdAt,
	}
}

func TestBookingRoundTrip(t *testing.T) {
	s := testutil.NewTestSQLiteStore(t)
	ctx := context.Background()

	b := newBooking("s1", time.Now())
	require.NoError(t, s.CreateBooking(ctx, b))

	got, err := s.GetBooking(ctx, b.BookingID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, b.Draft(), got.Draft())
	assert.Equal(t, "s1", got.SessionID)
	assert.WithinDuration(t, b.CreatedAt, got.CreatedAt, time.Second)
}

func TestGetBookingNotFound(t *testing.T) {
	s := testutil.NewTestSQLiteStore(t)

	got, err := s.GetBooking(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListBookingsNewestFirstWithFilter(t *testing.T) {
	s := testutil.NewTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	first := newBooking("s1", base)
	second := newBooking("s1", base.Add(time.Minute))
	other := newBooking("s2", base.Add(2*time.Minute))
	for _, b := range []*domain.Booking{first, second, other} {
		require.NoError(t, s.CreateBooking(ctx, b))
	}

	all, err := s.ListBookings(ctx, "", 50)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, other.BookingID, all[0].BookingID)

	s1, err := s.ListBookings(ctx, "s1", 50)
	require.NoError(t, err)
	require.Len(t, s1, 2)
	assert.Equal(t, second.BookingID, s1[0].BookingID)
	assert.Equal(t, first.BookingID, s1[1].BookingID)

	limited, err := s.ListBookings(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDeleteBooking(t *testing.T) {
	s := testutil.NewTestSQLiteStore(t)
	ctx := context.Background()

	b := newBooking("s1", time.Now())
	require.NoError(t, s.CreateBooking(ctx, b))

	deleted, err := s.DeleteBooking(ctx, b.BookingID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteBooking(ctx, b.BookingID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func message(sessionID string, role domain.Role, content string, at time.Time) domain.Message {
	return domain.Message{
		MessageID: uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: at,
	}
}

func TestRecentMessagesOldestFirst(t *testing.T) {
	s := testutil.NewTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.AppendMessages(ctx,
		message("s1", domain.RoleUser, "one", now),
		message("s1", domain.RoleAssistant, "two", now),
	))
	require.NoError(t, s.AppendMessages(ctx,
		message("s1", domain.RoleUser, "three", now),
		message("s1", domain.RoleAssistant, "four", now),
	))
	require.NoError(t, s.AppendMessages(ctx, message("s2", domain.RoleUser, "other", now)))

	recent, err := s.RecentMessages(ctx, "s1", 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "two", recent[0].Content)
	assert.Equal(t, "three", recent[1].Content)
	assert.Equal(t, "four", recent[2].Content)
	assert.Equal(t, domain.RoleAssistant, recent[2].Role)

	all, err := s.RecentMessages(ctx, "s1", 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestAppendMessagesIsAtomic(t *testing.T) {
	s := testutil.NewTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Now()

	dup := message("s1", domain.RoleUser, "hello", now)
	require.NoError(t, s.AppendMessages(ctx, dup))

	// The second message reuses an existing ID, so the whole batch must roll back.
	err := s.AppendMessages(ctx, message("s1", domain.RoleUser, "new", now), dup)
	require.Error(t, err)

	recent, err := s.RecentMessages(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "hello", recent[0].Content)
}

func TestDeleteSessionIsIdempotent(t *testing.T) {
	s := testutil.NewTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.DeleteSession(ctx, "never-seen"))

	require.NoError(t, s.AppendMessages(ctx, message("s1", domain.RoleUser, "hi", time.Now())))
	require.NoError(t, s.DeleteSession(ctx, "s1"))
	require.NoError(t, s.DeleteSession(ctx, "s1"))

	recent, err := s.RecentMessages(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestPruneSessionsBefore(t *testing.T) {
	s := testutil.NewTestSQLiteStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.AppendMessages(ctx, message("stale", domain.RoleUser, "old", now.Add(-48*time.Hour))))
	require.NoError(t, s.AppendMessages(ctx, message("fresh", domain.RoleUser, "new", now)))

	removed, err := s.PruneSessionsBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	stale, err := s.RecentMessages(ctx, "stale", 10)
	require.NoError(t, err)
	assert.Empty(t, stale)

	fresh, err := s.RecentMessages(ctx, "fresh", 10)
	require.NoError(t, err)
	assert.Len(t, fresh, 1)
}

func TestDocumentMetadata(t *testing.T) {
	s := testutil.NewTestSQLiteStore(t)
	ctx := context.Background()

	doc := &domain.Document{
		DocumentID:  uuid.NewString(),
		FileName:    "handbook.md",
		Strategy:    domain.ChunkStrategyParagraph,
		TotalChunks: 2,
		ChunkIDs:    []string{"c1", "c2"},
		TextPreview: "Welcome",
		CreatedAt:   time.Now(),
	}
	require.NoError(t, s.CreateDocument(ctx, doc))

	got, err := s.GetDocument(ctx, doc.DocumentID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, doc.FileName, got.FileName)
	assert.Equal(t, domain.ChunkStrategyParagraph, got.Strategy)
	assert.Equal(t, []string{"c1", "c2"}, got.ChunkIDs)

	missing, err := s.GetDocument(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	docs, err := s.ListDocuments(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}
