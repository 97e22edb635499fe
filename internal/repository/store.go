// Package repository defines the storage interface and its SQLite implementation.
package repository

import (
	"context"
	"time"

	"github.com/xiaot623/ragbook/internal/domain"
)

// Store defines the interface for data persistence.
type Store interface {
	// Booking operations
	CreateBooking(ctx context.Context, booking *domain.Booking) error
	GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error)
	ListBookings(ctx context.Context, sessionID string, limit int) ([]domain.Booking, error)
	DeleteBooking(ctx context.Context, bookingID string) (bool, error)

	// Message operations
	AppendMessages(ctx context.Context, messages ...domain.Message) error
	RecentMessages(ctx context.Context, sessionID string, n int) ([]domain.Message, error)
	DeleteSession(ctx context.Context, sessionID string) error
	PruneSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Document operations
	CreateDocument(ctx context.Context, doc *domain.Document) error
	GetDocument(ctx context.Context, documentID string) (*domain.Document, error)
	ListDocuments(ctx context.Context, limit int) ([]domain.Document, error)

	// Lifecycle
	Close() error
}

var _ Store = (*SQLiteStore)(nil)
