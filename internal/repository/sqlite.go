package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/ragbook/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens dsn and applies migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
			booking_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			date TEXT NOT NULL,
			time TEXT NOT NULL,
			session_id TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_session ON bookings(session_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_created ON bookings(created_at)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_active_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_active ON sessions(last_active_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			message_id TEXT NOT NULL UNIQUE,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, seq)`,
		`CREATE TABLE IF NOT EXISTS documents (
			document_id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL,
			strategy TEXT NOT NULL,
			total_chunks INTEGER NOT NULL DEFAULT 0,
			chunk_ids TEXT,
			text_preview TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateBooking inserts a booking record.
func (s *SQLiteStore) CreateBooking(ctx context.Context, b *domain.Booking) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bookings (booking_id, name, email, date, time, session_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		b.BookingID, b.Name, b.Email, b.Date, b.Time, b.SessionID, b.CreatedAt.UTC())
	return err
}

// GetBooking retrieves a booking by ID. It returns nil, nil when absent.
func (s *SQLiteStore) GetBooking(ctx context.Context, bookingID string) (*domain.Booking, error) {
	var b domain.Booking
	err := s.db.QueryRowContext(ctx,
		`SELECT booking_id, name, email, date, time, session_id, created_at FROM bookings WHERE booking_id = ?`,
		bookingID).Scan(&b.BookingID, &b.Name, &b.Email, &b.Date, &b.Time, &b.SessionID, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// ListBookings returns bookings newest first, optionally filtered by session.
func (s *SQLiteStore) ListBookings(ctx context.Context, sessionID string, limit int) ([]domain.Booking, error) {
	query := `SELECT booking_id, name, email, date, time, session_id, created_at FROM bookings`
	var args []interface{}
	if sessionID != "" {
		query += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []domain.Booking{}
	for rows.Next() {
		var b domain.Booking
		if err := rows.Scan(&b.BookingID, &b.Name, &b.Email, &b.Date, &b.Time, &b.SessionID, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// DeleteBooking removes a booking and reports whether it existed.
func (s *SQLiteStore) DeleteBooking(ctx context.Context, bookingID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bookings WHERE booking_id = ?`, bookingID)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// AppendMessages writes messages in one transaction, creating or touching
// their sessions. Either every message is stored or none is.
func (s *SQLiteStore) AppendMessages(ctx context.Context, messages ...domain.Message) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	touched := make(map[string]time.Time)
	for _, m := range messages {
		ts := m.CreatedAt.UTC()
		if ts.After(touched[m.SessionID]) {
			touched[m.SessionID] = ts
		}
	}
	for sessionID, ts := range touched {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO sessions (session_id, created_at, last_active_at) VALUES (?, ?, ?)
			 ON CONFLICT(session_id) DO UPDATE SET last_active_at = excluded.last_active_at`,
			sessionID, ts, ts); err != nil {
			return err
		}
	}
	for _, m := range messages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (message_id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			m.MessageID, m.SessionID, string(m.Role), m.Content, m.CreatedAt.UTC()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// RecentMessages returns up to n of the latest messages of a session, oldest first.
// A non-positive n returns the whole log.
func (s *SQLiteStore) RecentMessages(ctx context.Context, sessionID string, n int) ([]domain.Message, error) {
	query := `SELECT message_id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY seq DESC`
	if n > 0 {
		query += fmt.Sprintf(" LIMIT %d", n)
	}

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var role string
		if err := rows.Scan(&msg.MessageID, &msg.SessionID, &role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Role = domain.Role(role)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// DeleteSession removes a session and its messages. Unknown sessions are ignored.
func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	return tx.Commit()
}

// PruneSessionsBefore deletes sessions idle since before cutoff and returns how many were removed.
func (s *SQLiteStore) PruneSessionsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	cutoff = cutoff.UTC()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM messages WHERE session_id IN (SELECT session_id FROM sessions WHERE last_active_at < ?)`,
		cutoff); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE last_active_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, tx.Commit()
}

// CreateDocument records metadata for an ingested file.
func (s *SQLiteStore) CreateDocument(ctx context.Context, doc *domain.Document) error {
	chunkIDs, err := json.Marshal(doc.ChunkIDs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (document_id, file_name, strategy, total_chunks, chunk_ids, text_preview, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		doc.DocumentID, doc.FileName, string(doc.Strategy), doc.TotalChunks, string(chunkIDs), nullString(doc.TextPreview), doc.CreatedAt.UTC())
	return err
}

// GetDocument retrieves document metadata by ID. It returns nil, nil when absent.
func (s *SQLiteStore) GetDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT document_id, file_name, strategy, total_chunks, chunk_ids, text_preview, created_at FROM documents WHERE document_id = ?`,
		documentID)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return doc, err
}

// ListDocuments returns document metadata newest first.
func (s *SQLiteStore) ListDocuments(ctx context.Context, limit int) ([]domain.Document, error) {
	query := `SELECT document_id, file_name, strategy, total_chunks, chunk_ids, text_preview, created_at FROM documents ORDER BY created_at DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var strategy string
	var chunkIDs, preview sql.NullString
	if err := row.Scan(&doc.DocumentID, &doc.FileName, &strategy, &doc.TotalChunks, &chunkIDs, &preview, &doc.CreatedAt); err != nil {
		return nil, err
	}
	doc.Strategy = domain.ChunkStrategy(strategy)
	if chunkIDs.Valid && chunkIDs.String != "" {
		if err := json.Unmarshal([]byte(chunkIDs.String), &doc.ChunkIDs); err != nil {
			return nil, fmt.Errorf("decode chunk ids: %w", err)
		}
	}
	if preview.Valid {
		doc.TextPreview = preview.String
	}
	return &doc, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
