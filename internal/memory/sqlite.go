package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/xiaot623/ragbook/internal/domain"
	"github.com/xiaot623/ragbook/internal/repository"
)

// SQLStore keeps conversation memory in the relational store.
type SQLStore struct {
	store repository.Store
	now   func() time.Time
}

// NewSQLStore wraps store.
func NewSQLStore(store repository.Store) *SQLStore {
	return &SQLStore{store: store, now: time.Now}
}

var _ Store = (*SQLStore)(nil)

func (m *SQLStore) message(sessionID string, role domain.Role, text string) domain.Message {
	return domain.Message{
		MessageID: uuid.NewString(),
		SessionID: domain.NormalizeSessionID(sessionID),
		Role:      role,
		Content:   text,
		CreatedAt: m.now(),
	}
}

func (m *SQLStore) Append(ctx context.Context, sessionID string, role domain.Role, text string) error {
	if err := validate(role, text); err != nil {
		return err
	}
	if err := m.store.AppendMessages(ctx, m.message(sessionID, role, text)); err != nil {
		return fmt.Errorf("%w: append message: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (m *SQLStore) AppendTurn(ctx context.Context, sessionID, userText, assistantText string) error {
	if err := validate(domain.RoleUser, userText); err != nil {
		return err
	}
	if err := validate(domain.RoleAssistant, assistantText); err != nil {
		return err
	}
	err := m.store.AppendMessages(ctx,
		m.message(sessionID, domain.RoleUser, userText),
		m.message(sessionID, domain.RoleAssistant, assistantText),
	)
	if err != nil {
		return fmt.Errorf("%w: append turn: %v", domain.ErrPersistence, err)
	}
	return nil
}

func (m *SQLStore) Recent(ctx context.Context, sessionID string, n int) ([]domain.TurnMessage, error) {
	msgs, err := m.store.RecentMessages(ctx, domain.NormalizeSessionID(sessionID), n)
	if err != nil {
		return nil, err
	}
	turns := make([]domain.TurnMessage, 0, len(msgs))
	for _, msg := range msgs {
		turns = append(turns, msg.Turn())
	}
	return turns, nil
}

func (m *SQLStore) Clear(ctx context.Context, sessionID string) error {
	if err := m.store.DeleteSession(ctx, domain.NormalizeSessionID(sessionID)); err != nil {
		return fmt.Errorf("%w: clear session: %v", domain.ErrPersistence, err)
	}
	return nil
}
