package service

import (
	"context"
	"fmt"

	"github.com/xiaot623/ragbook/internal/domain"
)

// ClearSession drops a session's conversation memory. Clearing an empty or
// unknown session succeeds.
func (s *Service) ClearSession(ctx context.Context, sessionID string) (string, error) {
	sessionID = domain.NormalizeSessionID(sessionID)
	if err := s.memory.Clear(ctx, sessionID); err != nil {
		s.log.WithError(err).WithField("session_id", sessionID).Error("failed to clear session")
		return "", fmt.Errorf("%w: clear session: %v", domain.ErrPersistence, err)
	}
	return fmt.Sprintf("Session %s cleared successfully", sessionID), nil
}

// SessionMessages returns up to limit of the latest messages, oldest first.
func (s *Service) SessionMessages(ctx context.Context, sessionID string, limit int) ([]domain.TurnMessage, error) {
	if limit == 0 {
		limit = DefaultListLimit
	}
	if limit < 1 || limit > MaxListLimit {
		return nil, domain.Invalid("limit", fmt.Sprintf("must be between 1 and %d", MaxListLimit))
	}
	turns, err := s.memory.Recent(ctx, domain.NormalizeSessionID(sessionID), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: read session: %v", domain.ErrPersistence, err)
	}
	if turns == nil {
		turns = []domain.TurnMessage{}
	}
	return turns, nil
}
