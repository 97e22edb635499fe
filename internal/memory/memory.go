// Package memory keeps the per-session conversation log.
package memory

import (
	"context"
	"strings"

	"github.com/xiaot623/ragbook/internal/domain"
)

// Store is an append-only per-session message log.
type Store interface {
	// Append adds one message to the session.
	Append(ctx context.Context, sessionID string, role domain.Role, text string) error
	// AppendTurn adds a user message and its assistant reply as one unit.
	AppendTurn(ctx context.Context, sessionID, userText, assistantText string) error
	// Recent returns up to n of the latest messages, oldest first.
	Recent(ctx context.Context, sessionID string, n int) ([]domain.TurnMessage, error)
	// Clear drops the whole session. Clearing an unknown session is not an error.
	Clear(ctx context.Context, sessionID string) error
}

func validate(role domain.Role, text string) error {
	if !role.Valid() {
		return domain.Invalid("role", "must be user or assistant")
	}
	if strings.TrimSpace(text) == "" {
		return domain.Invalid("text", "must not be empty")
	}
	return nil
}
