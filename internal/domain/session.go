package domain

import (
	"strings"
	"time"
)

// AnonymousSessionID is used when a caller does not name a session.
const AnonymousSessionID = "anonymous"

// SessionTTL is how long an idle conversation is retained.
const SessionTTL = 30 * 24 * time.Hour

// NormalizeSessionID trims id and substitutes the anonymous session when empty.
func NormalizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return AnonymousSessionID
	}
	return id
}

// TurnMessage is one entry of a session's conversation log.
type TurnMessage struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Message is a persisted turn message.
type Message struct {
	MessageID string    `json:"message_id"`
	SessionID string    `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Turn converts a persisted message into its conversational form.
func (m Message) Turn() TurnMessage {
	return TurnMessage{Role: m.Role, Text: m.Content}
}
