// Package domain defines the core domain models for the booking concierge.
package domain

// Role is the author of a turn message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the roles a memory store accepts.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// TurnState is a step of the per-turn state machine.
type TurnState string

const (
	TurnStateStart             TurnState = "START"
	TurnStateClassify          TurnState = "CLASSIFY"
	TurnStateBookingIncomplete TurnState = "BOOKING_INCOMPLETE"
	TurnStateBookingComplete   TurnState = "BOOKING_COMPLETE"
	TurnStateAnswering         TurnState = "ANSWERING"
	TurnStateEnd               TurnState = "END"
)

// Booking field names, in the order they are reported as missing.
const (
	FieldName  = "name"
	FieldEmail = "email"
	FieldDate  = "date"
	FieldTime  = "time"
)

// BookingFields lists every field a complete draft must carry.
var BookingFields = []string{FieldName, FieldEmail, FieldDate, FieldTime}

// ChunkStrategy selects how ingested documents are split.
type ChunkStrategy string

const (
	ChunkStrategyFixed     ChunkStrategy = "fixed"
	ChunkStrategySimple    ChunkStrategy = "simple"
	ChunkStrategyParagraph ChunkStrategy = "paragraph"
)

// Valid reports whether s names a known strategy.
func (s ChunkStrategy) Valid() bool {
	switch s {
	case ChunkStrategyFixed, ChunkStrategySimple, ChunkStrategyParagraph:
		return true
	}
	return false
}
