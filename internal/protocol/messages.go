// Package protocol defines the websocket chat protocol between clients and the server.
package protocol

import "github.com/xiaot623/ragbook/internal/domain"

// Message types from client to server
const (
	TypeHello = "hello"
	TypeAsk   = "ask"
	TypeClear = "clear"
)

// Message types from server to client
const (
	TypeHelloAck = "hello_ack"
	TypeAnswer   = "answer"
	TypeCleared  = "cleared"
	TypeError    = "error"
)

// BaseMessage contains common fields for all messages.
type BaseMessage struct {
	Type      string `json:"type"`
	Ts        int64  `json:"ts"`
	RequestID string `json:"request_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// HelloMessage binds the connection to a session. An empty session id asks
// the server to allocate one.
type HelloMessage struct {
	BaseMessage
	ClientMeta map[string]string `json:"client_meta,omitempty"`
}

// HelloAckMessage is sent after a successful hello.
type HelloAckMessage struct {
	BaseMessage
}

// AskMessage submits one conversational turn.
type AskMessage struct {
	BaseMessage
	Query string `json:"query"`
}

// AnswerMessage carries the reply to an ask.
type AnswerMessage struct {
	BaseMessage
	Answer          string               `json:"answer"`
	Sources         []domain.Source      `json:"sources"`
	BookingDetected bool                 `json:"booking_detected"`
	BookingData     *domain.BookingDraft `json:"booking_data,omitempty"`
	BookingID       string               `json:"booking_id,omitempty"`
}

// ClearedMessage confirms a session clear.
type ClearedMessage struct {
	BaseMessage
	Message string `json:"message"`
}

// ErrorMessage is sent when a request cannot be served.
type ErrorMessage struct {
	BaseMessage
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes
const (
	ErrorCodeInvalidMessage  = "invalid_message"
	ErrorCodeSessionRequired = "session_required"
	ErrorCodeInvalidInput    = "invalid_input"
	ErrorCodePersistence     = "persistence_failure"
	ErrorCodeInternalError   = "internal_error"
)

// NewAnswer builds the answer message for resp.
func NewAnswer(requestID string, ts int64, resp *domain.AskResponse) AnswerMessage {
	return AnswerMessage{
		BaseMessage: BaseMessage{
			Type:      TypeAnswer,
			Ts:        ts,
			RequestID: requestID,
			SessionID: resp.SessionID,
		},
		Answer:          resp.Answer,
		Sources:         resp.Sources,
		BookingDetected: resp.BookingDetected,
		BookingData:     resp.BookingData,
		BookingID:       resp.BookingID,
	}
}
