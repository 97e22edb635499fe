package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/xiaot623/ragbook/internal/domain"
	"github.com/xiaot623/ragbook/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 16
)

func newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// wsConn is one client connection. Messages are handled in order on the
// read goroutine; only the write goroutine touches the socket for writes.
type wsConn struct {
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	log       logrus.FieldLogger
}

// HandleWebSocket upgrades the request and serves the chat protocol until
// the client goes away.
// GET /v1/ws
func (h *Handler) HandleWebSocket(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.WithError(err).Warn("failed to upgrade websocket")
		return nil
	}
	ws.SetReadLimit(maxMessageSize)

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	conn := &wsConn{
		conn: ws,
		send: make(chan []byte, sendBuffer),
		log:  h.log.WithField("remote_ip", c.RealIP()),
	}

	go h.writePump(ctx, cancel, conn)
	h.readPump(ctx, conn)
	return nil
}

// readPump reads messages from the connection.
func (h *Handler) readPump(ctx context.Context, conn *wsConn) {
	_ = conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.conn.SetPongHandler(func(string) error {
		return conn.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := conn.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				conn.log.WithError(err).Warn("websocket read failed")
			}
			return
		}
		h.handleMessage(ctx, conn, message)
	}
}

// writePump writes queued messages and keeps the connection alive with pings.
func (h *Handler) writePump(ctx context.Context, cancel context.CancelFunc, conn *wsConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		conn.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case message := <-conn.send:
			_ = conn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				conn.log.WithError(err).Warn("failed to write websocket message")
				return
			}

		case <-ticker.C:
			_ = conn.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage dispatches incoming messages to appropriate handlers.
func (h *Handler) handleMessage(ctx context.Context, conn *wsConn, data []byte) {
	var base protocol.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		h.sendError(ctx, conn, "", protocol.ErrorCodeInvalidMessage, "invalid JSON message")
		return
	}

	switch base.Type {
	case protocol.TypeHello:
		h.handleHello(ctx, conn, data)
	case protocol.TypeAsk:
		h.handleAsk(ctx, conn, data)
	case protocol.TypeClear:
		h.handleClear(ctx, conn, base)
	default:
		h.sendError(ctx, conn, base.RequestID, protocol.ErrorCodeInvalidMessage, "unknown message type: "+base.Type)
	}
}

// handleHello binds the connection to a session.
func (h *Handler) handleHello(ctx context.Context, conn *wsConn, data []byte) {
	var msg protocol.HelloMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(ctx, conn, "", protocol.ErrorCodeInvalidMessage, "invalid hello message")
		return
	}

	sessionID := msg.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	conn.sessionID = sessionID
	conn.log = conn.log.WithField("session_id", sessionID)

	h.send(ctx, conn, protocol.HelloAckMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeHelloAck,
			Ts:        time.Now().UnixMilli(),
			RequestID: msg.RequestID,
			SessionID: sessionID,
		},
	})
	conn.log.Info("websocket session bound")
}

// handleAsk runs one turn for the bound session.
func (h *Handler) handleAsk(ctx context.Context, conn *wsConn, data []byte) {
	var msg protocol.AskMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(ctx, conn, "", protocol.ErrorCodeInvalidMessage, "invalid ask message")
		return
	}
	if conn.sessionID == "" {
		h.sendError(ctx, conn, msg.RequestID, protocol.ErrorCodeSessionRequired, "must send hello first")
		return
	}

	resp, err := h.svc.Ask(ctx, domain.AskRequest{SessionID: conn.sessionID, Query: msg.Query})
	if err != nil {
		h.sendServiceError(ctx, conn, msg.RequestID, err)
		return
	}
	h.send(ctx, conn, protocol.NewAnswer(msg.RequestID, time.Now().UnixMilli(), resp))
}

// handleClear drops the bound session's memory.
func (h *Handler) handleClear(ctx context.Context, conn *wsConn, base protocol.BaseMessage) {
	if conn.sessionID == "" {
		h.sendError(ctx, conn, base.RequestID, protocol.ErrorCodeSessionRequired, "must send hello first")
		return
	}

	msg, err := h.svc.ClearSession(ctx, conn.sessionID)
	if err != nil {
		h.sendServiceError(ctx, conn, base.RequestID, err)
		return
	}
	h.send(ctx, conn, protocol.ClearedMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeCleared,
			Ts:        time.Now().UnixMilli(),
			RequestID: base.RequestID,
			SessionID: conn.sessionID,
		},
		Message: msg,
	})
}

func (h *Handler) sendServiceError(ctx context.Context, conn *wsConn, requestID string, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		h.sendError(ctx, conn, requestID, protocol.ErrorCodeInvalidInput, verr.Error())
	case errors.Is(err, domain.ErrPersistence):
		conn.log.WithError(err).Error("websocket turn failed to persist")
		h.sendError(ctx, conn, requestID, protocol.ErrorCodePersistence, "failed to store data")
	default:
		conn.log.WithError(err).Error("websocket turn failed")
		h.sendError(ctx, conn, requestID, protocol.ErrorCodeInternalError, "internal server error")
	}
}

// sendError sends an error message to a connection.
func (h *Handler) sendError(ctx context.Context, conn *wsConn, requestID, code, message string) {
	h.send(ctx, conn, protocol.ErrorMessage{
		BaseMessage: protocol.BaseMessage{
			Type:      protocol.TypeError,
			Ts:        time.Now().UnixMilli(),
			RequestID: requestID,
			SessionID: conn.sessionID,
		},
		Code:    code,
		Message: message,
	})
}

func (h *Handler) send(ctx context.Context, conn *wsConn, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		conn.log.WithError(err).Error("failed to marshal websocket message")
		return
	}
	select {
	case conn.send <- data:
	case <-ctx.Done():
	}
}
