package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/ragbook/internal/domain"
)

// Ask runs one conversational turn.
// POST /v1/rag/ask
func (h *Handler) Ask(c echo.Context) error {
	var req domain.AskRequest
	if err := c.Bind(&req); err != nil {
		return JSONError(c, http.StatusBadRequest, CodeInvalidInput, "invalid request body")
	}

	resp, err := h.svc.Ask(c.Request().Context(), req)
	if err != nil {
		return h.writeError(c, err, "")
	}
	return c.JSON(http.StatusOK, resp)
}

// ClearSession drops a session's conversation memory.
// DELETE /v1/rag/session/:session_id
func (h *Handler) ClearSession(c echo.Context) error {
	msg, err := h.svc.ClearSession(c.Request().Context(), c.Param("session_id"))
	if err != nil {
		return h.writeError(c, err, "")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": msg})
}

// GetSessionMessages returns the latest messages of a session, oldest first.
// GET /v1/sessions/:session_id/messages
func (h *Handler) GetSessionMessages(c echo.Context) error {
	sessionID := c.Param("session_id")
	limit, ok := queryInt(c, "limit")
	if !ok {
		return JSONError(c, http.StatusBadRequest, CodeInvalidInput, "limit must be an integer")
	}

	messages, err := h.svc.SessionMessages(c.Request().Context(), sessionID, limit)
	if err != nil {
		return h.writeError(c, err, "")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"session_id": domain.NormalizeSessionID(sessionID),
		"messages":   messages,
	})
}

// queryInt parses an optional integer query parameter; absent means 0.
func queryInt(c echo.Context, name string) (int, bool) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	return n, err == nil
}
