package v1

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/ragbook/internal/answer"
	"github.com/xiaot623/ragbook/internal/domain"
	"github.com/xiaot623/ragbook/internal/logger"
	"github.com/xiaot623/ragbook/internal/service/servicetest"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	return NewHandler(servicetest.New(t), 1024, logger.Discard())
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestAskRejectsEmptyQuery(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/v1/rag/ask", `{"query": "  "}`), rec)

	require.NoError(t, h.Ask(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, CodeInvalidInput, decodeError(t, rec).Code)
}

func TestAskWithEmptyCorpus(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/v1/rag/ask", `{"query": "What is your return policy?"}`), rec)

	require.NoError(t, h.Ask(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, answer.InsufficientContext, resp.Answer)
	assert.Equal(t, domain.AnonymousSessionID, resp.SessionID)
	assert.False(t, resp.BookingDetected)
	assert.Empty(t, resp.Sources)
}

func TestAskBookingThenSessionMessages(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/v1/rag/ask",
		`{"session_id": "s1", "query": "I want to schedule an interview"}`), rec)
	require.NoError(t, h.Ask(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.BookingDetected)
	assert.Empty(t, resp.BookingID)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/sessions/s1/messages", nil), rec)
	c.SetParamNames("session_id")
	c.SetParamValues("s1")
	require.NoError(t, h.GetSessionMessages(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var history struct {
		SessionID string               `json:"session_id"`
		Messages  []domain.TurnMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Equal(t, "s1", history.SessionID)
	require.Len(t, history.Messages, 2)
	assert.Equal(t, "I want to schedule an interview", history.Messages[0].Text)
	assert.Equal(t, resp.Answer, history.Messages[1].Text)
}

func TestClearSession(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/v1/rag/session/abc", nil), rec)
	c.SetParamNames("session_id")
	c.SetParamValues("abc")

	require.NoError(t, h.ClearSession(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message": "Session abc cleared successfully"}`, rec.Body.String())
}

func TestScheduleGetAndDeleteBooking(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/v1/booking/schedule",
		`{"name": "John Doe", "email": "john@example.com", "date": "2025-12-25", "time": "2pm"}`), rec)
	require.NoError(t, h.Schedule(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var scheduled domain.ScheduleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &scheduled))
	assert.True(t, scheduled.Success)
	assert.Equal(t, "Interview scheduled successfully for John Doe on 2025-12-25 at 14:00", scheduled.Message)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/booking/"+scheduled.BookingID, nil), rec)
	c.SetParamNames("booking_id")
	c.SetParamValues(scheduled.BookingID)
	require.NoError(t, h.GetBooking(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got domain.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "john@example.com", got.Email)
	assert.Equal(t, domain.AnonymousSessionID, got.SessionID)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/v1/booking/"+scheduled.BookingID, nil), rec)
	c.SetParamNames("booking_id")
	c.SetParamValues(scheduled.BookingID)
	require.NoError(t, h.DeleteBooking(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/v1/booking/"+scheduled.BookingID, nil), rec)
	c.SetParamNames("booking_id")
	c.SetParamValues(scheduled.BookingID)
	require.NoError(t, h.DeleteBooking(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, ErrorDetail{Code: CodeNotFound, Message: "booking not found"}, decodeError(t, rec))
}

func TestScheduleRejectsInvalidEmail(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, "/v1/booking/schedule",
		`{"name": "John Doe", "email": "john-at-example", "date": "2025-12-25", "time": "14:00"}`), rec)
	require.NoError(t, h.Schedule(c))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	detail := decodeError(t, rec)
	assert.Equal(t, CodeInvalidInput, detail.Code)
	assert.Contains(t, detail.Message, "email")
}

func TestListBookings(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/booking/list", nil), rec)
	require.NoError(t, h.ListBookings(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"bookings": [], "count": 0}`, rec.Body.String())

	for _, limit := range []string{"abc", "0x", "101", "-1"} {
		rec = httptest.NewRecorder()
		c = e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/booking/list?limit="+limit, nil), rec)
		require.NoError(t, h.ListBookings(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code, "limit %s", limit)
	}
}

func multipartRequest(t *testing.T, target, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return req
}

func TestUploadFileThenAsk(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	c := e.NewContext(multipartRequest(t, "/v1/upload/file?strategy=paragraph", "policy.txt",
		"Returns are accepted within 30 days.\n\nRefunds go to the original card."), rec)
	require.NoError(t, h.UploadFile(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var uploaded domain.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &uploaded))
	assert.Equal(t, "policy.txt", uploaded.FileName)
	assert.Equal(t, 1, uploaded.TotalChunks)
	assert.NotEmpty(t, uploaded.DocumentID)

	rec = httptest.NewRecorder()
	c = e.NewContext(jsonRequest(http.MethodPost, "/v1/rag/ask", `{"query": "How do refunds work?"}`), rec)
	require.NoError(t, h.Ask(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp domain.AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Answer, "How do refunds work?")
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, "policy.txt", resp.Sources[0].Source)
}

func TestUploadFileRejections(t *testing.T) {
	e := echo.New()
	h := newTestHandler(t)

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"missing file", httptest.NewRequest(http.MethodPost, "/v1/upload/file", nil)},
		{"too large", multipartRequest(t, "/v1/upload/file", "big.txt", strings.Repeat("x", 2048))},
		{"unsupported type", multipartRequest(t, "/v1/upload/file", "scan.pdf", "%PDF-1.4")},
		{"unknown strategy", multipartRequest(t, "/v1/upload/file?strategy=semantic", "a.txt", "text")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			require.NoError(t, h.UploadFile(e.NewContext(tt.req, rec)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, CodeInvalidInput, decodeError(t, rec).Code)
		})
	}
}
