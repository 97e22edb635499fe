package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/ragbook/internal/domain"
)

const bookingNotFound = "booking not found"

// Schedule books an interview directly.
// POST /v1/booking/schedule
func (h *Handler) Schedule(c echo.Context) error {
	var req domain.ScheduleRequest
	if err := c.Bind(&req); err != nil {
		return JSONError(c, http.StatusBadRequest, CodeInvalidInput, "invalid request body")
	}

	resp, err := h.svc.Schedule(c.Request().Context(), req)
	if err != nil {
		return h.writeError(c, err, "")
	}
	return c.JSON(http.StatusOK, resp)
}

// ListBookings lists bookings newest first.
// GET /v1/booking/list?session_id=&limit=
func (h *Handler) ListBookings(c echo.Context) error {
	limit, ok := queryInt(c, "limit")
	if !ok {
		return JSONError(c, http.StatusBadRequest, CodeInvalidInput, "limit must be an integer")
	}

	bookings, err := h.svc.ListBookings(c.Request().Context(), c.QueryParam("session_id"), limit)
	if err != nil {
		return h.writeError(c, err, "")
	}
	if bookings == nil {
		bookings = []domain.Booking{}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// GetBooking returns one booking.
// GET /v1/booking/:booking_id
func (h *Handler) GetBooking(c echo.Context) error {
	b, err := h.svc.GetBooking(c.Request().Context(), c.Param("booking_id"))
	if err != nil {
		return h.writeError(c, err, bookingNotFound)
	}
	return c.JSON(http.StatusOK, b)
}

// DeleteBooking cancels a booking.
// DELETE /v1/booking/:booking_id
func (h *Handler) DeleteBooking(c echo.Context) error {
	msg, err := h.svc.DeleteBooking(c.Request().Context(), c.Param("booking_id"))
	if err != nil {
		return h.writeError(c, err, bookingNotFound)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": msg})
}
