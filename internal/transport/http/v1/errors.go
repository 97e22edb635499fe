package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/ragbook/internal/domain"
)

// Error codes returned in error bodies.
const (
	CodeInvalidInput = "invalid_input"
	CodeNotFound     = "not_found"
	CodePersistence  = "persistence_failure"
	CodeRateLimited  = "rate_limited"
	CodeInternal     = "internal_error"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail names the failure.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSONError writes an error body.
func JSONError(c echo.Context, status int, code, message string) error {
	return c.JSON(status, ErrorBody{Error: ErrorDetail{Code: code, Message: message}})
}

// writeError maps a service error onto the error taxonomy. Only validation
// messages reach the client verbatim.
func (h *Handler) writeError(c echo.Context, err error, notFound string) error {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		return JSONError(c, http.StatusBadRequest, CodeInvalidInput, verr.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		return JSONError(c, http.StatusBadRequest, CodeInvalidInput, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return JSONError(c, http.StatusNotFound, CodeNotFound, notFound)
	case errors.Is(err, domain.ErrPersistence):
		h.log.WithError(err).Error("request failed to persist")
		return JSONError(c, http.StatusInternalServerError, CodePersistence, "failed to store data")
	default:
		h.log.WithError(err).Error("request failed")
		return JSONError(c, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}
