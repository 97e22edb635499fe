package v1

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/ragbook/internal/domain"
)

// UploadFile extracts and indexes an uploaded document.
// POST /v1/upload/file?strategy=fixed|simple|paragraph (multipart field "file")
func (h *Handler) UploadFile(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return JSONError(c, http.StatusBadRequest, CodeInvalidInput, "file is required")
	}
	if h.maxUploadBytes > 0 && fh.Size > h.maxUploadBytes {
		return JSONError(c, http.StatusBadRequest, CodeInvalidInput,
			fmt.Sprintf("file exceeds %d bytes", h.maxUploadBytes))
	}

	f, err := fh.Open()
	if err != nil {
		return JSONError(c, http.StatusBadRequest, CodeInvalidInput, "failed to read file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return JSONError(c, http.StatusBadRequest, CodeInvalidInput, "failed to read file")
	}

	strategy := domain.ChunkStrategy(c.QueryParam("strategy"))
	resp, err := h.svc.Upload(c.Request().Context(), fh.Filename, data, strategy)
	if err != nil {
		return h.writeError(c, err, "")
	}
	return c.JSON(http.StatusOK, resp)
}
