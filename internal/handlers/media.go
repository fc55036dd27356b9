package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HandleMedia serves stored uploads, generated images and videos.
func (h *WorkflowHandler) HandleMedia(c echo.Context) error {
	path, ok := h.deps.Media.Resolve(c.Param("*"))
	if !ok {
		return echo.ErrNotFound
	}
	return c.File(path)
}

func HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
