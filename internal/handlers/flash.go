package handlers

import (
	"fmt"
	"log/slog"

	"github.com/kaymio/productcast/views/home"
	"github.com/labstack/echo/v4"
)

const (
	flashError   = "error"
	flashInfo    = "info"
	flashSuccess = "success"

	flashesKey = "flashes"
)

// flash queues a message for the page rendered by this request.
func flash(c echo.Context, level, format string, args ...any) {
	message := format
	if len(args) > 0 {
		message = fmt.Sprintf(format, args...)
	}
	if level == flashError {
		slog.Debug("workflow flash", "path", c.Path(), "message", message)
	}
	queued, _ := c.Get(flashesKey).([]home.Flash)
	c.Set(flashesKey, append(queued, home.Flash{Level: level, Message: message}))
}

func flashes(c echo.Context) []home.Flash {
	queued, _ := c.Get(flashesKey).([]home.Flash)
	return queued
}
