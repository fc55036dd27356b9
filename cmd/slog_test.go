package main

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTrimSource(t *testing.T) {
	tests := []struct {
		file string
		want string
	}{
		{"/home/dev/src/productcast/internal/state/store.go", "internal/state/store.go"},
		{"/root/go/pkg/mod/github.com/labstack/echo/v4@v4.13.3/echo.go", "github.com/labstack/echo/v4@v4.13.3/echo.go"},
		{"/opt/build/main.go", "/opt/build/main.go"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, trimSource(tt.file, "/productcast/"), tt.file)
	}
}

func TestSetupLoggerRejectsUnknownLevel(t *testing.T) {
	assert.Error(t, setupLogger("chatty"))
}

func TestDebugHandlerWritesPlainText(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newDebugHandler(&buf, false))

	logger.Debug("state saved", "error", errors.New("disk full"))

	out := buf.String()
	assert.Contains(t, out, "state saved")
	assert.Contains(t, out, "disk full")
	assert.NotContains(t, out, "\x1b[")
}
