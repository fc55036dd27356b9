package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/kaymio/productcast/service"
	"github.com/kaymio/productcast/storage"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/oklog/ulid/v2"
)

func main() {
	if err := run(); err != nil {
		slog.Error("productcast stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := setupLogger(os.Getenv("LOG_LEVEL")); err != nil {
		return err
	}

	config, err := service.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	db, err := storage.New(config.DBPath)
	if err != nil {
		return fmt.Errorf("open publish history: %w", err)
	}
	defer db.Close()

	svc, err := service.New(db, config)
	if err != nil {
		return fmt.Errorf("initialize service: %w", err)
	}

	e := newServer(config)
	svc.RegisterRoutes(e)

	slog.Info("productcast starting",
		"url", fmt.Sprintf("http://localhost:%s", config.Port),
		"environment", config.Environment,
		"database", config.DBPath,
		"storage", config.Storage.Root,
	)
	return e.Start(":" + config.Port)
}

func newServer(config *service.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = !config.IsProduction()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return ulid.Make().String() },
	}))
	e.Use(middleware.BodyLimit(strconv.FormatInt(config.Upload.MaxSize, 10)))
	e.Use(requestLogger)
	e.Use(securityHeaders)

	return e
}

// requestLogger logs one line per request after the error handler has run,
// so the status reflects the final response.
func requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			c.Error(err)
		}

		res := c.Response()
		level := slog.LevelInfo
		if res.Status >= 500 {
			level = slog.LevelError
		}
		slog.Log(c.Request().Context(), level, "request handled",
			"method", c.Request().Method,
			"path", c.Request().URL.Path,
			"status", res.Status,
			"duration", time.Since(start),
			"ip", c.RealIP(),
			"request_id", res.Header().Get(echo.HeaderXRequestID),
		)
		return nil
	}
}

func securityHeaders(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		return next(c)
	}
}
