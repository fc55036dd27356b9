package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

const fallbackModuleName = "productcast"

// setupLogger installs the process-wide slog handler. LOG_LEVEL=debug
// switches from JSON on stderr to tinted text with source locations on
// stdout.
func setupLogger(rawLevel string) error {
	level := slog.LevelInfo
	if rawLevel != "" {
		if err := level.UnmarshalText([]byte(rawLevel)); err != nil {
			return fmt.Errorf("invalid log level %q: %w", rawLevel, err)
		}
	}

	if level == slog.LevelDebug {
		slog.SetDefault(slog.New(newDebugHandler(os.Stdout, isatty.IsTerminal(os.Stdout.Fd()))))
		slog.Debug("debug logging enabled")
		return nil
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func newDebugHandler(w io.Writer, color bool) slog.Handler {
	module := "/" + moduleName() + "/"

	return tint.NewHandler(w, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.TimeOnly,
		AddSource:  true,
		NoColor:    !color,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if source, ok := a.Value.Any().(*slog.Source); ok && a.Key == slog.SourceKey {
				source.File = trimSource(source.File, module)
			}
			if err, ok := a.Value.Any().(error); ok {
				tinted := tint.Err(err)
				tinted.Key = a.Key
				return tinted
			}
			return a
		},
	})
}

// moduleName is the last element of the main module path.
func moduleName() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Path == "" {
		return fallbackModuleName
	}
	path := info.Main.Path
	return path[strings.LastIndex(path, "/")+1:]
}

// trimSource shortens an absolute source path to its module relative form.
func trimSource(file, module string) string {
	if idx := strings.LastIndex(file, module); idx != -1 {
		return file[idx+len(module):]
	}
	for _, marker := range []string{"/pkg/mod/", "/go/src/", "/src/"} {
		if idx := strings.LastIndex(file, marker); idx != -1 {
			return file[idx+len(marker):]
		}
	}
	return file
}
