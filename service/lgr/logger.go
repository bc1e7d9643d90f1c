package lgr

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
)

// Logger is the process-wide logger. It is ready to use as soon as the
// package is imported; call sites reach for lgr.Logger directly.
var Logger *slog.Logger

func init() {
	Logger = newLogger()
}

func newLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:       logLevel(),
		ReplaceAttr: replaceAttr,
	}

	// Dev gets a colorized human handler. Everything else gets JSON to
	// stdout and a rotated log file.
	env := os.Getenv("RUN_TIME_ENV")
	if env == "" || env == "dev" {
		return slog.New(contextHandler{newPrettyHandler(os.Stdout, opts)})
	}

	fileName := os.Getenv("LOG_FILE")
	if fileName == "" {
		fileName = "cm-go.log"
	}

	w := io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   fileName,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     7, // days
		Compress:   true,
	})

	return slog.New(contextHandler{slog.NewJSONHandler(w, opts)})
}

func logLevel() slog.Level {
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
