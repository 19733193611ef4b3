package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

var log *slog.Logger

// Init installs the process-wide JSON logger writing to stdout.
func Init() {
	log = New(NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: levelFromEnv()}))
	slog.SetDefault(log)
}

func New(h slog.Handler) *slog.Logger {
	return slog.New(h)
}

func NewJSONHandler(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
	return slog.NewJSONHandler(w, opts)
}

func levelFromEnv() slog.Level {
	switch os.Getenv("LOG_LEVEL") {
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

func get() *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log
}

func Info(msg string, args ...any) {
	get().Info(msg, args...)
}

func Infof(format string, v ...any) {
	get().Info(fmt.Sprintf(format, v...))
}

func Warn(msg string, args ...any) {
	get().Warn(msg, args...)
}

func Error(msg string, args ...any) {
	get().Error(msg, args...)
}

func Errorf(format string, v ...any) {
	get().Error(fmt.Sprintf(format, v...))
}

func Debug(msg string, args ...any) {
	get().Debug(msg, args...)
}

func Fatal(msg string, args ...any) {
	get().Log(context.Background(), slog.LevelError, msg, args...)
	os.Exit(1)
}

func Fatalf(format string, v ...any) {
	Fatal(fmt.Sprintf(format, v...))
}

// WithFields returns a child logger carrying fields on every entry.
func WithFields(fields map[string]any) *slog.Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return get().With(args...)
}
