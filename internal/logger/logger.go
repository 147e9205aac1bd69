package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu            sync.RWMutex
	defaultLogger *slog.Logger
)

// Initialize installs the process-wide logger writing to stdout.
// format is "json" or "text"; unknown levels fall back to info.
func Initialize(level, format string) {
	InitializeWithWriter(os.Stdout, level, format)
}

// InitializeWithWriter is Initialize with an explicit sink, used by tests.
func InitializeWithWriter(w io.Writer, level, format string) {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if strings.EqualFold(format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	l := slog.New(handler)
	mu.Lock()
	defaultLogger = l
	mu.Unlock()
	slog.SetDefault(l)
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Get returns the process logger, initialising a text/info one on first use.
func Get() *slog.Logger {
	mu.RLock()
	l := defaultLogger
	mu.RUnlock()
	if l == nil {
		Initialize("info", "text")
		mu.RLock()
		l = defaultLogger
		mu.RUnlock()
	}
	return l
}

func Debug(msg string, args ...any) { Get().Debug(msg, args...) }
func Info(msg string, args ...any)  { Get().Info(msg, args...) }
func Warn(msg string, args ...any)  { Get().Warn(msg, args...) }
func Error(msg string, args ...any) { Get().Error(msg, args...) }

func InfoContext(ctx context.Context, msg string, args ...any) {
	Get().InfoContext(ctx, msg, args...)
}

func ErrorContext(ctx context.Context, msg string, args ...any) {
	Get().ErrorContext(ctx, msg, args...)
}

// WithComponent returns a child logger tagged with the owning component,
// e.g. "reaper" or "notifier".
func WithComponent(name string) *slog.Logger {
	return Get().With("component", name)
}

// WithBooking returns a child logger tagged with a booking id.
func WithBooking(bookingID string) *slog.Logger {
	return Get().With("booking_id", bookingID)
}

// EnterMethod and the helpers below trace service and repository calls at
// debug level; failures are promoted to error.
func EnterMethod(methodName string, args ...any) {
	Get().Debug("→ enter", prepend(args, "method", methodName)...)
}

func ExitMethod(methodName string, args ...any) {
	Get().Debug("← exit", prepend(args, "method", methodName)...)
}

func ExitMethodWithError(methodName string, err error, args ...any) {
	Get().Error("← exit with error", prepend(args, "method", methodName, "error", err)...)
}

func DatabaseCall(operation, query string, args ...any) {
	Get().Debug("→ db", prepend(args, "operation", operation, "query", query)...)
}

func DatabaseResult(operation string, rowsAffected int64, err error, args ...any) {
	kv := prepend(args, "operation", operation, "rows_affected", rowsAffected)
	if err != nil {
		Get().Error("← db failed", append(kv, "error", err)...)
		return
	}
	Get().Debug("← db ok", kv...)
}

func ExternalServiceCall(service, operation string, args ...any) {
	Get().Debug("→ external", prepend(args, "service", service, "operation", operation)...)
}

func ExternalServiceResult(service, operation string, err error, args ...any) {
	kv := prepend(args, "service", service, "operation", operation)
	if err != nil {
		Get().Error("← external failed", append(kv, "error", err)...)
		return
	}
	Get().Debug("← external ok", kv...)
}

func prepend(args []any, head ...any) []any {
	out := make([]any, 0, len(head)+len(args))
	out = append(out, head...)
	return append(out, args...)
}
