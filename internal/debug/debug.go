// Package debug carries the --debug flag through contexts and configures slog.
package debug

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
)

type contextKey string

const debugKey contextKey = "debug_enabled"

// LogFormatEnv selects the log handler: "text" (default) or "json".
const LogFormatEnv = "GEOPOST_LOG_FORMAT"

// WithDebug returns a context with debug mode enabled/disabled.
func WithDebug(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, debugKey, enabled)
}

// IsEnabled returns true if debug mode is enabled in the context.
func IsEnabled(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	if v, ok := ctx.Value(debugKey).(bool); ok {
		return v
	}
	return false
}

// SetupLogger installs the default logger on stderr. Warnings and errors
// are always shown; --debug adds request tracing.
func SetupLogger(debugEnabled bool) {
	slog.SetDefault(NewLogger(os.Stderr, debugEnabled, os.Getenv(LogFormatEnv)))
}

// NewLogger builds a logger writing to w in the given format.
func NewLogger(w io.Writer, debugEnabled bool, format string) *slog.Logger {
	level := slog.LevelWarn
	if debugEnabled {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactAttr,
	}

	var handler slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

var sensitiveKeys = map[string]bool{
	"password":      true,
	"client_secret": true,
	"authorization": true,
	"client-secret": true,
}

// RedactHeader masks credentials carried in request headers.
func RedactHeader(name, value string) string {
	switch http.CanonicalHeaderKey(name) {
	case "Authorization", "Client-Secret", "Cookie", "Proxy-Authorization":
		if value == "" {
			return ""
		}
		return "[REDACTED]"
	default:
		return value
	}
}

// redactAttr masks attributes whose key names a secret.
func redactAttr(_ []string, a slog.Attr) slog.Attr {
	if sensitiveKeys[strings.ToLower(a.Key)] {
		return slog.String(a.Key, "[REDACTED]")
	}
	return a
}
