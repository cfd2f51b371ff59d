package logger

import (
	"log/slog"
	"strings"
)

// Level names as they appear in the level field.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// levelName buckets custom levels (slog.LevelInfo+2 and so on) into the
// nearest standard name below them.
func levelName(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return LevelDebug
	case l < slog.LevelWarn:
		return LevelInfo
	case l < slog.LevelError:
		return LevelWarn
	default:
		return LevelError
	}
}

// parseLevel reads a configured level; unknown names report false.
func parseLevel(name string) (slog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// knownOutcomes are the handler summary outcomes; anything else is dropped.
var knownOutcomes = map[string]bool{
	"ok":           true,
	"fail":         true,
	"cancelled":    true,
	"rate_limited": true,
	"rejected":     true,
	"suppressed":   true,
}

func normalizeStatus(status string) string {
	return strings.ToLower(strings.TrimSpace(status))
}

func normalizeOutcome(outcome string) (string, bool) {
	outcome = strings.ToLower(strings.TrimSpace(outcome))
	return outcome, knownOutcomes[outcome]
}

var defaultKeyOrder = []string{
	"ts",
	"level",
	"component",
	"event",
	"status",
	"rid",
	"rid_full",
	"ts_unix_nano",
	"update_id",
	"user_id",
	"chat_id",
	"handler",
	"op",
	"outcome",
	"from",
	"state",
	"kind",
	"group_id",
	"bundle_size",
	"directives",
	"reply",
	"photo_ref",
	"record_id",
	"duration_ms",
	"mode",
	"listen",
	"public_url",
	"http_code",
	"driver",
	"db",
	"host",
	"port",
	"err",
	"err_code",
	"cause",
	"retryable",
	"attempts",
	"backoff_ms",
	"rate_limited",
	"pending_count",
}
