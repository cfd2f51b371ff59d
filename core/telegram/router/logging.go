package router

import (
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/m3rciful/photogeo/core/logger"
	tghelpers "github.com/m3rciful/photogeo/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

const (
	outcomeKey = "router.outcome"
	codeKey    = "router.err_code"
)

// SetOutcome lets a handler that answered the user without failing report a
// more precise outcome ("rejected", "suppressed") and an error code for its
// summary line.
func SetOutcome(c tele.Context, outcome, errCode string) {
	c.Set(outcomeKey, outcome)
	if errCode != "" {
		c.Set(codeKey, errCode)
	}
}

func handleWithSummary(c tele.Context, handlerName string, start time.Time, fn func() error) error {
	tghelpers.WithHandler(c, handlerName)
	err := fn()
	logHandlerSummary(c, handlerName, start, err)
	return err
}

func logHandlerSummary(c tele.Context, handlerName string, start time.Time, err error) {
	ctx := tghelpers.WithHandler(c, handlerName)

	status, outcome := "ok", "ok"
	if err != nil {
		status, outcome = "fail", "fail"
	} else if o, _ := c.Get(outcomeKey).(string); o != "" {
		outcome = o
	}

	attrs := []slog.Attr{
		slog.String("status", status),
		slog.String("handler", handlerName),
		slog.String("outcome", outcome),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	level := slog.LevelInfo
	switch {
	case err != nil:
		level = slog.LevelWarn
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", deriveErrorCode(err)),
			slog.String("cause", handlerName),
		)
	default:
		if code, _ := c.Get(codeKey).(string); code != "" {
			attrs = append(attrs, slog.String("err_code", code))
		}
	}
	logger.LogEvent(ctx, logger.Component("tg"), level, "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.TrimPrefix(name, "\a")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

// deriveErrorCode prefers a Code() anywhere in the chain, then the concrete type name.
func deriveErrorCode(err error) string {
	if err == nil {
		return ""
	}
	type coder interface{ Code() string }
	var c coder
	if errors.As(err, &c) {
		if code := strings.TrimSpace(c.Code()); code != "" {
			return strings.ToUpper(strings.ReplaceAll(code, " ", "_"))
		}
	}
	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t != nil && t.Name() != "" {
		return strings.ToUpper(strings.ReplaceAll(t.Name(), " ", "_"))
	}
	return "UNKNOWN_ERROR"
}
