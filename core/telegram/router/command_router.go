package router

import (
	"context"
	"log/slog"
	"time"

	"github.com/m3rciful/photogeo/core/logger"
	tg "github.com/m3rciful/photogeo/core/telegram"
	"github.com/m3rciful/photogeo/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// CommandRoutes prepares one route per registered command (aliases included),
// wrapped with the shared middleware and a handler summary log line.
func CommandRoutes(reg *tg.Registry) []tg.Route {
	if reg == nil {
		return nil
	}

	routes := make([]tg.Route, 0, len(reg.Commands()))
	for cmd, def := range reg.Commands() {
		name := normalizeHandlerName(cmd)
		inner := def.Handler
		h := func(c tele.Context) error {
			start := time.Now()
			return handleWithSummary(c, name, start, func() error {
				return inner(c)
			})
		}
		h = middleware.RecoverMiddleware(middleware.LoggerMiddleware(h))
		routes = append(routes, tg.Route{Endpoint: cmd, Handler: h})
		for _, alias := range def.Aliases {
			if alias == "" {
				continue
			}
			if alias[0] != '/' {
				alias = "/" + alias
			}
			routes = append(routes, tg.Route{Endpoint: alias, Handler: h})
		}
	}

	logger.Info(context.Background(), "tg.wire", "tg.wire",
		slog.String("status", "ok"),
		slog.Int("count", len(routes)),
	)

	return routes
}
