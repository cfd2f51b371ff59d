package router

import (
	"time"

	tg "github.com/m3rciful/photogeo/core/telegram"
	"github.com/m3rciful/photogeo/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// MessageRoutes binds one handler to every given endpoint (tele.OnPhoto,
// tele.OnText, ...). The handler name in summaries is derived from the endpoint.
func MessageRoutes(handler tele.HandlerFunc, endpoints ...string) []tg.Route {
	if handler == nil {
		return nil
	}
	routes := make([]tg.Route, 0, len(endpoints))
	for _, ep := range endpoints {
		name := normalizeHandlerName(ep)
		h := func(c tele.Context) error {
			start := time.Now()
			return handleWithSummary(c, name, start, func() error {
				return handler(c)
			})
		}
		routes = append(routes, tg.Route{
			Endpoint: ep,
			Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(h)),
		})
	}
	return routes
}
