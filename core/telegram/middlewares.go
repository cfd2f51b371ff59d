package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/photogeo/core/config"
	"github.com/m3rciful/photogeo/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares builds the shared middleware chain for bots: panic
// recovery first, then the optional per-user rate limit.
func DefaultMiddlewares(cfg *coreconfig.Config, onLimited tele.HandlerFunc) []Middleware {
	mws := []Middleware{
		{Name: "recover", Use: middleware.RecoverMiddleware},
	}
	if cfg == nil {
		return mws
	}

	interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
	if interval > 0 {
		ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates))
		for _, t := range cfg.RateLimit.ExcludeUpdates {
			ex[strings.ToLower(t)] = struct{}{}
		}
		mws = append(mws, Middleware{
			Name: "rate_limit",
			Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
				Interval:  interval,
				Exclude:   ex,
				OnLimited: onLimited,
			}),
		})
	}
	return mws
}
