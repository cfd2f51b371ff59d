package helpers

import (
	"context"
	"sync/atomic"

	"github.com/m3rciful/photogeo/core/logger"

	tele "gopkg.in/telebot.v4"
)

const contextKey = "logger_ctx"

type baseHolder struct{ ctx context.Context }

var base atomic.Pointer[baseHolder]

// SetBaseContext sets the parent of every per-update context, normally the
// run context so that in-flight handlers observe shutdown. nil resets it.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		base.Store(nil)
		return
	}
	base.Store(&baseHolder{ctx: ctx})
}

func baseContext() context.Context {
	if h := base.Load(); h != nil {
		return h.ctx
	}
	return context.Background()
}

// StoreContext attaches reusable context to tele.Context for downstream helpers.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(contextKey, ctx)
}

// ContextFrom returns the context previously stored by middleware.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	if ctx, ok := c.Get(contextKey).(context.Context); ok {
		return ctx, true
	}
	return nil, false
}

// BuildContext returns the per-update context, creating it on first use with
// rid and update/user/chat metadata for service logging.
func BuildContext(c tele.Context) context.Context {
	if cached, ok := ContextFrom(c); ok {
		return cached
	}

	var chatID, userID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	if user := c.Sender(); user != nil {
		userID = user.ID
	}
	updateID := c.Update().ID

	rid, _ := c.Get("rid").(string)
	if rid == "" {
		rid = logger.BuildRID(updateID, chatID, userID)
	}

	ctx := logger.WithRID(baseContext(), rid)
	ctx = logger.WithUpdateMeta(ctx, updateID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.Component("tg"))
	StoreContext(c, ctx)
	return ctx
}

// WithHandler enriches stored context with handler metadata for downstream logs.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}
