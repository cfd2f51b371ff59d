package helpers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/photogeo/core/logger"
	"github.com/m3rciful/photogeo/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

// Dispatcher returns the sender wired by SetDispatcher, if any.
func Dispatcher() *sender.Dispatcher {
	return globalDispatcher.Load()
}

// Enqueue runs fn through the dispatcher keyed by chatID, or inline when no
// dispatcher is wired or its queue cannot take the job.
func Enqueue(ctx context.Context, chatID int64, action, endpoint string, run func() error) error {
	disp := Dispatcher()
	if disp == nil {
		return run()
	}
	if err := disp.Enqueue(ctx, chatID, action, endpoint, run); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.Int64("chat_id", chatID),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

// SendText sends raw text (no parse mode) to the current chat.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	var sendOpts *tele.SendOptions
	if len(opts) > 0 {
		sendOpts = opts[0]
	}
	var chatID int64
	if chat := c.Chat(); chat != nil {
		chatID = chat.ID
	}
	return Enqueue(BuildContext(c), chatID, "send.text", "sendMessage", func() error {
		if sendOpts != nil {
			return c.Send(text, sendOpts)
		}
		return c.Send(text)
	})
}
