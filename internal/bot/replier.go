package bot

import (
	"context"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/photogeo/core/logger"
	tghelpers "github.com/m3rciful/photogeo/core/telegram/helpers"
	"github.com/m3rciful/photogeo/internal/intake"
)

// MessageSender is the part of *tele.Bot used to send replies.
type MessageSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Replier renders replies and hands them to the outbound dispatcher, which
// preserves per-chat order.
type Replier struct {
	bot MessageSender
}

// NewReplier returns a Replier sending through bot.
func NewReplier(bot MessageSender) *Replier {
	return &Replier{bot: bot}
}

// Reply enqueues r for its chat.
func (r *Replier) Reply(ctx context.Context, reply intake.SendReply) error {
	text, markup := Render(reply)
	to := tele.ChatID(reply.ChatID)
	logger.Debug(ctx, "tg.sender", "reply.enqueue",
		slog.Int64("chat_id", reply.ChatID),
		slog.String("reply", string(reply.Reply)),
	)
	return tghelpers.Enqueue(ctx, reply.ChatID, "send.reply", "sendMessage", func() error {
		var err error
		if markup != nil {
			_, err = r.bot.Send(to, text, markup)
		} else {
			_, err = r.bot.Send(to, text)
		}
		return err
	})
}
