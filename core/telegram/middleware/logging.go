package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/photogeo/core/logger"
	tghelpers "github.com/m3rciful/photogeo/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// recentUpdates keeps a short-lived set of processed update IDs to avoid double logging.
var (
	recentMu     sync.Mutex
	recentUpdate = make(map[int]time.Time)
	keepFor      = 10 * time.Second
)

func alreadyLogged(updateID int) bool {
	now := time.Now()
	recentMu.Lock()
	defer recentMu.Unlock()
	for id, ts := range recentUpdate {
		if now.Sub(ts) > keepFor {
			delete(recentUpdate, id)
		}
	}
	if _, ok := recentUpdate[updateID]; ok {
		return true
	}
	recentUpdate[updateID] = now
	return false
}

// LoggerMiddleware stores the per-update context (rid, update/user/chat ids)
// and logs a single sampled receipt line per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		upd := c.Update()

		var chatID, userID int64
		if chat := c.Chat(); chat != nil {
			chatID = chat.ID
		}
		if user := c.Sender(); user != nil {
			userID = user.ID
		}
		rid := logger.BuildRID(upd.ID, chatID, userID)
		c.Set("rid", rid)
		c.Set("update_start", time.Now())
		ctx := tghelpers.BuildContext(c)

		if logger.ShouldSampleDebug() && !alreadyLogged(upd.ID) {
			attrs := []slog.Attr{
				slog.String("status", "ok"),
				slog.String("kind", MessageKind(c.Message())),
			}
			if msg := c.Message(); msg != nil {
				if msg.AlbumID != "" {
					attrs = append(attrs, slog.String("group_id", msg.AlbumID))
				}
				if t := msg.Text; t != "" {
					attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(t, 256)))
				}
			}
			if user := c.Sender(); user != nil && user.LanguageCode != "" {
				attrs = append(attrs, slog.String("lang", user.LanguageCode))
			}
			logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", attrs...)
		}

		return next(c)
	}
}

// MessageKind names the payload of msg for logs and rate limit exclusions.
func MessageKind(msg *tele.Message) string {
	switch {
	case msg == nil:
		return "other"
	case msg.Photo != nil:
		return "photo"
	case msg.Location != nil:
		return "location"
	case len(msg.Text) > 0 && msg.Text[0] == '/':
		return "command"
	case msg.Text != "":
		return "text"
	case msg.Document != nil:
		return "document"
	case msg.Video != nil:
		return "video"
	default:
		return "other"
	}
}
