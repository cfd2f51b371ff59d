package bot

import (
	"context"
	"log/slog"

	"github.com/jmoiron/sqlx"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/photogeo/core/logger"
	coretelegram "github.com/m3rciful/photogeo/core/telegram"
	"github.com/m3rciful/photogeo/core/telegram/album"
	"github.com/m3rciful/photogeo/core/telegram/commands"
	tghelpers "github.com/m3rciful/photogeo/core/telegram/helpers"
	"github.com/m3rciful/photogeo/core/telegram/router"
	"github.com/m3rciful/photogeo/internal/config"
	"github.com/m3rciful/photogeo/internal/intake"
	"github.com/m3rciful/photogeo/internal/pipeline"
	"github.com/m3rciful/photogeo/internal/storage"
)

// MessageEndpoints lists every non-command update the bot answers. Anything
// that is neither a photo nor a location still reaches the state machine so
// the user is told what was expected.
var MessageEndpoints = []string{
	tele.OnPhoto,
	tele.OnLocation,
	tele.OnText,
	tele.OnVenue,
	tele.OnContact,
	tele.OnDocument,
	tele.OnVideo,
	tele.OnVideoNote,
	tele.OnAnimation,
	tele.OnAudio,
	tele.OnVoice,
	tele.OnSticker,
	tele.OnPoll,
	tele.OnDice,
}

var beginDescriptions = map[string]string{
	"/start": "Start sharing a photo",
	"/help":  "How this bot works",
}

const slowDownText = "Easy there! Please send one message at a time."

// App wires the intake pipeline to the Telegram runtime.
type App struct {
	cfg     *config.Config
	db      *sqlx.DB
	records *storage.Records
}

// NewApp returns an App persisting pairings in db.
func NewApp(cfg *config.Config, db *sqlx.DB) *App {
	return &App{cfg: cfg, db: db, records: storage.NewRecords(db)}
}

// NewPipeline assembles the pipeline around the given output collaborators.
func (a *App) NewPipeline(replier pipeline.Replier, downloader pipeline.Downloader) (*pipeline.Pipeline, error) {
	return pipeline.New(pipeline.Options{
		Albums:     album.New[intake.Event](album.Options{Latency: a.cfg.Intake.AlbumLatency()}),
		Machine:    intake.NewMachine(a.cfg.Intake.BeginCommands...),
		Replier:    replier,
		Downloader: downloader,
		Records:    a.records,
	})
}

// Registry registers every begin command with h.
func (a *App) Registry(h *Handler) *coretelegram.Registry {
	reg := coretelegram.NewRegistry()
	for _, cmd := range a.cfg.Intake.BeginCommands {
		desc, ok := beginDescriptions[cmd]
		if !ok {
			desc = "Start sharing a photo"
		}
		reg.RegisterCommand(cmd, commands.Command{Handler: h.Handle, Description: desc})
	}
	return reg
}

// TelegramRunOptions implements the runner's TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	opts := coretelegram.RunOptions{
		Config:      a.cfg.CoreConfig(),
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg.CoreConfig(), onLimited),
		OnStop: func(ctx context.Context, _ coretelegram.Runtime) error {
			if a.db == nil {
				return nil
			}
			if err := a.db.Close(); err != nil {
				logger.Warn(ctx, "db", "db.close",
					slog.String("status", "fail"),
					slog.String("err", err.Error()),
				)
				return err
			}
			return nil
		},
	}

	// Commands must be registered before RunTelegram publishes them, so the
	// handler is bound late to the bot created by the runtime.
	h := &Handler{}
	opts.Registry = a.Registry(h)
	opts.Routes = func(rt coretelegram.Runtime) []coretelegram.Route {
		p, err := a.NewPipeline(NewReplier(rt.Bot), NewDownloader(rt.Bot, a.cfg.Intake.DownloadDir))
		if err != nil {
			logger.Error(context.Background(), "app", "pipeline.init",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
			return nil
		}
		h.pipeline = p
		routes := router.CommandRoutes(rt.Registry)
		return append(routes, router.MessageRoutes(h.Handle, MessageEndpoints...)...)
	}
	return opts, nil
}

func onLimited(c tele.Context) error {
	return tghelpers.SendText(c, slowDownText)
}
