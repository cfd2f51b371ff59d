package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/photogeo/core/config"
	"github.com/m3rciful/photogeo/core/logger"
	tghelpers "github.com/m3rciful/photogeo/core/telegram/helpers"
	tgsender "github.com/m3rciful/photogeo/core/telegram/sender"
)

// Middleware describes a global bot middleware registered via bot.Use.
type Middleware struct {
	Name string
	Use  func(next tele.HandlerFunc) tele.HandlerFunc
}

// Route binds a handler to an endpoint accepted by tele.Bot.Handle.
type Route struct {
	Endpoint any
	Handler  tele.HandlerFunc
}

// RunOptions controls RunTelegram.
type RunOptions struct {
	Config   *coreconfig.Config
	Registry *Registry

	DispatcherOptions tgsender.Options
	Dispatcher        *tgsender.Dispatcher

	Middlewares []Middleware
	// Routes is called once the bot exists so handlers can close over it.
	Routes func(rt Runtime) []Route

	DisableWebhookCleanup bool

	OnStart func(ctx context.Context, rt Runtime) error
	OnStop  func(ctx context.Context, rt Runtime) error
}

// Runtime exposes runtime components to route builders and lifecycle hooks.
type Runtime struct {
	Bot        *tele.Bot
	Dispatcher *tgsender.Dispatcher
	Registry   *Registry
}

// stopTimeout bounds OnStop, which runs after ctx is already cancelled.
const stopTimeout = 10 * time.Second

// RunTelegram builds the bot, wires routes and serves updates until ctx is
// done. Updates are handled concurrently, one goroutine each.
func RunTelegram(ctx context.Context, opts RunOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := opts.Config
	if cfg == nil {
		return errors.New("telegram: nil config provided")
	}
	reg := opts.Registry
	if reg == nil {
		reg = NewRegistry()
	}

	client := BuildHTTPClient(HTTPClientOptions{
		Timeout: max(60*time.Second, time.Duration(cfg.Telegram.LongPollTimeoutSeconds+30)*time.Second),
		Retries: 3,
	})
	longpoll := strings.EqualFold(cfg.Telegram.RunMode, coreconfig.RunModeLongpoll)
	if cfg.Telegram.SkipUpdates || (longpoll && !opts.DisableWebhookCleanup) {
		cleanupWebhook(ctx, client, cfg.Telegram.Token, cfg.Telegram.SkipUpdates)
	}

	poller := BuildPoller(PollerOptions{
		RunMode:                cfg.Telegram.RunMode,
		LongPollTimeoutSeconds: cfg.Telegram.LongPollTimeoutSeconds,
		Webhook: WebhookOptions{
			Listen: cfg.Webhook.Listen,
			Port:   cfg.Webhook.Port,
			URL:    cfg.Webhook.URL,
		},
	})
	start := time.Now()
	bot, err := tele.NewBot(tele.Settings{
		Token:       cfg.Telegram.Token,
		Poller:      poller,
		Client:      client,
		Synchronous: false,
		OnError:     onHandlerError(ctx),
	})
	if err != nil {
		return fmt.Errorf("telegram: bot initialization failed: %w", err)
	}
	logMode(ctx, poller, time.Since(start))

	dispatcher := opts.Dispatcher
	if dispatcher == nil {
		dispatcher = tgsender.NewDispatcher(opts.DispatcherOptions)
	}
	tghelpers.SetDispatcher(dispatcher)
	tghelpers.SetBaseContext(ctx)
	defer func() {
		// Drain queued replies before the process exits.
		dispatcher.Close()
		tghelpers.SetDispatcher(nil)
		tghelpers.SetBaseContext(nil)
	}()

	rt := Runtime{Bot: bot, Dispatcher: dispatcher, Registry: reg}
	for _, mw := range opts.Middlewares {
		if mw.Use != nil {
			bot.Use(mw.Use)
		}
	}
	if opts.Routes != nil {
		for _, route := range opts.Routes(rt) {
			if route.Endpoint != nil && route.Handler != nil {
				bot.Handle(route.Endpoint, route.Handler)
			}
		}
	}
	InitBotCommands(ctx, bot, reg)

	if opts.OnStart != nil {
		if err := opts.OnStart(ctx, rt); err != nil {
			return err
		}
	}

	runErr := serve(ctx, bot)

	if opts.OnStop != nil {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		defer cancel()
		if err := opts.OnStop(stopCtx, rt); err != nil {
			return err
		}
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

// serve runs the poller until ctx is done or the bot stops on its own.
func serve(ctx context.Context, bot *tele.Bot) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		bot.Start()
	}()
	select {
	case <-ctx.Done():
		bot.Stop()
		<-done
		return ctx.Err()
	case <-done:
		return nil
	}
}

func onHandlerError(ctx context.Context) func(error, tele.Context) {
	return func(err error, c tele.Context) {
		hctx := ctx
		if c != nil {
			hctx = tghelpers.BuildContext(c)
		}
		logger.Error(hctx, "tg", "handler.error",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}

func logMode(ctx context.Context, poller tele.Poller, took time.Duration) {
	attrs := []slog.Attr{slog.Duration("duration", logger.RoundMS(took))}
	switch p := poller.(type) {
	case *tele.Webhook:
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeWebhook),
			slog.String("listen", p.Listen),
			slog.String("public_url", p.Endpoint.PublicURL),
		)
	case *tele.LongPoller:
		attrs = append(attrs,
			slog.String("mode", coreconfig.RunModeLongpoll),
			slog.Duration("poll_timeout", p.Timeout),
		)
	}
	logger.Info(ctx, "tg", "mode", attrs...)
}

func cleanupWebhook(ctx context.Context, client *http.Client, token string, dropPending bool) {
	if err := deleteWebhook(ctx, client, token, dropPending); err != nil {
		logger.Warn(ctx, "tg", "delete_webhook",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return
	}
	logger.Info(ctx, "tg", "delete_webhook",
		slog.String("status", "ok"),
		slog.Bool("drop_pending", dropPending),
	)
}

// deleteWebhook runs before the bot exists, so it talks to the Bot API
// directly. A leftover webhook makes getUpdates fail.
func deleteWebhook(ctx context.Context, client *http.Client, token string, dropPending bool) error {
	if strings.TrimSpace(token) == "" {
		return errors.New("empty token")
	}
	endpoint := "https://api.telegram.org/bot" + token + "/deleteWebhook"
	form := url.Values{"drop_pending_updates": {fmt.Sprint(dropPending)}}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.New(tokenless(err.Error(), token))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("deleteWebhook: %s", tokenless(err.Error(), token))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deleteWebhook status: %s", resp.Status)
	}
	return nil
}

func tokenless(msg, token string) string {
	return strings.ReplaceAll(msg, token, "<redacted>")
}
