// Package pipeline wires inbound events through media-group aggregation, the
// per-user session table and the intake state machine, and carries out the
// resulting directives with the output collaborators.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/m3rciful/photogeo/core/logger"
	"github.com/m3rciful/photogeo/core/telegram/album"
	"github.com/m3rciful/photogeo/core/telegram/state"
	"github.com/m3rciful/photogeo/internal/intake"
)

// Replier sends a rendered reply to a chat.
type Replier interface {
	Reply(ctx context.Context, r intake.SendReply) error
}

// Downloader fetches a photo and returns where it was stored.
type Downloader interface {
	Download(ctx context.Context, userID int64, assetRef string) (string, error)
}

// RecordWriter appends a completed pairing.
type RecordWriter interface {
	Append(ctx context.Context, rec intake.Record) (string, error)
}

// Options configures a Pipeline. Replier, Downloader and Records are required.
type Options struct {
	Albums   *album.Engine[intake.Event]
	Sessions *state.Store[intake.Session]
	Machine  *intake.Machine

	Replier    Replier
	Downloader Downloader
	Records    RecordWriter
}

// Pipeline is safe for concurrent use; every inbound event may run on its own goroutine.
type Pipeline struct {
	albums   *album.Engine[intake.Event]
	sessions *state.Store[intake.Session]
	machine  *intake.Machine

	replier    Replier
	downloader Downloader
	records    RecordWriter
}

// Outcome summarizes what happened to one event; it is used for logging and tests.
type Outcome struct {
	Suppressed bool
	BundleSize int
	From       state.State
	To         state.State
	Directives int
	RecordID   string
	// Rejection is the recovered intake error, if the input was refused or a
	// collaborator failed.
	Rejection error
}

// New validates options and fills defaults for the core components.
func New(opts Options) (*Pipeline, error) {
	if opts.Replier == nil || opts.Downloader == nil || opts.Records == nil {
		return nil, errors.New("pipeline: replier, downloader and records are required")
	}
	if opts.Albums == nil {
		opts.Albums = album.New[intake.Event](album.Options{})
	}
	if opts.Sessions == nil {
		opts.Sessions = intake.NewSessionStore()
	}
	if opts.Machine == nil {
		opts.Machine = intake.NewMachine()
	}
	return &Pipeline{
		albums:     opts.Albums,
		sessions:   opts.Sessions,
		machine:    opts.Machine,
		replier:    opts.Replier,
		downloader: opts.Downloader,
		records:    opts.Records,
	}, nil
}

// Sessions exposes the session table.
func (p *Pipeline) Sessions() *state.Store[intake.Session] {
	return p.sessions
}

// Albums exposes the aggregation engine.
func (p *Pipeline) Albums() *album.Engine[intake.Event] {
	return p.albums
}

// Handle processes one inbound event. Followers of an open media group return
// immediately with Outcome.Suppressed set. The returned error is non-nil only
// when a reply could not be handed to the transport.
func (p *Pipeline) Handle(ctx context.Context, ev intake.Event) (Outcome, error) {
	ctx = logger.WithGroupID(ctx, ev.GroupID)
	act := p.albums.Submit(ctx, ev.GroupID, ev)
	if !act.Delivered() {
		return Outcome{Suppressed: true}, nil
	}
	defer act.Release()

	in := intake.Input{Event: act.Item, Bundle: act.Bundle}
	out := Outcome{BundleSize: len(act.Bundle)}

	err := p.sessions.Update(ev.UserID, func(cur intake.Session) (intake.Session, error) {
		out.From = cur.State
		res := p.machine.Step(cur, in)
		out.Directives = len(res.Directives)
		out.Rejection = res.Rejection

		next, err := p.apply(ctx, cur, res, &out)
		out.To = next.State
		return next, err
	})

	attrs := []slog.Attr{
		slog.String("from", out.From.String()),
		slog.String("state", out.To.String()),
		slog.String("kind", string(ev.Kind)),
		slog.Int("bundle_size", out.BundleSize),
		slog.Int("directives", out.Directives),
	}
	if out.Rejection != nil {
		attrs = append(attrs, slog.String("err_code", intake.Code(out.Rejection)))
	}
	logger.Info(ctx, "intake", "intake.transition", attrs...)

	return out, err
}

// apply executes directives in order. A failed download keeps the user in
// AwaitingPhoto and a failed record write keeps them in AwaitingLocation;
// remaining directives are skipped and the user is told to retry.
func (p *Pipeline) apply(ctx context.Context, cur intake.Session, res intake.Result, out *Outcome) (intake.Session, error) {
	next := res.Session
	for _, d := range res.Directives {
		switch d := d.(type) {
		case intake.SendReply:
			if err := p.replier.Reply(ctx, d); err != nil {
				return next, fmt.Errorf("pipeline: reply %s: %w", d.Reply, err)
			}

		case intake.ScheduleDownload:
			start := time.Now()
			localRef, err := p.downloader.Download(ctx, d.UserID, d.AssetRef)
			if err != nil {
				logger.Warn(ctx, "pipeline", "pipeline.download.fail",
					slog.String("status", "fail"),
					slog.String("err", err.Error()),
					slog.Duration("duration", logger.RoundMS(time.Since(start))),
				)
				out.Rejection = intake.DownloadFailure(err)
				return cur, p.replyFailure(ctx, d.UserID, intake.ReplyDownloadFailed, res)
			}
			if next.PendingPhoto != nil {
				photo := *next.PendingPhoto
				photo.LocalRef = localRef
				next.PendingPhoto = &photo
			}
			logger.Debug(ctx, "pipeline", "pipeline.download",
				slog.String("status", "ok"),
				slog.String("photo_ref", localRef),
				slog.Duration("duration", logger.RoundMS(time.Since(start))),
			)

		case intake.ScheduleRecordWrite:
			id, err := p.records.Append(ctx, d.Record)
			if err != nil {
				logger.Warn(ctx, "pipeline", "pipeline.write.fail",
					slog.String("status", "fail"),
					slog.String("err", err.Error()),
				)
				out.Rejection = intake.WriteFailure(err)
				return cur, p.replyFailure(ctx, d.Record.UserID, intake.ReplyWriteFailed, res)
			}
			out.RecordID = id
		}
	}
	return next, nil
}

func (p *Pipeline) replyFailure(ctx context.Context, userID int64, r intake.Reply, res intake.Result) error {
	target := intake.SendReply{ChatID: userID, Reply: r}
	for _, d := range res.Directives {
		if sr, ok := d.(intake.SendReply); ok {
			target.ChatID = sr.ChatID
			target.Name = sr.Name
			break
		}
	}
	if err := p.replier.Reply(ctx, target); err != nil {
		return fmt.Errorf("pipeline: reply %s: %w", r, err)
	}
	return nil
}
