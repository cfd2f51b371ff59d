package bot

import (
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/photogeo/core/logger"
	tghelpers "github.com/m3rciful/photogeo/core/telegram/helpers"
	"github.com/m3rciful/photogeo/core/telegram/router"
	"github.com/m3rciful/photogeo/internal/intake"
	"github.com/m3rciful/photogeo/internal/pipeline"
)

// Handler feeds every inbound message into the pipeline.
type Handler struct {
	pipeline *pipeline.Pipeline
}

// NewHandler returns a Handler for p.
func NewHandler(p *pipeline.Pipeline) *Handler {
	return &Handler{pipeline: p}
}

// Handle is a tele.HandlerFunc. Refused input is answered by the pipeline
// itself, so only transport failures surface as errors.
func (h *Handler) Handle(c tele.Context) error {
	ev, ok := EventFrom(c)
	if !ok || h.pipeline == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	out, err := h.pipeline.Handle(ctx, ev)
	switch {
	case err != nil:
	case out.Suppressed:
		router.SetOutcome(c, "suppressed", "")
		logger.Debug(ctx, "intake", "album.follower",
			slog.String("group_id", ev.GroupID),
		)
	case out.Rejection != nil:
		router.SetOutcome(c, "rejected", intake.Code(out.Rejection))
	}
	return err
}
