// Package stats отдает агрегированную статистику использования бота.
package stats

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/msviridov/ddu-penalty-bot/internal/http/response"
	"github.com/msviridov/ddu-penalty-bot/internal/lib/sl"
	"github.com/msviridov/ddu-penalty-bot/internal/models"
)

// StatsProvider источник статистики.
type StatsProvider interface {
	GetStatistics(ctx context.Context) (models.StatsSummary, error)
}

type Handler struct {
	log      *slog.Logger
	provider StatsProvider
}

func New(log *slog.Logger, provider StatsProvider) *Handler {
	return &Handler{
		log:      log,
		provider: provider,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.stats"
	log := h.log.With(slog.String("op", op))

	summary, err := h.provider.GetStatistics(r.Context())
	if err != nil {
		log.Error("failed to collect statistics", sl.Err(err))
		w.WriteHeader(http.StatusInternalServerError)
		render.JSON(w, r, response.Error("failed to collect statistics"))
		return
	}

	render.JSON(w, r, response.OKWithData(summary))
}
