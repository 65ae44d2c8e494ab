package handlers

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/Proton-105/donation-bot/internal/domain"
	"github.com/Proton-105/donation-bot/pkg/metrics"
)

// StatsSource provides the aggregate donation figures.
type StatsSource interface {
	Stats(ctx context.Context) (*domain.Stats, error)
}

// StatsSnapshotHandler publishes donation aggregates as Prometheus gauges.
type StatsSnapshotHandler struct {
	stats StatsSource
	log   *slog.Logger
}

func NewStatsSnapshotHandler(stats StatsSource, log *slog.Logger) *StatsSnapshotHandler {
	return &StatsSnapshotHandler{stats: stats, log: log}
}

func (h *StatsSnapshotHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	stats, err := h.stats.Stats(ctx)
	if err != nil {
		if h.log != nil {
			h.log.ErrorContext(ctx, "stats snapshot: failed to load stats", slog.String("task_type", t.Type()), slog.Any("error", err))
		}
		return err
	}

	raised := make(map[string]float64, len(stats.RaisedByCurrency))
	for currency, amount := range stats.RaisedByCurrency {
		raised[string(currency)] = amount.InexactFloat64()
	}
	metrics.SetDonationStats(raised, stats.PendingReviews, stats.TotalDonors)

	if h.log != nil {
		h.log.DebugContext(ctx, "stats snapshot updated",
			slog.Int("pending_reviews", stats.PendingReviews),
			slog.Int("donors", stats.TotalDonors),
		)
	}

	return nil
}
