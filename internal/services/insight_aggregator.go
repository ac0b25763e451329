package services

import (
	"context"
	"log/slog"

	"companion/internal/models"

	"golang.org/x/sync/errgroup"
)

// InsightAggregator gathers a bounded window of a user's history from the
// four history sources. Reads are best-effort: a failing source is tagged
// unavailable and the others still return.
type InsightAggregator struct {
	store   HistoryStore
	metrics *Metrics
}

// NewInsightAggregator creates a new aggregator over store
func NewInsightAggregator(store HistoryStore, metrics *Metrics) *InsightAggregator {
	return &InsightAggregator{
		store:   store,
		metrics: metrics,
	}
}

// Gather reads all four sources concurrently. It never returns an error;
// per-source failures are carried in the result.
func (a *InsightAggregator) Gather(ctx context.Context, userID string) models.UserInsights {
	var insights models.UserInsights
	var g errgroup.Group

	g.Go(func() error {
		rows, err := a.store.ListValueRatings(ctx, userID, models.SourceValues.Limit())
		insights.Values = models.NewSourceResult(rows, err)
		a.record(ctx, models.SourceValues, insights.Values.State, err)
		return nil
	})

	g.Go(func() error {
		rows, err := a.store.ListGoals(ctx, userID, models.SourceGoals.Limit())
		insights.Goals = models.NewSourceResult(rows, err)
		a.record(ctx, models.SourceGoals, insights.Goals.State, err)
		return nil
	})

	g.Go(func() error {
		rows, err := a.store.ListReflections(ctx, userID, models.SourceReflections.Limit())
		insights.Reflections = models.NewSourceResult(rows, err)
		a.record(ctx, models.SourceReflections, insights.Reflections.State, err)
		return nil
	})

	g.Go(func() error {
		rows, err := a.store.ListVisionItems(ctx, userID, models.SourceVisions.Limit())
		insights.Visions = models.NewSourceResult(rows, err)
		a.record(ctx, models.SourceVisions, insights.Visions.State, err)
		return nil
	})

	// Every goroutine returns nil
	_ = g.Wait()

	return insights
}

func (a *InsightAggregator) record(ctx context.Context, source models.HistorySource, state models.SourceState, err error) {
	a.metrics.RecordHistoryRead(string(source), string(state))
	if err != nil {
		slog.WarnContext(ctx, "history source unavailable, treating as empty",
			"source", string(source),
			"backend", a.store.Name(),
			"error", err,
		)
	}
}
