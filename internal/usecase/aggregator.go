package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
)

// Aggregator merges usage over an arbitrary window into per-app summaries.
type Aggregator struct {
	gate   *PermissionGate
	source domain.UsageSource
	names  nameResolver
	logger *zap.Logger
}

// NewAggregator creates a new usage aggregator.
func NewAggregator(
	gate *PermissionGate,
	source domain.UsageSource,
	registry domain.ApplicationRegistry,
	logger *zap.Logger,
) *Aggregator {
	return &Aggregator{
		gate:   gate,
		source: source,
		names:  newNameResolver(registry, logger),
		logger: logger,
	}
}

// Aggregate returns one summary per package with significant foreground time in window.
// The order of the result is unspecified.
func (a *Aggregator) Aggregate(ctx context.Context, window domain.TimeWindow) ([]domain.UsageSummary, error) {
	const op = "aggregate usage"

	if !a.gate.HasPermission() {
		return nil, domain.NewPermissionError(op)
	}

	records, err := a.source.QueryAggregated(ctx, window.Start, window.End)
	if err != nil {
		return nil, domain.NewSourceError(op, domain.CodeGetUsageStats, err)
	}
	visible := a.source.SupportsVisibleTime()

	summaries := make([]domain.UsageSummary, 0, len(records))
	for _, rec := range records {
		if !isSignificant(rec) {
			continue
		}
		summaries = append(summaries, a.names.summarize(ctx, rec, visible))
	}

	a.logger.Debug("aggregated usage",
		zap.Time("start", window.Start),
		zap.Time("end", window.End),
		zap.Int("records", len(records)),
		zap.Int("summaries", len(summaries)))

	return summaries, nil
}
