package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
)

// IntervalQueryEngine runs bucketed historical usage queries.
type IntervalQueryEngine struct {
	gate   *PermissionGate
	source domain.UsageSource
	names  nameResolver
	now    func() time.Time
	logger *zap.Logger
}

// NewIntervalQueryEngine creates an engine using the wall clock.
func NewIntervalQueryEngine(
	gate *PermissionGate,
	source domain.UsageSource,
	registry domain.ApplicationRegistry,
	logger *zap.Logger,
) *IntervalQueryEngine {
	return NewIntervalQueryEngineWithClock(gate, source, registry, time.Now, logger)
}

// NewIntervalQueryEngineWithClock creates an engine with a custom clock (for testing).
func NewIntervalQueryEngineWithClock(
	gate *PermissionGate,
	source domain.UsageSource,
	registry domain.ApplicationRegistry,
	now func() time.Time,
	logger *zap.Logger,
) *IntervalQueryEngine {
	return &IntervalQueryEngine{
		gate:   gate,
		source: source,
		names:  newNameResolver(registry, logger),
		now:    now,
		logger: logger,
	}
}

// QueryByInterval returns a summary per package per bucket with significant
// foreground time. TotalVisibleMs is set only when the source supports it.
func (e *IntervalQueryEngine) QueryByInterval(
	ctx context.Context,
	window domain.TimeWindow,
	granularity domain.Granularity,
) ([]domain.UsageSummary, error) {
	const op = "query usage by interval"

	if !e.gate.HasPermission() {
		return nil, domain.NewPermissionError(op)
	}

	records, err := e.source.QueryByGranularity(ctx, granularity, window.Start, window.End)
	if err != nil {
		return nil, domain.NewSourceError(op, domain.CodeGetDetailedStats, err)
	}
	visible := e.source.SupportsVisibleTime()

	summaries := make([]domain.UsageSummary, 0, len(records))
	for _, rec := range records {
		if !isSignificant(rec) {
			continue
		}
		summaries = append(summaries, e.names.summarize(ctx, rec, visible))
	}

	e.logger.Debug("queried usage by interval",
		zap.String("granularity", string(granularity)),
		zap.Int("records", len(records)),
		zap.Int("summaries", len(summaries)),
		zap.Bool("visible_time", visible))

	return summaries, nil
}

// QueryByIntervalName normalizes an interval name (unknown names mean best fit)
// and runs QueryByInterval.
func (e *IntervalQueryEngine) QueryByIntervalName(
	ctx context.Context,
	window domain.TimeWindow,
	interval string,
) ([]domain.UsageSummary, error) {
	return e.QueryByInterval(ctx, window, domain.ParseGranularity(interval))
}

// Today queries [local midnight, now) with best-fit granularity.
func (e *IntervalQueryEngine) Today(ctx context.Context) ([]domain.UsageSummary, error) {
	return e.QueryByInterval(ctx, domain.TodayWindow(e.now()), domain.GranularityBest)
}
