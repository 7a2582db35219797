package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
)

// RecentAppResolver finds the most recently foregrounded app.
type RecentAppResolver struct {
	gate   *PermissionGate
	source domain.UsageSource
	names  nameResolver
	now    func() time.Time
	logger *zap.Logger
}

// NewRecentAppResolver creates a resolver using the wall clock.
func NewRecentAppResolver(
	gate *PermissionGate,
	source domain.UsageSource,
	registry domain.ApplicationRegistry,
	logger *zap.Logger,
) *RecentAppResolver {
	return NewRecentAppResolverWithClock(gate, source, registry, time.Now, logger)
}

// NewRecentAppResolverWithClock creates a resolver with a custom clock (for testing).
func NewRecentAppResolverWithClock(
	gate *PermissionGate,
	source domain.UsageSource,
	registry domain.ApplicationRegistry,
	now func() time.Time,
	logger *zap.Logger,
) *RecentAppResolver {
	return &RecentAppResolver{
		gate:   gate,
		source: source,
		names:  newNameResolver(registry, logger),
		now:    now,
		logger: logger,
	}
}

// CurrentForegroundApp returns the app with the latest LastTimeUsed in the
// trailing two minutes, or nil when there is none.
//
// Only a strictly greater LastTimeUsed replaces the candidate, so among
// records with equal timestamps the first one in source order wins.
func (r *RecentAppResolver) CurrentForegroundApp(ctx context.Context) (*domain.ForegroundApp, error) {
	const op = "resolve foreground app"

	if !r.gate.HasPermission() {
		return nil, domain.NewPermissionError(op)
	}

	window := domain.RecentWindow(r.now())
	records, err := r.source.QueryByGranularity(ctx, domain.GranularityBest, window.Start, window.End)
	if err != nil {
		return nil, domain.NewSourceError(op, domain.CodeGetCurrentApp, err)
	}

	var candidate *domain.UsageRecord
	var lastTimeUsed int64
	for i := range records {
		if records[i].LastTimeUsed > lastTimeUsed {
			lastTimeUsed = records[i].LastTimeUsed
			candidate = &records[i]
		}
	}

	if candidate == nil {
		return nil, nil
	}

	return &domain.ForegroundApp{
		PackageID:    candidate.PackageID,
		AppName:      r.names.resolve(ctx, candidate.PackageID),
		LastTimeUsed: candidate.LastTimeUsed,
	}, nil
}
