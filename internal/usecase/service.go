package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
)

// Service exposes the usage operations to the application shell.
// Every call recomputes its result from the source; nothing is cached.
type Service struct {
	gate        *PermissionGate
	aggregator  *Aggregator
	resolver    *RecentAppResolver
	intervals   *IntervalQueryEngine
	catalog     *AppCatalog
	categorizer domain.Categorizer
	now         func() time.Time
	logger      *zap.Logger
}

// NewService wires the query components around one source and registry.
func NewService(
	backend domain.PermissionBackend,
	source domain.UsageSource,
	registry domain.ApplicationRegistry,
	categorizer domain.Categorizer,
	packageID string,
	logger *zap.Logger,
) *Service {
	gate := NewPermissionGate(backend, packageID, logger)
	return NewServiceWithGate(gate, source, registry, categorizer, time.Now, logger)
}

// NewServiceWithGate creates a service with an explicit gate and clock (for testing).
func NewServiceWithGate(
	gate *PermissionGate,
	source domain.UsageSource,
	registry domain.ApplicationRegistry,
	categorizer domain.Categorizer,
	now func() time.Time,
	logger *zap.Logger,
) *Service {
	return &Service{
		gate:        gate,
		aggregator:  NewAggregator(gate, source, registry, logger),
		resolver:    NewRecentAppResolverWithClock(gate, source, registry, now, logger),
		intervals:   NewIntervalQueryEngineWithClock(gate, source, registry, now, logger),
		catalog:     NewAppCatalog(registry, categorizer, logger),
		categorizer: categorizer,
		now:         now,
		logger:      logger,
	}
}

// Intervals returns the interval query engine.
func (s *Service) Intervals() *IntervalQueryEngine {
	return s.intervals
}

// HasUsageStatsPermission reports whether usage access is granted.
func (s *Service) HasUsageStatsPermission() bool {
	return s.gate.HasPermission()
}

// RequestUsageStatsPermission opens the settings screen. It returns true as
// soon as the action is issued; the grant must be re-checked later.
func (s *Service) RequestUsageStatsPermission() (bool, error) {
	if err := s.gate.RequestPermission(); err != nil {
		return false, err
	}
	return true, nil
}

// GetUsageStats aggregates usage over [startMs, endMs).
func (s *Service) GetUsageStats(ctx context.Context, startMs, endMs int64) ([]domain.UsageSummary, error) {
	return s.aggregator.Aggregate(ctx, domain.WindowFromMillis(startMs, endMs))
}

// GetCurrentForegroundApp returns the most recent foreground app, or nil.
func (s *Service) GetCurrentForegroundApp(ctx context.Context) (*domain.ForegroundApp, error) {
	return s.resolver.CurrentForegroundApp(ctx)
}

// GetTodayUsageStats is GetUsageStats from local midnight to now.
func (s *Service) GetTodayUsageStats(ctx context.Context) ([]domain.UsageSummary, error) {
	w := domain.TodayWindow(s.now())
	summaries, err := s.GetUsageStats(ctx, w.Start.UnixMilli(), w.End.UnixMilli())
	if err != nil {
		return nil, domain.WithCode(err, domain.CodeGetTodayStats)
	}
	return summaries, nil
}

// GetInstalledApps lists user-installed applications with categories.
func (s *Service) GetInstalledApps(ctx context.Context) ([]domain.AppCatalogEntry, error) {
	return s.catalog.ListInstalledApps(ctx)
}

// GetDetailedUsageStats runs a bucketed query; unknown interval names mean best fit.
func (s *Service) GetDetailedUsageStats(ctx context.Context, startMs, endMs int64, interval string) ([]domain.UsageSummary, error) {
	return s.intervals.QueryByIntervalName(ctx, domain.WindowFromMillis(startMs, endMs), interval)
}

// CategoryReport rolls usage in window up by category. Usage and the app
// catalog are fetched concurrently. Every category is present in the result,
// in priority order.
func (s *Service) CategoryReport(ctx context.Context, window domain.TimeWindow) ([]domain.CategoryUsage, error) {
	var (
		summaries []domain.UsageSummary
		apps      []domain.AppCatalogEntry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summaries, err = s.aggregator.Aggregate(gctx, window)
		return err
	})
	g.Go(func() error {
		var err error
		apps, err = s.catalog.ListInstalledApps(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, domain.WithCode(err, domain.CodeGetReport)
	}

	byCategory := make(map[domain.Category]*domain.CategoryUsage, len(domain.Categories))
	report := make([]domain.CategoryUsage, len(domain.Categories))
	for i, c := range domain.Categories {
		report[i].Category = c
		byCategory[c] = &report[i]
	}

	used := make(map[string]bool)
	for _, sum := range summaries {
		row, ok := byCategory[s.categorizer.Categorize(sum.PackageID)]
		if !ok {
			continue
		}
		row.TotalForegroundMs += sum.TotalForegroundMs
		if !used[sum.PackageID] {
			used[sum.PackageID] = true
			row.AppsUsed++
		}
	}
	for _, app := range apps {
		if row, ok := byCategory[app.Category]; ok {
			row.AppsInstalled++
		}
	}

	return report, nil
}
