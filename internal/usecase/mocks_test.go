package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
)

// mockUsageSource implements domain.UsageSource for testing
type mockUsageSource struct {
	mu sync.Mutex

	aggregated  map[string]domain.UsageRecord
	granular    []domain.UsageRecord
	err         error
	visibleTime bool

	aggregatedCalls int
	granularCalls   int
	lastGranularity domain.Granularity
	lastStart       time.Time
	lastEnd         time.Time
}

func (m *mockUsageSource) QueryAggregated(ctx context.Context, start, end time.Time) (map[string]domain.UsageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.aggregatedCalls++
	m.lastStart, m.lastEnd = start, end
	if m.err != nil {
		return nil, m.err
	}
	return m.aggregated, nil
}

func (m *mockUsageSource) QueryByGranularity(ctx context.Context, g domain.Granularity, start, end time.Time) ([]domain.UsageRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.granularCalls++
	m.lastGranularity = g
	m.lastStart, m.lastEnd = start, end
	if m.err != nil {
		return nil, m.err
	}
	return m.granular, nil
}

func (m *mockUsageSource) SupportsVisibleTime() bool {
	return m.visibleTime
}

func (m *mockUsageSource) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.aggregatedCalls + m.granularCalls
}

// mockRegistry implements domain.ApplicationRegistry for testing
type mockRegistry struct {
	mu sync.Mutex

	apps      []domain.ApplicationInfo
	listErr   error
	lookupErr error
	lookups   int
}

func (m *mockRegistry) GetApplicationInfo(ctx context.Context, packageID string) (*domain.ApplicationInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	for _, app := range m.apps {
		if app.PackageID == packageID {
			info := app
			return &info, nil
		}
	}
	return nil, domain.ErrAppNotFound
}

func (m *mockRegistry) ListInstalledApplications(ctx context.Context) ([]domain.ApplicationInfo, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.apps, nil
}

// mockPermissionBackend implements domain.PermissionBackend for testing
type mockPermissionBackend struct {
	mode      domain.OperationMode
	checkErr  error
	launchErr error

	launched int
	lastOp   string
	lastUID  int
	lastPkg  string
}

func (m *mockPermissionBackend) CheckOperationMode(op string, uid int, packageID string) (domain.OperationMode, error) {
	m.lastOp, m.lastUID, m.lastPkg = op, uid, packageID
	if m.checkErr != nil {
		return domain.ModeDefault, m.checkErr
	}
	return m.mode, nil
}

func (m *mockPermissionBackend) LaunchSettings() error {
	if m.launchErr != nil {
		return m.launchErr
	}
	m.launched++
	return nil
}

// staticCategorizer assigns every package the same category
type staticCategorizer domain.Category

func (c staticCategorizer) Categorize(string) domain.Category {
	return domain.Category(c)
}

func allowedGate() *PermissionGate {
	return NewPermissionGateWithUID(&mockPermissionBackend{mode: domain.ModeAllowed}, 501, "", zapNop)
}

func deniedGate() *PermissionGate {
	return NewPermissionGateWithUID(&mockPermissionBackend{mode: domain.ModeDenied}, 501, "", zapNop)
}

func record(pkg string, foregroundMs, lastUsed int64) domain.UsageRecord {
	return domain.UsageRecord{
		PackageID:         pkg,
		TotalForegroundMs: foregroundMs,
		FirstTimestamp:    1_000,
		LastTimestamp:     2_000_000,
		LastTimeUsed:      lastUsed,
	}
}

func int64Ptr(v int64) *int64 {
	return &v
}

func packageIDs(summaries []domain.UsageSummary) []string {
	ids := make([]string, len(summaries))
	for i, s := range summaries {
		ids[i] = s.PackageID
	}
	return ids
}
