package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
)

// nameResolver turns package ids into display names, falling back to the id.
type nameResolver struct {
	registry domain.ApplicationRegistry
	logger   *zap.Logger
}

func newNameResolver(registry domain.ApplicationRegistry, logger *zap.Logger) nameResolver {
	return nameResolver{registry: registry, logger: logger}
}

// resolve never fails; lookup failures are logged and recovered.
func (r nameResolver) resolve(ctx context.Context, packageID string) string {
	if r.registry == nil {
		return packageID
	}
	info, err := r.registry.GetApplicationInfo(ctx, packageID)
	if err != nil {
		if !errors.Is(err, domain.ErrAppNotFound) {
			err = errors.Join(domain.ErrRegistryLookup, err)
		}
		r.logger.Debug("display name lookup failed, using package id",
			zap.String("package", packageID),
			zap.Error(err))
		return packageID
	}
	if info == nil || info.DisplayName == "" {
		return packageID
	}
	return info.DisplayName
}

// isSignificant applies the foreground-time threshold; equality is excluded.
func isSignificant(r domain.UsageRecord) bool {
	return r.TotalForegroundMs > domain.SignificanceThresholdMs
}

// summarize is the filter-and-format contract shared by every usage query.
// visibleTime is the source capability, resolved once by the caller.
func (r nameResolver) summarize(ctx context.Context, rec domain.UsageRecord, visibleTime bool) domain.UsageSummary {
	s := domain.UsageSummary{
		PackageID:         rec.PackageID,
		AppName:           r.resolve(ctx, rec.PackageID),
		TotalForegroundMs: rec.TotalForegroundMs,
		FirstTimestamp:    rec.FirstTimestamp,
		LastTimestamp:     rec.LastTimestamp,
		LastTimeUsed:      rec.LastTimeUsed,
	}
	if visibleTime && rec.TotalVisibleMs != nil {
		v := *rec.TotalVisibleMs
		s.TotalVisibleMs = &v
	}
	return s
}
