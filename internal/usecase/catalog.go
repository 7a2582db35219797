package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
)

// AppCatalog lists user-installed applications with their categories.
// It does not require usage access.
type AppCatalog struct {
	registry    domain.ApplicationRegistry
	categorizer domain.Categorizer
	names       nameResolver
	logger      *zap.Logger
}

// NewAppCatalog creates a new catalog.
func NewAppCatalog(registry domain.ApplicationRegistry, categorizer domain.Categorizer, logger *zap.Logger) *AppCatalog {
	return &AppCatalog{
		registry:    registry,
		categorizer: categorizer,
		names:       newNameResolver(registry, logger),
		logger:      logger,
	}
}

// ListInstalledApps returns every non-system application once, in registry order.
func (c *AppCatalog) ListInstalledApps(ctx context.Context) ([]domain.AppCatalogEntry, error) {
	apps, err := c.registry.ListInstalledApplications(ctx)
	if err != nil {
		return nil, &domain.UsageError{
			Op:   "list installed apps",
			Code: domain.CodeGetInstalledApps,
			Kind: domain.ErrRegistryLookup,
			Err:  fmt.Errorf("failed to list applications: %w", err),
		}
	}

	entries := make([]domain.AppCatalogEntry, 0, len(apps))
	var skipped int
	for _, app := range apps {
		if app.IsSystem {
			skipped++
			continue
		}
		name := app.DisplayName
		if name == "" {
			name = c.names.resolve(ctx, app.PackageID)
		}
		entries = append(entries, domain.AppCatalogEntry{
			PackageID: app.PackageID,
			AppName:   name,
			Category:  c.categorizer.Categorize(app.PackageID),
		})
	}

	c.logger.Debug("listed installed apps",
		zap.Int("user_apps", len(entries)),
		zap.Int("system_apps", skipped))

	return entries, nil
}
