package domain

import (
	"context"
	"time"
)

// UsageSource abstracts the OS usage-tracking facility.
// Implementations: macOS knowledge database (SQLite), process table (gopsutil).
type UsageSource interface {
	// QueryAggregated returns one merged record per package over [start, end).
	QueryAggregated(ctx context.Context, start, end time.Time) (map[string]UsageRecord, error)

	// QueryByGranularity returns one record per package per bucket intersecting [start, end).
	QueryByGranularity(ctx context.Context, g Granularity, start, end time.Time) ([]UsageRecord, error)

	// SupportsVisibleTime reports whether records carry TotalVisibleMs on this platform.
	SupportsVisibleTime() bool
}

// ApplicationRegistry enumerates installed applications.
type ApplicationRegistry interface {
	// GetApplicationInfo returns ErrAppNotFound when packageID is not installed.
	GetApplicationInfo(ctx context.Context, packageID string) (*ApplicationInfo, error)

	// ListInstalledApplications returns every known application, system ones included.
	ListInstalledApplications(ctx context.Context) ([]ApplicationInfo, error)
}

// PermissionBackend checks and requests usage-access authorization.
type PermissionBackend interface {
	// CheckOperationMode reports whether uid/packageID may perform op.
	CheckOperationMode(op string, uid int, packageID string) (OperationMode, error)

	// LaunchSettings opens the OS settings screen where access is granted.
	// It returns once the action is issued, not when the user decides.
	LaunchSettings() error
}

// Categorizer assigns a category to a package identifier.
type Categorizer interface {
	Categorize(packageID string) Category
}
