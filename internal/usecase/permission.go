// Package usecase contains application business logic.
package usecase

import (
	"os"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
)

// DefaultPackageID identifies this program to the permission backend.
const DefaultPackageID = "com.focusd.usagemon"

// PermissionGate observes and requests usage-access authorization.
// Checking is synchronous; requesting only issues the settings action and
// never waits for the user's decision. Callers re-check HasPermission later.
type PermissionGate struct {
	backend   domain.PermissionBackend
	uid       int
	packageID string
	logger    *zap.Logger
}

// NewPermissionGate creates a gate for the current process uid.
func NewPermissionGate(backend domain.PermissionBackend, packageID string, logger *zap.Logger) *PermissionGate {
	return NewPermissionGateWithUID(backend, os.Getuid(), packageID, logger)
}

// NewPermissionGateWithUID creates a gate for a specific uid (for testing).
func NewPermissionGateWithUID(backend domain.PermissionBackend, uid int, packageID string, logger *zap.Logger) *PermissionGate {
	if packageID == "" {
		packageID = DefaultPackageID
	}
	return &PermissionGate{
		backend:   backend,
		uid:       uid,
		packageID: packageID,
		logger:    logger,
	}
}

// HasPermission reports whether usage data may be read. It never fails:
// a backend error counts as not granted.
func (g *PermissionGate) HasPermission() bool {
	mode, err := g.backend.CheckOperationMode(domain.OpGetUsageStats, g.uid, g.packageID)
	if err != nil {
		g.logger.Debug("permission check failed, treating as denied",
			zap.Int("uid", g.uid),
			zap.String("package", g.packageID),
			zap.Error(err))
		return false
	}
	return mode == domain.ModeAllowed
}

// RequestPermission opens the OS settings screen and returns once the action is issued.
func (g *PermissionGate) RequestPermission() error {
	if err := g.backend.LaunchSettings(); err != nil {
		return &domain.UsageError{
			Op:   "request permission",
			Code: domain.CodeRequestPermission,
			Kind: domain.ErrPermissionRequest,
			Err:  err,
		}
	}
	g.logger.Info("opened usage access settings", zap.String("package", g.packageID))
	return nil
}
