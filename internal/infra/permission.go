package infra

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
)

// fullDiskAccessURL opens System Settings at Privacy & Security > Full Disk Access.
const fullDiskAccessURL = "x-apple.systempreferences:com.apple.preference.security?Privacy_AllFiles"

// FileAccessBackend implements domain.PermissionBackend for the knowledge
// database. Reading it requires Full Disk Access, so the check is whether
// the file can be opened.
type FileAccessBackend struct {
	dbPath string
	runner CommandRunner
	goos   string
}

// NewFileAccessBackend creates a backend guarding dbPath.
func NewFileAccessBackend(dbPath string, runner CommandRunner) *FileAccessBackend {
	return &FileAccessBackend{dbPath: dbPath, runner: runner, goos: runtime.GOOS}
}

// CheckOperationMode reports ModeAllowed when dbPath is readable and
// ModeDenied when the OS refuses access. Other failures are returned.
func (b *FileAccessBackend) CheckOperationMode(op string, uid int, packageID string) (domain.OperationMode, error) {
	if op != domain.OpGetUsageStats {
		return domain.ModeDenied, nil
	}

	f, err := os.Open(b.dbPath)
	if errors.Is(err, fs.ErrPermission) {
		return domain.ModeDenied, nil
	}
	if err != nil {
		return domain.ModeDefault, fmt.Errorf("failed to open %s: %w", b.dbPath, err)
	}
	f.Close()
	return domain.ModeAllowed, nil
}

// LaunchSettings opens the Full Disk Access pane. It does not wait for the user.
func (b *FileAccessBackend) LaunchSettings() error {
	if b.goos != "darwin" {
		return fmt.Errorf("usage access settings are not available on %s", b.goos)
	}
	return b.runner.Run("open", fullDiskAccessURL)
}

// StaticPermissionBackend always reports Mode. Used by sources that need no
// OS authorization, such as the process table.
type StaticPermissionBackend struct {
	Mode domain.OperationMode
}

// CheckOperationMode returns b.Mode for every operation.
func (b StaticPermissionBackend) CheckOperationMode(op string, uid int, packageID string) (domain.OperationMode, error) {
	return b.Mode, nil
}

// LaunchSettings is a no-op.
func (b StaticPermissionBackend) LaunchSettings() error {
	return nil
}

var (
	_ domain.PermissionBackend = (*FileAccessBackend)(nil)
	_ domain.PermissionBackend = StaticPermissionBackend{}
)
