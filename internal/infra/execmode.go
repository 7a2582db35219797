package infra

import (
	"os"
	"os/user"
	"path/filepath"
)

// ExecMode represents the execution mode of the application.
type ExecMode string

const (
	// ExecModeUser reads the per-user knowledge database (no sudo required)
	ExecModeUser ExecMode = "user"
	// ExecModeSystem reads the system-wide knowledge database (sudo required)
	ExecModeSystem ExecMode = "system"
)

const (
	// SystemKnowledgeDBPath is where macOS keeps system-wide app usage events.
	SystemKnowledgeDBPath = "/private/var/db/CoreDuet/Knowledge/knowledgeC.db"

	// DefaultLogDir is used for daemon logs in system mode.
	DefaultLogDir = "/var/tmp"
)

// ExecModeConfig holds paths and settings based on execution mode.
type ExecModeConfig struct {
	Mode            ExecMode
	KnowledgeDBPath string   // Usage event database read by the knowledge source
	DataDir         string   // Per-mode state directory
	LogPath         string   // Log file for the watch daemon
	UserAppDirs     []string // Directories scanned for user-installed bundles
	SystemAppDirs   []string // Directories whose bundles are system apps
	IsRoot          bool     // Whether running as root
}

// DetectExecMode determines the execution mode based on effective UID.
func DetectExecMode() *ExecModeConfig {
	isRoot := os.Geteuid() == 0
	home := GetRealUserHome()

	if isRoot {
		return &ExecModeConfig{
			Mode:            ExecModeSystem,
			KnowledgeDBPath: SystemKnowledgeDBPath,
			DataDir:         "/var/lib/usagemon",
			LogPath:         filepath.Join(DefaultLogDir, "usagemon.log"),
			UserAppDirs:     userAppDirs(home),
			SystemAppDirs:   systemAppDirs(),
			IsRoot:          true,
		}
	}

	return GetUserModeConfig()
}

// String returns a human-readable description of the mode.
func (m ExecMode) String() string {
	switch m {
	case ExecModeSystem:
		return "system (system knowledge database, root)"
	case ExecModeUser:
		return "user (user knowledge database, non-root)"
	default:
		return "unknown"
	}
}

// GetUserModeConfig returns user mode config regardless of current euid.
// When running under sudo, uses SUDO_USER to get the invoking user's home directory.
func GetUserModeConfig() *ExecModeConfig {
	home := GetRealUserHome()
	dataDir := filepath.Join(home, ".usagemon")
	return &ExecModeConfig{
		Mode:            ExecModeUser,
		KnowledgeDBPath: filepath.Join(home, "Library", "Application Support", "Knowledge", "knowledgeC.db"),
		DataDir:         dataDir,
		LogPath:         filepath.Join(dataDir, "usagemon.log"),
		UserAppDirs:     userAppDirs(home),
		SystemAppDirs:   systemAppDirs(),
		IsRoot:          os.Geteuid() == 0, // Still track actual root status for permission operations
	}
}

func userAppDirs(home string) []string {
	return []string{"/Applications", filepath.Join(home, "Applications")}
}

func systemAppDirs() []string {
	return []string{"/System/Applications", "/System/Applications/Utilities", "/System/Library/CoreServices"}
}

// GetRealUserHome returns the real user's home directory, even when running under sudo.
// Under sudo, os.UserHomeDir() returns /var/root, so we use SUDO_USER to find the real user.
func GetRealUserHome() string {
	// Check if running under sudo
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		if u, err := user.Lookup(sudoUser); err == nil {
			return u.HomeDir
		}
	}
	// Fall back to default
	home, _ := os.UserHomeDir()
	return home
}
