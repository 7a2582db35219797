package infra

import (
	"runtime"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
)

// MinVisibleTimeMajorVersion is the first macOS major version that records
// app visibility (the /app/inFocus stream) alongside foreground usage.
const MinVisibleTimeMajorVersion = 11

// PlatformInfo describes the running OS.
type PlatformInfo struct {
	OS       string // runtime.GOOS
	Platform string // e.g. "darwin", "ubuntu"
	Family   string
	Version  string // e.g. "14.4.1"
}

// DetectPlatform reads the OS version via gopsutil.
// Failures leave Platform/Version empty, which disables optional capabilities.
func DetectPlatform() PlatformInfo {
	info := PlatformInfo{OS: runtime.GOOS}
	platform, family, version, err := host.PlatformInformation()
	if err != nil {
		return info
	}
	info.Platform = platform
	info.Family = family
	info.Version = version
	return info
}

// MajorVersion returns the leading numeric component of Version, or 0.
func (p PlatformInfo) MajorVersion() int {
	head, _, _ := strings.Cut(p.Version, ".")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0
	}
	return n
}

// SupportsVisibleTime reports whether the knowledge database records visibility.
func (p PlatformInfo) SupportsVisibleTime() bool {
	return p.OS == "darwin" && p.MajorVersion() >= MinVisibleTimeMajorVersion
}

func (p PlatformInfo) String() string {
	if p.Platform == "" {
		return p.OS
	}
	return p.Platform + " " + p.Version
}
