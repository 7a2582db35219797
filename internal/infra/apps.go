package infra

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
)

const (
	// appIndexTTL bounds how long GetApplicationInfo trusts a previous scan.
	appIndexTTL = 30 * time.Second

	systemBundlePrefix = "com.apple."
)

// bundlePlist is the subset of Info.plist the registry reads.
type bundlePlist struct {
	Identifier  string `json:"CFBundleIdentifier"`
	DisplayName string `json:"CFBundleDisplayName"`
	Name        string `json:"CFBundleName"`
}

// BundleRegistry implements domain.ApplicationRegistry by scanning .app
// bundles in well-known directories. Info.plist files are decoded with
// plutil, which handles both XML and binary plists.
type BundleRegistry struct {
	userDirs   []string
	systemDirs []string
	runner     CommandRunner
	now        func() time.Time
	logger     *zap.Logger

	mu        sync.Mutex
	index     map[string]domain.ApplicationInfo
	indexedAt time.Time
}

// NewBundleRegistry creates a registry scanning userDirs and systemDirs.
func NewBundleRegistry(userDirs, systemDirs []string, runner CommandRunner, logger *zap.Logger) *BundleRegistry {
	return NewBundleRegistryWithClock(userDirs, systemDirs, runner, time.Now, logger)
}

// NewBundleRegistryWithClock creates a registry with an injected clock (for testing).
func NewBundleRegistryWithClock(userDirs, systemDirs []string, runner CommandRunner, now func() time.Time, logger *zap.Logger) *BundleRegistry {
	return &BundleRegistry{
		userDirs:   userDirs,
		systemDirs: systemDirs,
		runner:     runner,
		now:        now,
		logger:     logger,
	}
}

// GetApplicationInfo looks packageID up in the cached index, rescanning when stale.
func (r *BundleRegistry) GetApplicationInfo(ctx context.Context, packageID string) (*domain.ApplicationInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.index == nil || r.now().Sub(r.indexedAt) > appIndexTTL {
		apps, err := r.scan(ctx)
		if err != nil {
			return nil, err
		}
		r.store(apps)
	}

	info, ok := r.index[packageID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAppNotFound, packageID)
	}
	return &info, nil
}

// ListInstalledApplications rescans every directory, sorted by package ID.
func (r *BundleRegistry) ListInstalledApplications(ctx context.Context) ([]domain.ApplicationInfo, error) {
	apps, err := r.scan(ctx)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.store(apps)
	r.mu.Unlock()

	return apps, nil
}

// store replaces the index. Caller holds r.mu.
func (r *BundleRegistry) store(apps []domain.ApplicationInfo) {
	r.index = make(map[string]domain.ApplicationInfo, len(apps))
	for _, a := range apps {
		r.index[a.PackageID] = a
	}
	r.indexedAt = r.now()
}

func (r *BundleRegistry) scan(ctx context.Context) ([]domain.ApplicationInfo, error) {
	seen := make(map[string]bool)
	var apps []domain.ApplicationInfo

	scanDir := func(dir string, system bool) error {
		entries, err := os.ReadDir(dir)
		if os.IsNotExist(err) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", dir, err)
		}
		for _, e := range entries {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !e.IsDir() || !strings.HasSuffix(e.Name(), ".app") {
				continue
			}
			path := filepath.Join(dir, e.Name())
			info, err := r.readBundle(path)
			if err != nil {
				r.logger.Debug("skipping bundle", zap.String("path", path), zap.Error(err))
				continue
			}
			if seen[info.PackageID] {
				continue
			}
			seen[info.PackageID] = true
			info.IsSystem = system || strings.HasPrefix(info.PackageID, systemBundlePrefix)
			apps = append(apps, info)
		}
		return nil
	}

	for _, dir := range r.systemDirs {
		if err := scanDir(dir, true); err != nil {
			return nil, err
		}
	}
	for _, dir := range r.userDirs {
		if err := scanDir(dir, false); err != nil {
			return nil, err
		}
	}

	sort.Slice(apps, func(i, j int) bool { return apps[i].PackageID < apps[j].PackageID })
	return apps, nil
}

// readBundle decodes <path>/Contents/Info.plist.
func (r *BundleRegistry) readBundle(path string) (domain.ApplicationInfo, error) {
	plist := filepath.Join(path, "Contents", "Info.plist")
	out, err := r.runner.Output("plutil", "-convert", "json", "-o", "-", plist)
	if err != nil {
		return domain.ApplicationInfo{}, fmt.Errorf("plutil %s: %w", plist, err)
	}

	var p bundlePlist
	if err := json.Unmarshal(out, &p); err != nil {
		return domain.ApplicationInfo{}, fmt.Errorf("decode %s: %w", plist, err)
	}
	if p.Identifier == "" {
		return domain.ApplicationInfo{}, fmt.Errorf("%s has no CFBundleIdentifier", plist)
	}

	name := p.DisplayName
	if name == "" {
		name = p.Name
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), ".app")
	}
	return domain.ApplicationInfo{
		PackageID:   p.Identifier,
		DisplayName: name,
		Path:        path,
	}, nil
}

var _ domain.ApplicationRegistry = (*BundleRegistry)(nil)
