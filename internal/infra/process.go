package infra

import (
	"context"
	"fmt"
	"os/user"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
)

// ProcessInfo is a snapshot of one running process.
type ProcessInfo struct {
	PID       int32
	Name      string
	Username  string
	CreatedAt time.Time
}

// ProcessLister abstracts process table enumeration for testing.
type ProcessLister interface {
	List(ctx context.Context) ([]ProcessInfo, error)
}

// GopsutilLister lists processes using gopsutil.
type GopsutilLister struct{}

// List returns every process whose name and create time can be read.
func (GopsutilLister) List(ctx context.Context) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue // Process may have exited
		}
		created, err := p.CreateTimeWithContext(ctx)
		if err != nil {
			continue
		}
		username, _ := p.UsernameWithContext(ctx)
		out = append(out, ProcessInfo{
			PID:       p.Pid,
			Name:      name,
			Username:  username,
			CreatedAt: time.UnixMilli(created),
		})
	}
	return out, nil
}

// ProcessSource implements domain.UsageSource from the live process table.
// Each process owned by the user counts as one foreground session from its
// start until now, so history only covers processes that are still running.
// The process table cannot tell which app is frontmost, so a package's last
// use is its most recent launch: the newest app wins the current-app lookup.
type ProcessSource struct {
	lister   ProcessLister
	username string
	now      func() time.Time
	logger   *zap.Logger
}

// NewProcessSource creates a source for the current user's processes.
func NewProcessSource(lister ProcessLister, logger *zap.Logger) *ProcessSource {
	username := ""
	if u, err := user.Current(); err == nil {
		username = u.Username
	}
	return NewProcessSourceForUser(lister, username, time.Now, logger)
}

// NewProcessSourceForUser creates a source filtered to username.
// An empty username includes every process.
func NewProcessSourceForUser(lister ProcessLister, username string, now func() time.Time, logger *zap.Logger) *ProcessSource {
	return &ProcessSource{
		lister:   lister,
		username: username,
		now:      now,
		logger:   logger,
	}
}

// SupportsVisibleTime is always false: the process table has no notion of visibility.
func (s *ProcessSource) SupportsVisibleTime() bool {
	return false
}

// QueryAggregated returns one merged record per process name over [start, end).
func (s *ProcessSource) QueryAggregated(ctx context.Context, start, end time.Time) (map[string]domain.UsageRecord, error) {
	sessions, err := s.sessions(ctx)
	if err != nil {
		return nil, err
	}
	return aggregateWindow(sessions, start, end, false), nil
}

// QueryByGranularity returns one record per process name per bucket of g.
func (s *ProcessSource) QueryByGranularity(ctx context.Context, g domain.Granularity, start, end time.Time) ([]domain.UsageRecord, error) {
	sessions, err := s.sessions(ctx)
	if err != nil {
		return nil, err
	}
	return aggregateByGranularity(sessions, g, start, end, false), nil
}

func (s *ProcessSource) sessions(ctx context.Context) ([]Session, error) {
	procs, err := s.lister.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	now := s.now()
	sessions := make([]Session, 0, len(procs))
	for _, p := range procs {
		if s.username != "" && p.Username != s.username {
			continue
		}
		sessions = append(sessions, Session{
			PackageID: p.Name,
			Kind:      StreamUsage,
			Start:     p.CreatedAt,
			End:       now,
			LastUsed:  p.CreatedAt,
		})
	}

	s.logger.Debug("process snapshot",
		zap.Int("total", len(procs)),
		zap.Int("owned", len(sessions)))
	return sessions, nil
}

var _ domain.UsageSource = (*ProcessSource)(nil)
