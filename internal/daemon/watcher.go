// Package daemon implements the usage watch daemon.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
	"github.com/eliteGoblin/focusd/usage_mon/internal/policy"
)

// UsageReader is the part of the usage service the watcher polls.
type UsageReader interface {
	GetCurrentForegroundApp(ctx context.Context) (*domain.ForegroundApp, error)
	GetTodayUsageStats(ctx context.Context) ([]domain.UsageSummary, error)
}

// WatcherConfig holds watcher daemon configuration.
type WatcherConfig struct {
	PollInterval       time.Duration // How often to check the foreground app (default 30s)
	LimitCheckInterval time.Duration // How often to evaluate daily limits (default 5 min)
}

// DefaultWatcherConfig returns default watcher configuration.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		PollInterval:       30 * time.Second,
		LimitCheckInterval: 5 * time.Minute,
	}
}

// Watcher polls usage and raises alerts for bedtime use and reached limits.
// Limit alerts fire at most once per local day, bedtime alerts once per night.
type Watcher struct {
	config      WatcherConfig
	usage       UsageReader
	policy      policy.UsagePolicy
	categorizer domain.Categorizer
	sink        AlertSink
	now         func() time.Time
	logger      *zap.Logger

	lastApp string
	alerted map[string]time.Time // alert key -> period it fired in
}

// NewWatcher creates a new watcher daemon.
func NewWatcher(
	config WatcherConfig,
	usage UsageReader,
	usagePolicy policy.UsagePolicy,
	categorizer domain.Categorizer,
	sink AlertSink,
	logger *zap.Logger,
) *Watcher {
	return NewWatcherWithClock(config, usage, usagePolicy, categorizer, sink, time.Now, logger)
}

// NewWatcherWithClock creates a watcher with an injected clock (for testing).
func NewWatcherWithClock(
	config WatcherConfig,
	usage UsageReader,
	usagePolicy policy.UsagePolicy,
	categorizer domain.Categorizer,
	sink AlertSink,
	now func() time.Time,
	logger *zap.Logger,
) *Watcher {
	return &Watcher{
		config:      config,
		usage:       usage,
		policy:      usagePolicy,
		categorizer: categorizer,
		sink:        sink,
		now:         now,
		logger:      logger,
		alerted:     make(map[string]time.Time),
	}
}

// Run starts the watcher daemon loop.
// This blocks until context is canceled.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watcher daemon started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Duration("limit_check_interval", w.config.LimitCheckInterval),
		zap.String("bedtime", w.policy.Bedtime.String()))

	// Run every check immediately on startup
	w.Poll(ctx)
	w.CheckLimits(ctx)

	pollTicker := time.NewTicker(w.config.PollInterval)
	limitTicker := time.NewTicker(w.config.LimitCheckInterval)
	defer func() {
		pollTicker.Stop()
		limitTicker.Stop()
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher daemon stopping")
			return ctx.Err()

		case <-pollTicker.C:
			w.Poll(ctx)

		case <-limitTicker.C:
			w.CheckLimits(ctx)
		}
	}
}

// Poll checks the foreground app and raises a bedtime alert if one is in use
// during the bedtime period.
func (w *Watcher) Poll(ctx context.Context) {
	app, err := w.usage.GetCurrentForegroundApp(ctx)
	if err != nil {
		w.logFailure("foreground app check failed", err)
		return
	}
	if app == nil {
		return
	}

	if app.PackageID != w.lastApp {
		w.logger.Debug("foreground app changed",
			zap.String("package", app.PackageID),
			zap.String("app", app.AppName))
		w.lastApp = app.PackageID
	}

	now := w.now()
	if !w.policy.Bedtime.Contains(now) {
		return
	}
	w.raise(Alert{
		Kind:      AlertBedtime,
		Key:       "bedtime",
		PackageID: app.PackageID,
		Message:   fmt.Sprintf("%s is in use during bedtime (%s)", app.AppName, w.policy.Bedtime),
		At:        now,
	}, w.policy.Bedtime.PeriodStart(now))
}

// CheckLimits evaluates today's usage against the daily limits.
func (w *Watcher) CheckLimits(ctx context.Context) {
	summaries, err := w.usage.GetTodayUsageStats(ctx)
	if err != nil {
		w.logFailure("limit check failed", err)
		return
	}

	now := w.now()
	for _, b := range w.policy.Evaluate(summaries, w.categorizer) {
		breach := b
		w.raise(Alert{
			Kind:      AlertLimit,
			Key:       string(b.Scope) + ":" + b.Key,
			PackageID: packageOf(b),
			Message:   fmt.Sprintf("daily %s limit for %s reached: %s of %s", b.Scope, b.Key, b.Used.Round(time.Minute), b.Limit),
			At:        now,
			Breach:    &breach,
		}, domain.StartOfDay(now))
	}
}

// raise forwards a to the sink unless the same key already fired in period.
func (w *Watcher) raise(a Alert, period time.Time) {
	if last, ok := w.alerted[a.Key]; ok && last.Equal(period) {
		return
	}
	w.alerted[a.Key] = period
	w.sink.Notify(a)
}

// logFailure warns on missing permission, which the user fixes out of band,
// and logs everything else as an error.
func (w *Watcher) logFailure(msg string, err error) {
	if errors.Is(err, domain.ErrPermissionDenied) {
		w.logger.Warn(msg+": usage access not granted", zap.String("code", string(domain.CodeOf(err))))
		return
	}
	w.logger.Error(msg, zap.Error(err), zap.String("code", string(domain.CodeOf(err))))
}

func packageOf(b policy.LimitBreach) string {
	if b.Scope == policy.ScopeApp {
		return b.Key
	}
	return ""
}
