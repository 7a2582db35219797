package daemon

import (
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/usage_mon/internal/policy"
)

// AlertKind classifies an Alert.
type AlertKind string

const (
	AlertBedtime AlertKind = "bedtime"
	AlertLimit   AlertKind = "limit"
)

// Alert is a notification raised by the watcher.
type Alert struct {
	Kind      AlertKind
	Key       string // dedup key
	PackageID string // empty for category alerts
	Message   string
	At        time.Time
	Breach    *policy.LimitBreach // set for AlertLimit
}

// AlertSink receives alerts.
type AlertSink interface {
	Notify(a Alert)
}

// LogAlertSink writes alerts to a zap logger.
type LogAlertSink struct {
	logger *zap.Logger
}

// NewLogAlertSink creates a sink logging at warn level.
func NewLogAlertSink(logger *zap.Logger) *LogAlertSink {
	return &LogAlertSink{logger: logger}
}

// Notify logs a.
func (s *LogAlertSink) Notify(a Alert) {
	fields := []zap.Field{
		zap.String("kind", string(a.Kind)),
		zap.String("key", a.Key),
		zap.Time("at", a.At),
	}
	if a.PackageID != "" {
		fields = append(fields, zap.String("package", a.PackageID))
	}
	if a.Breach != nil {
		fields = append(fields,
			zap.Duration("used", a.Breach.Used),
			zap.Duration("limit", a.Breach.Limit))
	}
	s.logger.Warn(a.Message, fields...)
}
