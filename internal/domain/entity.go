// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"strings"
	"time"
)

// SignificanceThresholdMs is the minimum foreground time (exclusive) for a
// usage record to be reported.
const SignificanceThresholdMs int64 = 1000

// RecentWindowSpan is the trailing window used to resolve the foreground app.
const RecentWindowSpan = 2 * time.Minute

// Category classifies an installed application.
type Category string

const (
	CategorySocial       Category = "social"
	CategoryGames        Category = "games"
	CategoryEducational  Category = "educational"
	CategoryProductivity Category = "productivity"
	CategoryOther        Category = "other"
)

// Categories lists every category in priority order, ending with the fallback.
var Categories = []Category{
	CategorySocial,
	CategoryGames,
	CategoryEducational,
	CategoryProductivity,
	CategoryOther,
}

// ParseCategory returns the category named by s (case-insensitive).
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// Granularity is the bucketing unit for historical usage queries.
type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityWeekly  Granularity = "weekly"
	GranularityMonthly Granularity = "monthly"
	GranularityYearly  Granularity = "yearly"
	GranularityBest    Granularity = "best"
)

// ParseGranularity maps an interval name to a Granularity.
// Matching is exact and case-insensitive; anything unrecognized is GranularityBest.
func ParseGranularity(s string) Granularity {
	switch strings.ToLower(s) {
	case "daily":
		return GranularityDaily
	case "weekly":
		return GranularityWeekly
	case "monthly":
		return GranularityMonthly
	case "yearly":
		return GranularityYearly
	default:
		return GranularityBest
	}
}

// TimeWindow is a half-open [Start, End) query range.
// Ordering is not validated; it is passed through to the source as given.
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// WindowFromMillis builds a window from Unix epoch milliseconds.
func WindowFromMillis(startMs, endMs int64) TimeWindow {
	return TimeWindow{Start: time.UnixMilli(startMs), End: time.UnixMilli(endMs)}
}

// TodayWindow returns [local midnight, now).
func TodayWindow(now time.Time) TimeWindow {
	return TimeWindow{Start: StartOfDay(now), End: now}
}

// RecentWindow returns [now - RecentWindowSpan, now).
func RecentWindow(now time.Time) TimeWindow {
	return TimeWindow{Start: now.Add(-RecentWindowSpan), End: now}
}

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// UsageRecord is one package's usage over a bucket, as produced by a UsageSource.
// All timestamps are Unix epoch milliseconds.
type UsageRecord struct {
	PackageID         string
	TotalForegroundMs int64
	FirstTimestamp    int64  // Start of the bucket this record covers
	LastTimestamp     int64  // End of the bucket this record covers
	LastTimeUsed      int64  // Last time the package was in the foreground
	TotalVisibleMs    *int64 // nil when the source cannot report it
}

// UsageSummary is a significant UsageRecord with a resolved display name.
type UsageSummary struct {
	PackageID         string `json:"packageName"`
	AppName           string `json:"appName"`
	TotalForegroundMs int64  `json:"totalTimeForeground"`
	FirstTimestamp    int64  `json:"firstTimeStamp"`
	LastTimestamp     int64  `json:"lastTimeStamp"`
	LastTimeUsed      int64  `json:"lastTimeUsed"`
	TotalVisibleMs    *int64 `json:"totalTimeVisible,omitempty"`
}

// ForegroundApp is the most recently foregrounded application.
type ForegroundApp struct {
	PackageID    string `json:"packageName"`
	AppName      string `json:"appName"`
	LastTimeUsed int64  `json:"lastTimeUsed"`
}

// ApplicationInfo is an application registry entry.
type ApplicationInfo struct {
	PackageID   string
	DisplayName string
	IsSystem    bool
	Path        string
}

// AppCatalogEntry is a user-installed application with its category.
type AppCatalogEntry struct {
	PackageID string   `json:"packageName"`
	AppName   string   `json:"appName"`
	Category  Category `json:"category"`
}

// CategoryUsage is the per-category rollup of a usage window.
type CategoryUsage struct {
	Category          Category `json:"category"`
	TotalForegroundMs int64    `json:"totalTimeForeground"`
	AppsUsed          int      `json:"appsUsed"`
	AppsInstalled     int      `json:"appsInstalled"`
}

// OperationMode is the result of a permission backend check.
type OperationMode int

const (
	ModeDefault OperationMode = iota
	ModeAllowed
	ModeDenied
)

func (m OperationMode) String() string {
	switch m {
	case ModeAllowed:
		return "allowed"
	case ModeDenied:
		return "denied"
	default:
		return "default"
	}
}

// OpGetUsageStats is the operation checked before reading usage data.
const OpGetUsageStats = "get_usage_stats"
