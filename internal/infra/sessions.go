package infra

import (
	"sort"
	"time"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
)

// Best-fit resolution thresholds, by window span.
const (
	bestDailyMaxSpan   = 14 * 24 * time.Hour
	bestWeeklyMaxSpan  = 62 * 24 * time.Hour
	bestMonthlyMaxSpan = 730 * 24 * time.Hour
)

// StreamKind identifies what a Session measures.
type StreamKind int

const (
	// StreamUsage is time spent as the frontmost application.
	StreamUsage StreamKind = iota
	// StreamInFocus is time any window of the application was visible.
	StreamInFocus
)

// Session is one contiguous interval of activity for a package.
type Session struct {
	PackageID string
	Kind      StreamKind
	Start     time.Time
	End       time.Time
	// LastUsed overrides End as the last-use signal when set.
	// It is clamped into the part of the session inside the bucket.
	LastUsed time.Time
}

// ResolveGranularity turns GranularityBest into a concrete unit for the window span.
func ResolveGranularity(g domain.Granularity, start, end time.Time) domain.Granularity {
	if g != domain.GranularityBest {
		return g
	}
	span := end.Sub(start)
	switch {
	case span < bestDailyMaxSpan:
		return domain.GranularityDaily
	case span < bestWeeklyMaxSpan:
		return domain.GranularityWeekly
	case span < bestMonthlyMaxSpan:
		return domain.GranularityMonthly
	default:
		return domain.GranularityYearly
	}
}

// bucketStart returns the start of the calendar bucket containing t.
// Weeks start on Monday.
func bucketStart(g domain.Granularity, t time.Time) time.Time {
	day := domain.StartOfDay(t)
	switch g {
	case domain.GranularityWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case domain.GranularityMonthly:
		return time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, day.Location())
	case domain.GranularityYearly:
		return time.Date(day.Year(), time.January, 1, 0, 0, 0, 0, day.Location())
	default:
		return day
	}
}

func nextBucket(g domain.Granularity, t time.Time) time.Time {
	switch g {
	case domain.GranularityWeekly:
		return t.AddDate(0, 0, 7)
	case domain.GranularityMonthly:
		return t.AddDate(0, 1, 0)
	case domain.GranularityYearly:
		return t.AddDate(1, 0, 0)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// Buckets splits [start, end) into calendar buckets of g, clipped to the window.
// An empty or inverted window yields no buckets.
func Buckets(g domain.Granularity, start, end time.Time) []domain.TimeWindow {
	if !start.Before(end) {
		return nil
	}
	g = ResolveGranularity(g, start, end)

	var out []domain.TimeWindow
	for bs := bucketStart(g, start); bs.Before(end); bs = nextBucket(g, bs) {
		be := nextBucket(g, bs)
		w := domain.TimeWindow{Start: bs, End: be}
		if w.Start.Before(start) {
			w.Start = start
		}
		if w.End.After(end) {
			w.End = end
		}
		out = append(out, w)
	}
	return out
}

type interval struct{ start, end int64 }

// mergedLength sums the union of the intervals.
func mergedLength(spans []interval) int64 {
	if len(spans) == 0 {
		return 0
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var total int64
	cur := spans[0]
	for _, s := range spans[1:] {
		if s.start <= cur.end {
			if s.end > cur.end {
				cur.end = s.end
			}
			continue
		}
		total += cur.end - cur.start
		cur = s
	}
	return total + cur.end - cur.start
}

type packageSpans struct {
	usage    []interval
	inFocus  []interval
	lastUsed int64
}

// aggregateBucket folds sessions clipped to w into one record per package,
// ordered by first appearance in sessions.
func aggregateBucket(sessions []Session, w domain.TimeWindow, visible bool) []domain.UsageRecord {
	ws, we := w.Start.UnixMilli(), w.End.UnixMilli()

	var order []string
	byPkg := make(map[string]*packageSpans)
	for _, s := range sessions {
		start, end := s.Start.UnixMilli(), s.End.UnixMilli()
		if start < ws {
			start = ws
		}
		if end > we {
			end = we
		}
		if end <= start {
			continue
		}

		ps, ok := byPkg[s.PackageID]
		if !ok {
			ps = &packageSpans{}
			byPkg[s.PackageID] = ps
			order = append(order, s.PackageID)
		}
		switch s.Kind {
		case StreamInFocus:
			ps.inFocus = append(ps.inFocus, interval{start, end})
		default:
			ps.usage = append(ps.usage, interval{start, end})
			used := end
			if !s.LastUsed.IsZero() {
				used = min(max(s.LastUsed.UnixMilli(), start), end)
			}
			if used > ps.lastUsed {
				ps.lastUsed = used
			}
		}
	}

	out := make([]domain.UsageRecord, 0, len(order))
	for _, pkg := range order {
		ps := byPkg[pkg]
		if len(ps.usage) == 0 {
			continue
		}
		rec := domain.UsageRecord{
			PackageID:         pkg,
			TotalForegroundMs: mergedLength(ps.usage),
			FirstTimestamp:    ws,
			LastTimestamp:     we,
			LastTimeUsed:      ps.lastUsed,
		}
		if visible {
			v := mergedLength(ps.inFocus)
			rec.TotalVisibleMs = &v
		}
		out = append(out, rec)
	}
	return out
}

// aggregateByGranularity buckets sessions over [start, end).
// Records are ordered by bucket, then by first appearance within the bucket.
func aggregateByGranularity(sessions []Session, g domain.Granularity, start, end time.Time, visible bool) []domain.UsageRecord {
	out := make([]domain.UsageRecord, 0)
	for _, w := range Buckets(g, start, end) {
		out = append(out, aggregateBucket(sessions, w, visible)...)
	}
	return out
}

// aggregateWindow merges sessions over the whole window, one record per package.
func aggregateWindow(sessions []Session, start, end time.Time, visible bool) map[string]domain.UsageRecord {
	out := make(map[string]domain.UsageRecord)
	if !start.Before(end) {
		return out
	}
	for _, rec := range aggregateBucket(sessions, domain.TimeWindow{Start: start, End: end}, visible) {
		out[rec.PackageID] = rec
	}
	return out
}
