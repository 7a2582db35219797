package policy

import (
	"sort"
	"time"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
)

// Default daily limits per category.
const (
	DefaultSocialLimit = 60 * time.Minute
	DefaultGamesLimit  = 120 * time.Minute
)

// UsagePolicy holds the daily limits and the bedtime period.
type UsagePolicy struct {
	CategoryLimits map[domain.Category]time.Duration
	AppLimits      map[string]time.Duration // keyed by package id
	Bedtime        Bedtime
}

// DefaultUsagePolicy returns the default limits and bedtime.
func DefaultUsagePolicy() UsagePolicy {
	return UsagePolicy{
		CategoryLimits: map[domain.Category]time.Duration{
			domain.CategorySocial: DefaultSocialLimit,
			domain.CategoryGames:  DefaultGamesLimit,
		},
		AppLimits: map[string]time.Duration{},
		Bedtime:   DefaultBedtime,
	}
}

// LimitScope tells whether a breach is for a single app or a whole category.
type LimitScope string

const (
	ScopeApp      LimitScope = "app"
	ScopeCategory LimitScope = "category"
)

// LimitBreach is a daily limit that has been reached.
type LimitBreach struct {
	Scope LimitScope
	Key   string // package id or category name
	Used  time.Duration
	Limit time.Duration
}

// Evaluate compares a day's usage summaries against the limits.
// A limit is breached when usage is greater than or equal to it.
// Breaches are sorted by scope then key.
func (p UsagePolicy) Evaluate(summaries []domain.UsageSummary, categorizer domain.Categorizer) []LimitBreach {
	perCategory := make(map[domain.Category]time.Duration)
	var breaches []LimitBreach

	for _, s := range summaries {
		used := time.Duration(s.TotalForegroundMs) * time.Millisecond
		perCategory[categorizer.Categorize(s.PackageID)] += used

		if limit, ok := p.AppLimits[s.PackageID]; ok && limit > 0 && used >= limit {
			breaches = append(breaches, LimitBreach{
				Scope: ScopeApp,
				Key:   s.PackageID,
				Used:  used,
				Limit: limit,
			})
		}
	}

	for category, limit := range p.CategoryLimits {
		if limit <= 0 {
			continue
		}
		if used := perCategory[category]; used >= limit {
			breaches = append(breaches, LimitBreach{
				Scope: ScopeCategory,
				Key:   string(category),
				Used:  used,
				Limit: limit,
			})
		}
	}

	sort.Slice(breaches, func(i, j int) bool {
		if breaches[i].Scope != breaches[j].Scope {
			return breaches[i].Scope < breaches[j].Scope
		}
		return breaches[i].Key < breaches[j].Key
	})
	return breaches
}
