package policy

import (
	"strings"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
)

// Registry holds the category rules in priority order.
// The first matching rule wins, so a package matching both a social and a
// games keyword is social.
type Registry struct {
	rules []CategoryRule
}

// NewRegistry creates a registry with the default rules:
// social, games, educational, productivity.
func NewRegistry() *Registry {
	return NewRegistryWithRules(
		NewSocialRule(),
		NewGamesRule(),
		NewEducationalRule(),
		NewProductivityRule(),
	)
}

// NewRegistryWithRules creates a registry with custom rules (for testing).
func NewRegistryWithRules(rules ...CategoryRule) *Registry {
	r := &Registry{}
	for _, rule := range rules {
		r.Register(rule)
	}
	return r
}

// Register appends a rule at the lowest priority.
func (r *Registry) Register(rule CategoryRule) {
	r.rules = append(r.rules, rule)
}

// GetAll returns the rules in priority order.
func (r *Registry) GetAll() []CategoryRule {
	out := make([]CategoryRule, len(r.rules))
	copy(out, r.rules)
	return out
}

// Categorize returns the category of packageID, or CategoryOther if no rule matches.
func (r *Registry) Categorize(packageID string) domain.Category {
	lower := strings.ToLower(packageID)
	for _, rule := range r.rules {
		if rule.Matches(lower) {
			return rule.Category()
		}
	}
	return domain.CategoryOther
}

// Ensure Registry implements domain.Categorizer.
var _ domain.Categorizer = (*Registry)(nil)
