// Package policy implements the Strategy pattern for usage classification and limits.
// Each category has its own rule deciding which packages belong to it.
package policy

import (
	"strings"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
)

// CategoryRule defines the strategy interface for classifying a package.
type CategoryRule interface {
	// Category returns the category this rule assigns.
	Category() domain.Category

	// Keywords returns the substrings that select this category.
	// Keywords are lower-case.
	Keywords() []string

	// Matches reports whether a lower-cased package identifier belongs to the category.
	Matches(lowerPackageID string) bool
}

// KeywordRule matches when any keyword is a substring of the package identifier.
type KeywordRule struct {
	category domain.Category
	keywords []string
}

// NewKeywordRule creates a rule for category; keywords are lower-cased.
func NewKeywordRule(category domain.Category, keywords ...string) *KeywordRule {
	lower := make([]string, len(keywords))
	for i, k := range keywords {
		lower[i] = strings.ToLower(k)
	}
	return &KeywordRule{category: category, keywords: lower}
}

func (r *KeywordRule) Category() domain.Category {
	return r.category
}

func (r *KeywordRule) Keywords() []string {
	return r.keywords
}

func (r *KeywordRule) Matches(lowerPackageID string) bool {
	for _, k := range r.keywords {
		if strings.Contains(lowerPackageID, k) {
			return true
		}
	}
	return false
}

// Ensure KeywordRule implements CategoryRule.
var _ CategoryRule = (*KeywordRule)(nil)
