package policy

import (
	"testing"

	"github.com/eliteGoblin/focusd/usage_mon/internal/domain"
)

func TestRegistry_Categorize(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		packageID string
		want      domain.Category
	}{
		{"com.instagram.android", domain.CategorySocial},
		{"com.whatsapp", domain.CategorySocial},
		{"org.telegram.messenger", domain.CategorySocial},
		{"com.mojang.minecraftpe", domain.CategoryGames},
		{"com.roblox.client", domain.CategoryGames},
		{"com.supercell.somegame", domain.CategoryGames},
		{"com.duolingo", domain.CategoryEducational},
		{"org.khanacademy.android", domain.CategoryEducational},
		{"com.microsoft.office.word", domain.CategoryProductivity},
		{"com.google.android.apps.docs", domain.CategoryProductivity},
		{"com.adobe.reader", domain.CategoryProductivity},
		{"com.example.flashlight", domain.CategoryOther},
		{"", domain.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.packageID, func(t *testing.T) {
			if got := r.Categorize(tt.packageID); got != tt.want {
				t.Errorf("Categorize(%q) = %s, want %s", tt.packageID, got, tt.want)
			}
		})
	}
}

func TestRegistry_Categorize_IsCaseInsensitive(t *testing.T) {
	r := NewRegistry()
	if got := r.Categorize("COM.Discord"); got != domain.CategorySocial {
		t.Errorf("expected social, got %s", got)
	}
}

func TestRegistry_Categorize_EarlierRuleWins(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		packageID string
		want      domain.Category
	}{
		{"instagramgamehub", domain.CategorySocial},      // social + games
		{"com.gamelearn.kids", domain.CategoryGames},     // games + educational
		{"com.school.notes", domain.CategoryEducational}, // educational + productivity
		{"com.facebook.office", domain.CategorySocial},   // social + productivity
	}

	for _, tt := range tests {
		if got := r.Categorize(tt.packageID); got != tt.want {
			t.Errorf("Categorize(%q) = %s, want %s", tt.packageID, got, tt.want)
		}
	}
}

func TestRegistry_RuleOrder(t *testing.T) {
	rules := NewRegistry().GetAll()

	want := []domain.Category{
		domain.CategorySocial,
		domain.CategoryGames,
		domain.CategoryEducational,
		domain.CategoryProductivity,
	}
	if len(rules) != len(want) {
		t.Fatalf("expected %d rules, got %d", len(want), len(rules))
	}
	for i, rule := range rules {
		if rule.Category() != want[i] {
			t.Errorf("rule %d: expected %s, got %s", i, want[i], rule.Category())
		}
	}
}

func TestRegistry_CustomRules(t *testing.T) {
	r := NewRegistryWithRules(
		NewKeywordRule(domain.CategoryProductivity, "Editor"),
		NewKeywordRule(domain.CategoryGames, "edit"),
	)

	if got := r.Categorize("com.example.editor"); got != domain.CategoryProductivity {
		t.Errorf("expected productivity, got %s", got)
	}
	if got := r.Categorize("com.example.viewer"); got != domain.CategoryOther {
		t.Errorf("expected other, got %s", got)
	}
}

func TestKeywordRule_LowerCasesKeywords(t *testing.T) {
	rule := NewKeywordRule(domain.CategorySocial, "FaceBook")
	if rule.Keywords()[0] != "facebook" {
		t.Errorf("expected lower-cased keyword, got %q", rule.Keywords()[0])
	}
	if !rule.Matches("com.facebook.katana") {
		t.Error("expected match")
	}
}
