package policy

import "github.com/eliteGoblin/focusd/usage_mon/internal/domain"

// NewSocialRule matches messaging and social network packages.
func NewSocialRule() *KeywordRule {
	return NewKeywordRule(domain.CategorySocial,
		"facebook",
		"instagram",
		"twitter",
		"snapchat",
		"tiktok",
		"whatsapp",
		"telegram",
		"discord",
	)
}

// NewGamesRule matches games and game launchers.
// "play" also matches store packages such as com.google.android.play.
func NewGamesRule() *KeywordRule {
	return NewKeywordRule(domain.CategoryGames,
		"game",
		"play",
		"minecraft",
		"roblox",
		"pubg",
		"fortnite",
	)
}

// NewEducationalRule matches learning apps.
func NewEducationalRule() *KeywordRule {
	return NewKeywordRule(domain.CategoryEducational,
		"edu",
		"learn",
		"school",
		"study",
		"duolingo",
		"khan",
	)
}

// NewProductivityRule matches office and creative tools.
func NewProductivityRule() *KeywordRule {
	return NewKeywordRule(domain.CategoryProductivity,
		"office",
		"docs",
		"sheets",
		"calendar",
		"notes",
		"adobe",
	)
}
