package config

import "sort"

// CategoryWeights orders categories in help output; lower comes first.
var CategoryWeights = map[string]int{
	"utility":    0,
	"economy":    10,
	"levels":     20,
	"moderation": 30,
	"owner":      60,
}

// CategoryTitles are the display names for command categories.
var CategoryTitles = map[string]string{
	"utility":    "🔧 Utility",
	"economy":    "💰 Economy",
	"levels":     "📈 Levels",
	"moderation": "🛡️ Moderation",
	"owner":      "🛠️ Owner",
}

// CategoryTitle returns the display name of category, falling back to the raw name.
func CategoryTitle(category string) string {
	if t, ok := CategoryTitles[category]; ok {
		return t
	}
	return category
}

// SortCategories orders categories by weight, then by name. Unknown
// categories sort last.
func SortCategories(categories []string) {
	weight := func(c string) int {
		if w, ok := CategoryWeights[c]; ok {
			return w
		}
		return 1000
	}
	sort.SliceStable(categories, func(i, j int) bool {
		wi, wj := weight(categories[i]), weight(categories[j])
		if wi != wj {
			return wi < wj
		}
		return categories[i] < categories[j]
	})
}
