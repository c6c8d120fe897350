package ingest

// Categories is the fixed set of content topics, processed in this order
// on every scheduled run.
var Categories = []string{
	"startups",
	"funding",
	"ai",
	"fintech",
	"case-studies",
	"blockchain",
	"climate-tech",
}

// FallbackQuery is used for categories without a configured default query.
const FallbackQuery = "tech startup innovation"

var defaultQueries = map[string]string{
	"startups":     "startup launch founders",
	"funding":      "startup funding round venture capital",
	"ai":           "artificial intelligence startup",
	"fintech":      "fintech startup banking innovation",
	"case-studies": "startup success story growth",
	"blockchain":   "blockchain web3 startup",
	"climate-tech": "climate tech startup sustainability",
}

// DefaultQuery returns the search query used for a category.
func DefaultQuery(category string) string {
	if q, ok := defaultQueries[category]; ok {
		return q
	}
	return FallbackQuery
}

// Keywords returns the tag candidates for a category. A candidate is
// tagged onto an article only when it literally appears in the item's
// title or description.
func Keywords(category string) []string {
	return categoryKeywords[category]
}

var categoryKeywords = map[string][]string{
	"startups":     {"startup", "founder", "launch", "seed", "accelerator"},
	"funding":      {"funding", "venture capital", "series a", "series b", "investment", "round"},
	"ai":           {"ai", "artificial intelligence", "machine learning", "deep learning", "neural network"},
	"fintech":      {"fintech", "payments", "banking", "lending", "neobank"},
	"case-studies": {"case study", "growth", "strategy", "lessons", "playbook"},
	"blockchain":   {"blockchain", "web3", "crypto", "defi", "token"},
	"climate-tech": {"climate", "clean energy", "carbon", "sustainability", "solar"},
}
