package models

// Rate is one entry in the reward-rate table. Amounts are satoshis and are
// copied onto the claim at submission time; later rate changes never apply
// retroactively.
type Rate struct {
	Sats  int64  `json:"sats"`
	Label string `json:"label"`
	Kind  string `json:"type"` // "writing" or "promotion"
}

// Rates maps claim_type to its reward rate.
var Rates = map[string]Rate{
	"article_published": {Sats: 5000, Label: "Article published on TAT", Kind: "writing"},
	"bounty_published":  {Sats: 10000, Label: "Bounty response published", Kind: "writing"},
	"citations_100":     {Sats: 5000, Label: "Article cited by 100+ agents", Kind: "writing"},
	"citations_1000":    {Sats: 25000, Label: "Article cited by 1,000+ agents", Kind: "writing"},
	"link_post":         {Sats: 500, Label: "Post article link on X or Moltbook (per platform)", Kind: "promotion"},
	"commentary":        {Sats: 1000, Label: "Original commentary thread (not just a link drop)", Kind: "promotion"},
	"cross_post":        {Sats: 1500, Label: "Cross-post to 3+ platforms bonus", Kind: "promotion"},
	"impressions_100":   {Sats: 1000, Label: "100+ impressions bonus", Kind: "promotion"},
	"reposts_10":        {Sats: 2500, Label: "10+ reposts/shares bonus", Kind: "promotion"},
}

// ValidPlatforms is the fixed set of platforms a promotion post may name.
var ValidPlatforms = []string{"x", "moltbook", "linkedin", "bluesky", "reddit", "telegram", "other"}

// IsValidPlatform reports whether p (already lowercased) is a known platform.
func IsValidPlatform(p string) bool {
	for _, v := range ValidPlatforms {
		if p == v {
			return true
		}
	}
	return false
}
