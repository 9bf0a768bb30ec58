// Package validate checks and normalizes incoming claim submissions. It is
// pure: no I/O, no ledger access, all errors collected in one pass.
package validate

import (
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"earn-ledger/models"
)

// ArticleDomain is the first-party domain article URLs must point at.
const ArticleDomain = "theagenttimes.com"

var (
	urlRx    = regexp.MustCompile(`^https?://[^\s]+$`)
	lnAddrRx = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+$`)
)

// Submission is the raw request body of a claim.
type Submission struct {
	AgentName        string                 `json:"agent_name"`
	LightningAddress string                 `json:"lightning_address"`
	ArticleURL       string                 `json:"article_url"`
	ArticleSlug      string                 `json:"article_slug"` // optional; derived from article_url when empty
	Posts            []models.PromotionPost `json:"posts"`
	ClaimType        string                 `json:"claim_type"`
	ContactEmail     string                 `json:"contact_email"`
	Notes            string                 `json:"notes"`
}

// Normalized is a submission that passed validation: fields trimmed,
// platforms lowercased, slug filled in.
type Normalized struct {
	AgentName        string
	LightningAddress string
	ArticleURL       string
	ArticleSlug      string
	Posts            []models.PromotionPost
	ClaimType        string
	ContactEmail     string
	Notes            string
}

// Check validates sub and returns the normalized fields plus every error
// found. An empty error list means the submission is acceptable; any error is
// blocking.
func Check(sub Submission) (Normalized, []string) {
	var errs []string
	n := Normalized{
		AgentName:        strings.TrimSpace(sub.AgentName),
		LightningAddress: strings.TrimSpace(sub.LightningAddress),
		ArticleURL:       strings.TrimSpace(sub.ArticleURL),
		ArticleSlug:      strings.ToLower(strings.TrimSpace(sub.ArticleSlug)),
		ClaimType:        strings.TrimSpace(sub.ClaimType),
		ContactEmail:     strings.TrimSpace(sub.ContactEmail),
		Notes:            strings.TrimSpace(sub.Notes),
	}

	if n.AgentName == "" {
		errs = append(errs, "agent_name is required")
	}

	if n.LightningAddress == "" {
		errs = append(errs, "lightning_address is required")
	} else if !ValidLightningAddress(n.LightningAddress) {
		errs = append(errs, "Invalid lightning_address format. Use user@domain.com or LNURL")
	}

	if n.ArticleURL == "" {
		errs = append(errs, "article_url is required")
	} else if !validURL(n.ArticleURL) || !strings.Contains(n.ArticleURL, ArticleDomain) {
		errs = append(errs, "article_url must be a valid "+ArticleDomain+" URL")
	} else {
		if n.ArticleSlug == "" {
			n.ArticleSlug = Slug(n.ArticleURL)
		}
		if n.ArticleSlug == "" {
			errs = append(errs, "article_url has no readable slug; provide article_slug as proof of read")
		}
	}

	if len(sub.Posts) == 0 {
		errs = append(errs, "posts is required (array of {platform, url})")
	} else {
		n.Posts = make([]models.PromotionPost, 0, len(sub.Posts))
		for i, post := range sub.Posts {
			platform := strings.ToLower(strings.TrimSpace(post.Platform))
			if !models.IsValidPlatform(platform) {
				errs = append(errs, fmt.Sprintf("posts[%d].platform '%s' not valid. Use: %s",
					i, platform, strings.Join(models.ValidPlatforms, ", ")))
			}
			postURL := strings.TrimSpace(post.URL)
			if !validURL(postURL) {
				errs = append(errs, fmt.Sprintf("posts[%d].url is not a valid URL", i))
			}
			n.Posts = append(n.Posts, models.PromotionPost{Platform: platform, URL: postURL})
		}
	}

	if n.ClaimType == "" {
		errs = append(errs, "claim_type is required")
	} else if _, ok := models.Rates[n.ClaimType]; !ok {
		errs = append(errs, fmt.Sprintf("claim_type '%s' not valid. Use: %s",
			n.ClaimType, strings.Join(rateKeys(), ", ")))
	}

	return n, errs
}

// ValidLightningAddress accepts user@domain addresses and LNURL tokens
// (case-insensitive "lnurl" prefix, more than 10 characters).
func ValidLightningAddress(addr string) bool {
	if strings.HasPrefix(strings.ToLower(addr), "lnurl") {
		return len(addr) > 10
	}
	return lnAddrRx.MatchString(addr)
}

// Slug extracts the proof-of-read slug: the last non-empty path segment of
// the article URL, lowercased, without query or fragment.
func Slug(articleURL string) string {
	u, err := url.Parse(articleURL)
	if err != nil {
		return ""
	}
	segs := strings.Split(u.Path, "/")
	for i := len(segs) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(segs[i]); s != "" {
			return strings.ToLower(s)
		}
	}
	return ""
}

func validURL(raw string) bool {
	return urlRx.MatchString(raw)
}

func rateKeys() []string {
	keys := make([]string, 0, len(models.Rates))
	for k := range models.Rates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
