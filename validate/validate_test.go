package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"earn-ledger/models"
)

func goodSubmission() Submission {
	return Submission{
		AgentName:        "Bot1",
		LightningAddress: "bot@wallet.example.com",
		ArticleURL:       "https://theagenttimes.com/my-article",
		Posts:            []models.PromotionPost{{Platform: "X", URL: "https://x.com/p/1"}},
		ClaimType:        "link_post",
	}
}

func TestCheck_ValidSubmission(t *testing.T) {
	n, errs := Check(goodSubmission())
	require.Empty(t, errs)
	assert.Equal(t, "Bot1", n.AgentName)
	assert.Equal(t, "my-article", n.ArticleSlug, "slug derived from the article URL")
	assert.Equal(t, "x", n.Posts[0].Platform, "platform lowercased")
}

func TestCheck_TrimsFields(t *testing.T) {
	sub := goodSubmission()
	sub.AgentName = "  Bot1  "
	sub.ClaimType = " link_post "
	n, errs := Check(sub)
	require.Empty(t, errs)
	assert.Equal(t, "Bot1", n.AgentName)
	assert.Equal(t, "link_post", n.ClaimType)
}

func TestCheck_ExplicitSlugWins(t *testing.T) {
	sub := goodSubmission()
	sub.ArticleSlug = "My-Article"
	n, errs := Check(sub)
	require.Empty(t, errs)
	assert.Equal(t, "my-article", n.ArticleSlug)
}

func TestCheck_CollectsAllErrors(t *testing.T) {
	_, errs := Check(Submission{})
	assert.ElementsMatch(t, []string{
		"agent_name is required",
		"lightning_address is required",
		"article_url is required",
		"posts is required (array of {platform, url})",
		"claim_type is required",
	}, errs)
}

func TestCheck_LightningAddress(t *testing.T) {
	cases := []struct {
		addr string
		ok   bool
	}{
		{"user@domain.com", true},
		{"user.name+tag@sub.domain.co", true},
		{"LNURL1DP68GURN8GHJ7MRWW4EXCTNZD9NHXATW", true},
		{"lnurl1dp68gurn", true},
		{"lnurl1", false}, // too short for an LNURL token
		{"not-an-address", false},
		{"user@", false},
		{"@domain.com", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, ValidLightningAddress(tc.addr), "addr %q", tc.addr)
	}

	sub := goodSubmission()
	sub.LightningAddress = "nonsense"
	_, errs := Check(sub)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "Invalid lightning_address")
}

func TestCheck_ArticleURL(t *testing.T) {
	sub := goodSubmission()
	sub.ArticleURL = "https://elsewhere.com/my-article"
	_, errs := Check(sub)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "theagenttimes.com")

	sub.ArticleURL = "ftp://theagenttimes.com/my-article"
	_, errs = Check(sub)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "theagenttimes.com")
}

func TestCheck_SlugRequiredWhenNotDerivable(t *testing.T) {
	sub := goodSubmission()
	sub.ArticleURL = "https://theagenttimes.com/"
	_, errs := Check(sub)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "slug")
}

func TestCheck_Posts(t *testing.T) {
	sub := goodSubmission()
	sub.Posts = []models.PromotionPost{
		{Platform: "myspace", URL: "https://myspace.example/p/1"},
		{Platform: "x", URL: "not a url"},
	}
	_, errs := Check(sub)
	require.Len(t, errs, 2)
	assert.Contains(t, errs[0], "posts[0].platform 'myspace' not valid")
	assert.Contains(t, errs[1], "posts[1].url is not a valid URL")
}

func TestCheck_PostURLTrimmedBeforeValidation(t *testing.T) {
	sub := goodSubmission()
	sub.Posts = []models.PromotionPost{{Platform: "x", URL: "  https://x.com/p/1  "}}
	n, errs := Check(sub)
	require.Empty(t, errs)
	assert.Equal(t, "https://x.com/p/1", n.Posts[0].URL)
}

func TestCheck_ClaimType(t *testing.T) {
	sub := goodSubmission()
	sub.ClaimType = "mystery_bonus"
	_, errs := Check(sub)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "claim_type 'mystery_bonus' not valid")
}

func TestSlug(t *testing.T) {
	cases := []struct {
		url  string
		want string
	}{
		{"https://theagenttimes.com/my-article", "my-article"},
		{"https://theagenttimes.com/section/my-article/", "my-article"},
		{"https://theagenttimes.com/My-Article?utm=1#top", "my-article"},
		{"https://theagenttimes.com/", ""},
		{"https://theagenttimes.com", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Slug(tc.url), "url %q", tc.url)
	}
}
