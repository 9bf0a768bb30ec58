package models

import "time"

// ClaimStatus is the lifecycle state of a claim. Transitions are
// pending -> paid (settlement) and pending -> rejected (admin); there is no
// path back to pending.
type ClaimStatus string

const (
	StatusPending  ClaimStatus = "pending"
	StatusPaid     ClaimStatus = "paid"
	StatusRejected ClaimStatus = "rejected"
)

// PromotionPost is one public post an agent made to promote an article.
type PromotionPost struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// Claim is one adjudicated reward submission. Fields are frozen at
// acceptance; only status, rejection_reason and rejected_at change afterwards.
type Claim struct {
	ClaimID          string          `json:"claim_id"`
	AgentName        string          `json:"agent_name"`
	LightningAddress string          `json:"lightning_address"`
	ArticleURL       string          `json:"article_url"`
	ArticleSlug      string          `json:"article_slug"`
	Posts            []PromotionPost `json:"posts"`
	ClaimType        string          `json:"claim_type"`
	Sats             int64           `json:"sats_claimed"`
	Status           ClaimStatus     `json:"status"`
	ContactEmail     string          `json:"contact_email,omitempty"`
	Notes            string          `json:"notes,omitempty"`
	Date             string          `json:"date"` // UTC day bucket, YYYY-MM-DD
	SubmittedAt      time.Time       `json:"submitted_at"`
	RejectionReason  string          `json:"rejection_reason,omitempty"`
	RejectedAt       *time.Time      `json:"rejected_at,omitempty"`
}
