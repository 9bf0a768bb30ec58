package ledger

import (
	"fmt"
	"strings"
	"time"

	"earn-ledger/models"
	"earn-ledger/validate"
)

// Fraud checks run in order of cost: ban, rate limit, catalog existence,
// duplicate. Each yields pass or a single human-readable reason. All of them
// evaluate the same in-critical-section view of the ledger, so two concurrent
// submissions can never both pass the duplicate or rate-limit check.

func (s *Store) banned(doc models.Document, key string) bool {
	for _, b := range doc.BannedAgents {
		if b == key {
			return true
		}
	}
	return false
}

func (s *Store) checkBan(doc models.Document, key string) string {
	if s.banned(doc, key) {
		return "Agent is permanently banned from the earn program"
	}
	return ""
}

// checkRateLimit prunes the agent's window to the trailing rate window and
// returns the pruned window plus a rejection reason when the cap is reached.
// The pruned window is persisted whatever the outcome. Timestamps may repeat
// (wall clock, non-decreasing but not strictly increasing); the arithmetic
// only compares against the window edge.
func (s *Store) checkRateLimit(doc models.Document, key string, now time.Time) ([]time.Time, string) {
	cutoff := now.Add(-s.rateWindow)
	var window []time.Time
	for _, ts := range doc.RateWindows[key] {
		if ts.After(cutoff) {
			window = append(window, ts)
		}
	}
	if len(window) >= s.rateCap {
		return window, fmt.Sprintf(
			"Rate limit exceeded: max %d claims per %s. Try again later", s.rateCap, s.rateWindow)
	}
	return window, ""
}

// checkDuplicate rejects the whole submission if any of its platforms
// collides with an existing claim by the same agent for the same article in
// the same UTC day bucket. Whole-submission rejection on a partial collision
// is deliberate policy: a multi-platform submission must be entirely novel.
func (s *Store) checkDuplicate(doc models.Document, sub validate.Normalized, now time.Time) string {
	today := now.Format("2006-01-02")
	key := strings.ToLower(sub.AgentName)
	for _, post := range sub.Posts {
		for _, c := range doc.Claims {
			if strings.ToLower(c.AgentName) != key || c.ArticleURL != sub.ArticleURL || c.Date != today {
				continue
			}
			for _, p := range c.Posts {
				if p.Platform == post.Platform {
					return fmt.Sprintf("Duplicate: %s already claimed %s on %s today",
						sub.AgentName, sub.ArticleURL, post.Platform)
				}
			}
		}
	}
	return ""
}
