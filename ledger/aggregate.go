package ledger

import (
	"sort"
	"strings"

	"earn-ledger/models"
)

// LeaderboardEntry is one agent's ranked totals.
type LeaderboardEntry struct {
	AgentName string `json:"agent_name"`
	TotalSats int64  `json:"total_sats"`
	Claims    int    `json:"claims"`
}

// Leaderboard ranks agents by total sats, descending, ties kept in
// first-submission order, truncated to limit. countRejected decides whether
// forfeited claims contribute to the displayed totals; when false, rejected
// claims count neither sats nor claims.
func (s *Store) Leaderboard(limit int, countRejected bool) ([]LeaderboardEntry, models.Totals) {
	doc := s.Snapshot()

	byAgent := make(map[string]*LeaderboardEntry)
	var order []string
	for _, c := range doc.Claims {
		if !countRejected && c.Status == models.StatusRejected {
			continue
		}
		key := strings.ToLower(c.AgentName)
		e, ok := byAgent[key]
		if !ok {
			// Display name keeps the casing of the agent's first claim.
			e = &LeaderboardEntry{AgentName: c.AgentName}
			byAgent[key] = e
			order = append(order, key)
		}
		e.TotalSats += c.Sats
		e.Claims++
	}

	ranked := make([]LeaderboardEntry, 0, len(order))
	for _, key := range order {
		ranked = append(ranked, *byAgent[key])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].TotalSats > ranked[j].TotalSats
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, doc.Totals
}
