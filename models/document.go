package models

import "time"

// DocumentVersion is the current schema version of the persisted ledger
// document. Older documents are upgraded on load: missing collections default
// to empty and totals are recomputed from the claim list.
const DocumentVersion = 2

// Totals are derived counters over the claim list. They are maintained
// incrementally on submit and recomputed from a full scan after any bulk
// mutation.
type Totals struct {
	ClaimsCount int64 `json:"claims_count"`
	SatsPending int64 `json:"sats_pending"`
	SatsPaid    int64 `json:"sats_paid"`
}

// Document is the single durable ledger aggregate: all claims, the derived
// totals, the ban set and the per-agent rate windows. It is rewritten
// wholesale on every mutation.
type Document struct {
	Version      int                    `json:"version"`
	Claims       []Claim                `json:"claims"`
	Totals       Totals                 `json:"totals"`
	BannedAgents []string               `json:"banned_agents"` // stored lowercase
	RateWindows  map[string][]time.Time `json:"rate_windows"`  // keyed by lowercase agent name
}

// Clone returns a copy safe to mutate without affecting d. Claim post slices
// are shared; they are immutable once committed.
func (d Document) Clone() Document {
	out := d
	out.Claims = make([]Claim, len(d.Claims))
	copy(out.Claims, d.Claims)
	out.BannedAgents = append([]string(nil), d.BannedAgents...)
	out.RateWindows = make(map[string][]time.Time, len(d.RateWindows))
	for k, v := range d.RateWindows {
		out.RateWindows[k] = append([]time.Time(nil), v...)
	}
	return out
}

// ComputeTotals folds the claim list into fresh totals. Rejected claims count
// toward claims_count but contribute no sats.
func ComputeTotals(claims []Claim) Totals {
	var t Totals
	t.ClaimsCount = int64(len(claims))
	for _, c := range claims {
		switch c.Status {
		case StatusPending:
			t.SatsPending += c.Sats
		case StatusPaid:
			t.SatsPaid += c.Sats
		}
	}
	return t
}
