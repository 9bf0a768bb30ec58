// Package ledger owns the reward-claim aggregate: the claim list, derived
// totals, ban set and rate windows. One Store instance is authoritative; all
// mutations run under a single exclusive writer and are durable before they
// return.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"earn-ledger/catalog"
	"earn-ledger/models"
	"earn-ledger/validate"
)

var (
	// ErrNotFound means no claim with the requested id exists.
	ErrNotFound = errors.New("ledger: claim not found")
	// ErrNotPending means a settlement was attempted on a non-pending claim.
	ErrNotPending = errors.New("ledger: claim is not pending")
	// ErrPersist wraps storage failures. Callers may retry the operation;
	// the in-memory state was not changed.
	ErrPersist = errors.New("ledger: persist failed")
)

// Rejection is a policy rejection with exactly one human-readable reason
// (ban, rate limit, unknown article, duplicate). It is never merged with
// validation errors.
type Rejection struct {
	Reason string
}

func (r *Rejection) Error() string { return r.Reason }

// Options configures a Store.
type Options struct {
	Path           string        // ledger document path
	Catalog        catalog.Lookup
	Logger         *zap.Logger
	RateCap        int           // default 10
	RateWindow     time.Duration // default 1h
	PersistTimeout time.Duration // default 5s
	Now            func() time.Time
}

// Store is the sole writer of the ledger aggregate.
type Store struct {
	mu             sync.Mutex
	doc            models.Document
	path           string
	catalog        catalog.Lookup
	log            *zap.Logger
	rateCap        int
	rateWindow     time.Duration
	persistTimeout time.Duration
	now            func() time.Time
}

// RejectReport is the outcome of a bulk agent rejection.
type RejectReport struct {
	RejectedCount int           `json:"rejected_count"`
	SatsForfeited int64         `json:"sats_forfeited"`
	Banned        bool          `json:"banned"`
	NewTotals     models.Totals `json:"new_totals"`
}

// Open loads the ledger document at opts.Path, upgrading older schemas and
// recomputing totals. A missing file yields an empty ledger. An unreadable or
// corrupt file is moved aside to <path>.corrupt-<unix> and logged; the store
// then starts empty rather than refusing to serve.
func Open(opts Options) (*Store, error) {
	if opts.Path == "" {
		return nil, errors.New("ledger: path is required")
	}
	if opts.Catalog == nil {
		return nil, errors.New("ledger: catalog lookup is required")
	}
	s := &Store{
		path:           opts.Path,
		catalog:        opts.Catalog,
		log:            opts.Logger,
		rateCap:        opts.RateCap,
		rateWindow:     opts.RateWindow,
		persistTimeout: opts.PersistTimeout,
		now:            opts.Now,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.rateCap <= 0 {
		s.rateCap = 10
	}
	if s.rateWindow <= 0 {
		s.rateWindow = time.Hour
	}
	if s.persistTimeout <= 0 {
		s.persistTimeout = 5 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	s.doc = doc
	return s, nil
}

func (s *Store) load() (models.Document, error) {
	empty := models.Document{
		Version:      models.DocumentVersion,
		BannedAgents: []string{},
		RateWindows:  map[string][]time.Time{},
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return empty, nil
		}
		return empty, fmt.Errorf("ledger read %s: %w", s.path, err)
	}
	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		aside := fmt.Sprintf("%s.corrupt-%d", s.path, s.now().Unix())
		if mvErr := os.Rename(s.path, aside); mvErr != nil {
			return empty, fmt.Errorf("ledger: corrupt document and unable to move it aside: %v (parse error: %w)", mvErr, err)
		}
		s.log.Error("corrupt ledger document moved aside, starting empty",
			zap.String("moved_to", aside), zap.Error(err))
		return empty, nil
	}

	// Schema upgrade: older documents lack the ban set and rate windows.
	if doc.RateWindows == nil {
		doc.RateWindows = map[string][]time.Time{}
	}
	if doc.BannedAgents == nil {
		doc.BannedAgents = []string{}
	}
	doc.Version = models.DocumentVersion

	recomputed := models.ComputeTotals(doc.Claims)
	if recomputed != doc.Totals {
		s.log.Error("ledger totals drift detected on load, using recomputed values",
			zap.Any("stored", doc.Totals), zap.Any("recomputed", recomputed))
		doc.Totals = recomputed
	}
	return doc, nil
}

// SubmitClaim runs the fraud checks and, on pass, commits a new pending
// claim. Check-and-commit is atomic with respect to other submissions: the
// checks, the claim append, the totals update and the rate-window record all
// happen under the writer lock against a single view of the ledger.
func (s *Store) SubmitClaim(ctx context.Context, sub validate.Normalized) (models.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	key := strings.ToLower(sub.AgentName)
	next := s.doc.Clone()

	if reason := s.checkBan(next, key); reason != "" {
		return models.Claim{}, &Rejection{Reason: reason}
	}

	window, reason := s.checkRateLimit(next, key, now)
	if len(window) == 0 {
		delete(next.RateWindows, key)
	} else {
		next.RateWindows[key] = window
	}
	if reason != "" {
		// The pruned window persists regardless of outcome.
		s.commitLocked(ctx, next, true)
		return models.Claim{}, &Rejection{Reason: reason}
	}

	known, err := s.catalog.HasSlug(ctx, sub.ArticleSlug)
	if err != nil {
		return models.Claim{}, fmt.Errorf("ledger: article catalog lookup: %w", err)
	}
	if !known {
		s.commitLocked(ctx, next, true)
		return models.Claim{}, &Rejection{
			Reason: fmt.Sprintf("Unknown article: no article found for slug '%s'", sub.ArticleSlug),
		}
	}

	if reason := s.checkDuplicate(next, sub, now); reason != "" {
		s.commitLocked(ctx, next, true)
		return models.Claim{}, &Rejection{Reason: reason}
	}

	rate := models.Rates[sub.ClaimType]
	claim := models.Claim{
		ClaimID:          s.newClaimID(next),
		AgentName:        sub.AgentName,
		LightningAddress: sub.LightningAddress,
		ArticleURL:       sub.ArticleURL,
		ArticleSlug:      sub.ArticleSlug,
		Posts:            sub.Posts,
		ClaimType:        sub.ClaimType,
		Sats:             rate.Sats,
		Status:           models.StatusPending,
		ContactEmail:     sub.ContactEmail,
		Notes:            sub.Notes,
		Date:             now.Format("2006-01-02"),
		SubmittedAt:      now,
	}
	next.Claims = append(next.Claims, claim)
	next.Totals.ClaimsCount++
	next.Totals.SatsPending += claim.Sats
	next.RateWindows[key] = append(window, now)

	s.verifyTotals(&next)
	if err := s.commitLocked(ctx, next, false); err != nil {
		return models.Claim{}, err
	}
	return claim, nil
}

// FindByID returns the claim with the given id.
func (s *Store) FindByID(id string) (models.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.doc.Claims {
		if c.ClaimID == id {
			return c, nil
		}
	}
	return models.Claim{}, ErrNotFound
}

// RejectAgent transitions every non-rejected claim of the agent to rejected,
// bans the agent and clears its rate window. Totals are recomputed from a
// full scan; incremental bookkeeping is never trusted after a bulk mutation.
// A second call for the same agent rejects nothing and changes no totals.
func (s *Store) RejectAgent(ctx context.Context, agent, reason string) (RejectReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	key := strings.ToLower(strings.TrimSpace(agent))
	next := s.doc.Clone()

	var report RejectReport
	for i := range next.Claims {
		c := &next.Claims[i]
		if strings.ToLower(c.AgentName) != key || c.Status == models.StatusRejected {
			continue
		}
		report.RejectedCount++
		report.SatsForfeited += c.Sats
		rejectedAt := now
		c.Status = models.StatusRejected
		c.RejectionReason = reason
		c.RejectedAt = &rejectedAt
	}

	newlyBanned := !s.banned(next, key)
	if newlyBanned {
		next.BannedAgents = append(next.BannedAgents, key)
	}
	_, hadWindow := next.RateWindows[key]
	delete(next.RateWindows, key)

	next.Totals = models.ComputeTotals(next.Claims)
	report.Banned = true
	report.NewTotals = next.Totals

	if report.RejectedCount > 0 || newlyBanned || hadWindow {
		if err := s.commitLocked(ctx, next, false); err != nil {
			return RejectReport{}, err
		}
		s.log.Info("agent rejected and banned",
			zap.String("agent", key),
			zap.String("reason", reason),
			zap.Int("rejected_count", report.RejectedCount),
			zap.Int64("sats_forfeited", report.SatsForfeited))
	}
	return report, nil
}

// MarkPaid records external settlement of a pending claim. Paid and rejected
// claims are terminal.
func (s *Store) MarkPaid(ctx context.Context, claimID string) (models.Claim, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc.Clone()
	idx := -1
	for i := range next.Claims {
		if next.Claims[i].ClaimID == claimID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return models.Claim{}, ErrNotFound
	}
	if next.Claims[idx].Status != models.StatusPending {
		return models.Claim{}, ErrNotPending
	}
	next.Claims[idx].Status = models.StatusPaid
	next.Totals = models.ComputeTotals(next.Claims)

	if err := s.commitLocked(ctx, next, false); err != nil {
		return models.Claim{}, err
	}
	s.log.Info("claim settled", zap.String("claim_id", claimID),
		zap.Int64("sats", next.Claims[idx].Sats))
	return next.Claims[idx], nil
}

// Snapshot returns a complete, non-torn copy of the ledger for read-only
// queries. Readers never observe in-progress writes.
func (s *Store) Snapshot() models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Totals returns the current ledger-wide totals.
func (s *Store) Totals() models.Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Totals
}

// verifyTotals cross-checks the incrementally maintained totals against a
// full fold. Drift is a programming error: DPanic makes it fatal under a
// development logger; in production it is logged and the recomputed values
// win.
func (s *Store) verifyTotals(doc *models.Document) {
	recomputed := models.ComputeTotals(doc.Claims)
	if recomputed != doc.Totals {
		s.log.DPanic("ledger totals drift detected, using recomputed values",
			zap.Any("incremental", doc.Totals), zap.Any("recomputed", recomputed))
		doc.Totals = recomputed
	}
}

// commitLocked persists next and, on success, makes it the current document.
// Must be called with the writer lock held. With bestEffort set, persistence
// failures are logged and the in-memory state is applied anyway (used for
// side effects like window pruning that must not mask a policy rejection).
func (s *Store) commitLocked(ctx context.Context, next models.Document, bestEffort bool) error {
	if err := s.persist(ctx, next); err != nil {
		if bestEffort {
			s.log.Warn("best-effort ledger persist failed", zap.Error(err))
			s.doc = next
			return nil
		}
		return err
	}
	s.doc = next
	return nil
}

// persist writes the whole document to a temp file in the same directory and
// renames it into place, bounded by the persist timeout. On timeout the
// caller gets a retryable ErrPersist and the mutation is not applied.
func (s *Store) persist(ctx context.Context, doc models.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrPersist, err)
	}
	done := make(chan error, 1)
	go func() { done <- writeAtomic(s.path, data) }()

	timer := time.NewTimer(s.persistTimeout)
	defer timer.Stop()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPersist, err)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: write timed out after %s", ErrPersist, s.persistTimeout)
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrPersist, ctx.Err())
	}
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".earn-ledger-*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// newClaimID assigns a fresh 12-character id, re-rolling on the (unlikely)
// collision with any previously issued id so ids are never reused.
func (s *Store) newClaimID(doc models.Document) string {
	for {
		id := uuid.NewString()[:12]
		used := false
		for _, c := range doc.Claims {
			if c.ClaimID == id {
				used = true
				break
			}
		}
		if !used {
			return id
		}
	}
}
