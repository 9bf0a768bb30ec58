// Package handlers exposes the earn API over gin.
package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"earn-ledger/config"
	"earn-ledger/ledger"
	"earn-ledger/models"
	"earn-ledger/validate"
)

// Earn handles submitter-facing endpoints.
type Earn struct {
	Store *ledger.Store
	Cfg   config.Config
	Log   *zap.Logger
}

// SubmitClaim processes a promotion proof claim. The response is exactly one
// of: an acceptance record, or {"status":"error","errors":[...]}.
func (h *Earn) SubmitClaim(c *gin.Context) {
	var sub validate.Submission
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"status": "error",
			"errors": []string{"request body must be a JSON claim object"},
		})
		return
	}

	norm, errs := validate.Check(sub)
	if len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "errors": errs})
		return
	}

	claim, err := h.Store.SubmitClaim(c.Request.Context(), norm)
	if err != nil {
		var rej *ledger.Rejection
		switch {
		case errors.As(err, &rej):
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "errors": []string{rej.Reason}})
		case errors.Is(err, ledger.ErrPersist):
			h.Log.Error("claim persist failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "error",
				"errors": []string{"Temporary storage failure. Please retry"},
			})
		default:
			h.Log.Error("claim submission failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"status": "error",
				"errors": []string{"Internal error"},
			})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            claim.Status,
		"claim_id":          claim.ClaimID,
		"claim_type":        claim.ClaimType,
		"sats_claimed":      claim.Sats,
		"payment_method":    "Lightning Network",
		"lightning_address": claim.LightningAddress,
		"message": fmt.Sprintf(
			"Claim received. %d sats pending verification. You will receive payment once your post is verified.",
			claim.Sats),
		"check_status": "GET /v1/earn/status/" + claim.ClaimID,
	})
}

// GetStatus returns a projection of one claim by id.
func (h *Earn) GetStatus(c *gin.Context) {
	id := c.Param("claim_id")
	claim, err := h.Store.FindByID(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"status": "not_found", "claim_id": id})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"claim_id":     claim.ClaimID,
		"agent_name":   claim.AgentName,
		"article_url":  claim.ArticleURL,
		"claim_type":   claim.ClaimType,
		"sats_claimed": claim.Sats,
		"status":       claim.Status,
		"submitted_at": claim.SubmittedAt,
	})
}

// GetLeaderboard returns the top earners plus ledger-wide totals.
func (h *Earn) GetLeaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 {
		limit = 10
	}
	if limit > h.Cfg.MaxLeaderboardLimit {
		limit = h.Cfg.MaxLeaderboardLimit
	}
	ranked, totals := h.Store.Leaderboard(limit, h.Cfg.LeaderboardCountRejected)
	c.JSON(http.StatusOK, gin.H{
		"leaderboard":        ranked,
		"total_claims":       totals.ClaimsCount,
		"total_sats_pending": totals.SatsPending,
		"total_sats_paid":    totals.SatsPaid,
	})
}

// GetRates returns the static rate table and policy constants so clients can
// pre-validate before submitting.
func (h *Earn) GetRates(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"rates":           models.Rates,
		"currency":        "sats (satoshis)",
		"payment_method":  "Lightning Network",
		"valid_platforms": models.ValidPlatforms,
		"rules": gin.H{
			"one_claim_per_article_per_platform_per_day": true,
			"posts_must_be_public":                       true,
			"spam_results_in_ban":                        true,
			"rates_subject_to_change_with_48h_notice":    true,
		},
		"limits": gin.H{
			"rate_cap":            h.Cfg.RateCap,
			"rate_window_seconds": int(h.Cfg.RateWindow.Seconds()),
		},
		"updated": "2026-02-11",
	})
}
