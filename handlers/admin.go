package handlers

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"earn-ledger/ledger"
)

// Admin handles operator endpoints. Every route requires the configured
// admin token; an empty token disables the whole surface.
type Admin struct {
	Store *ledger.Store
	Token string
	Log   *zap.Logger
}

// RequireToken gates admin routes on the X-Admin-Token header.
func (h *Admin) RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.Token == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin interface disabled"})
			return
		}
		got := c.GetHeader("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.Token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"error": "invalid admin token"})
			return
		}
		c.Next()
	}
}

type rejectRequest struct {
	AgentName string `json:"agent_name"`
	Reason    string `json:"reason"`
}

// RejectAgent bulk-rejects every non-rejected claim of an agent and bans it.
// Running it twice is idempotent: the second call rejects 0 claims.
func (h *Admin) RejectAgent(c *gin.Context) {
	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be {agent_name, reason}"})
		return
	}
	req.AgentName = strings.TrimSpace(req.AgentName)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.AgentName == "" || req.Reason == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "agent_name and reason are required"})
		return
	}

	report, err := h.Store.RejectAgent(c.Request.Context(), req.AgentName, req.Reason)
	if err != nil {
		h.Log.Error("agent rejection failed", zap.String("agent", req.AgentName), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage failure, retry"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"rejected_count": report.RejectedCount,
		"sats_forfeited": report.SatsForfeited,
		"banned":         report.Banned,
		"new_totals": gin.H{
			"claims_count": report.NewTotals.ClaimsCount,
			"sats_pending": report.NewTotals.SatsPending,
			"sats_paid":    report.NewTotals.SatsPaid,
		},
	})
}

type settleRequest struct {
	ClaimID string `json:"claim_id"`
}

// SettleClaim records external settlement of one pending claim.
func (h *Admin) SettleClaim(c *gin.Context) {
	var req settleRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ClaimID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be {claim_id}"})
		return
	}
	claim, err := h.Store.MarkPaid(c.Request.Context(), strings.TrimSpace(req.ClaimID))
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "claim not found"})
	case errors.Is(err, ledger.ErrNotPending):
		c.JSON(http.StatusConflict, gin.H{"error": "claim is not pending"})
	case err != nil:
		h.Log.Error("claim settlement failed", zap.String("claim_id", req.ClaimID), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "storage failure, retry"})
	default:
		c.JSON(http.StatusOK, gin.H{
			"claim_id":     claim.ClaimID,
			"status":       claim.Status,
			"sats_claimed": claim.Sats,
		})
	}
}
