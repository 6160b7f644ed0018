package cron

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/recorrente/recorrente/internal/api/dto"
	ierr "github.com/recorrente/recorrente/internal/errors"
	"github.com/recorrente/recorrente/internal/logger"
	"github.com/recorrente/recorrente/internal/service"
	"github.com/recorrente/recorrente/internal/types"
)

// BillingHandler exposes the billing passes as cron-triggered endpoints.
// The scheduler posts here on its cadence; the same operations are
// callable ad hoc for replays and targeted re-syncs.
type BillingHandler struct {
	generator      service.ChargeGeneratorService
	reconciliation service.ReconciliationService
	logger         *logger.Logger
}

// NewBillingHandler creates a new billing cron handler
func NewBillingHandler(
	generator service.ChargeGeneratorService,
	reconciliation service.ReconciliationService,
	logger *logger.Logger,
) *BillingHandler {
	return &BillingHandler{
		generator:      generator,
		reconciliation: reconciliation,
		logger:         logger,
	}
}

// RunDueItemPass godoc
// @Summary Generate charges for due billable items
// @Tags cron
// @Accept json
// @Produce json
// @Success 200 {object} map[string]*dto.PassResponse
// @Router /cron/billing/charges [post]
func (h *BillingHandler) RunDueItemPass(c *gin.Context) {
	h.runForTargets(c, func(ctx context.Context) (*dto.PassResponse, error) {
		return h.generator.RunDueItemPass(ctx)
	})
}

// RunReconciliationPass godoc
// @Summary Reconcile open charges against the provider
// @Tags cron
// @Accept json
// @Produce json
// @Success 200 {object} map[string]*dto.PassResponse
// @Router /cron/billing/reconciliation [post]
func (h *BillingHandler) RunReconciliationPass(c *gin.Context) {
	h.runForTargets(c, func(ctx context.Context) (*dto.PassResponse, error) {
		return h.reconciliation.RunReconciliationPass(ctx)
	})
}

// ReconcileCharge godoc
// @Summary Re-sync a single charge against the provider
// @Tags cron
// @Produce json
// @Param charge_id path string true "Charge ID"
// @Success 200 {object} charge.Charge
// @Router /cron/billing/reconciliation/{charge_id} [post]
func (h *BillingHandler) ReconcileCharge(c *gin.Context) {
	chargeID := c.Param("charge_id")
	if chargeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "charge_id is required"})
		return
	}

	chg, err := h.reconciliation.ReconcileCharge(c.Request.Context(), chargeID)
	if err != nil {
		h.logger.Errorw("targeted reconciliation failed",
			"charge_id", chargeID,
			"error", err)
		c.JSON(ierr.HTTPStatusFromErr(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, chg)
}

// runForTargets executes the pass once per requested tenant target, or
// once under the request's ambient tenant when no targets are given
func (h *BillingHandler) runForTargets(c *gin.Context, pass func(context.Context) (*dto.PassResponse, error)) {
	var req dto.RunPassRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	if len(req.Targets) == 0 {
		response, err := pass(c.Request.Context())
		if err != nil {
			c.JSON(ierr.HTTPStatusFromErr(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": response})
		return
	}

	results := make(map[string]*dto.PassResponse, len(req.Targets))
	for _, target := range req.Targets {
		ctx := types.SetTenantID(c.Request.Context(), target.TenantID)
		if target.EnvironmentID != "" {
			ctx = types.SetEnvironmentID(ctx, target.EnvironmentID)
		}

		response, err := pass(ctx)
		if err != nil {
			h.logger.Errorw("pass failed for tenant",
				"tenant_id", target.TenantID,
				"error", err)
			results[target.TenantID] = &dto.PassResponse{
				Items: []dto.PassItemResult{{
					ID:     target.TenantID,
					Status: dto.PassItemFailed,
					Error:  err.Error(),
				}},
				Total:  1,
				Failed: 1,
			}
			continue
		}
		results[target.TenantID] = response
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}
