package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"recon-engine/internal/reconciler"
	"recon-engine/internal/reporting"
	"recon-engine/pkg/logger"
	"recon-engine/pkg/response"
)

// ReconcileHandler serves the run-reconciliation and run-status endpoints.
type ReconcileHandler struct {
	reconciler *reconciler.Service
	reporting  *reporting.Service
}

// NewReconcileHandler builds a ReconcileHandler.
func NewReconcileHandler(r *reconciler.Service, rep *reporting.Service) *ReconcileHandler {
	return &ReconcileHandler{reconciler: r, reporting: rep}
}

// ReconcileRequest optionally narrows the run to a date window.
type ReconcileRequest struct {
	DateFrom string `json:"date_from"`
	DateTo   string `json:"date_to"`
}

// Reconcile godoc
// @Summary Run reconciliation
// @Description Clear prior matches and run the five-phase matching pipeline over the current dataset
// @Tags reconciliation
// @Accept json
// @Produce json
// @Param request body ReconcileRequest false "Optional date window"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/reconcile [post]
func (h *ReconcileHandler) Reconcile(c *gin.Context) {
	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		response.ValidationError(c, err.Error())
		return
	}

	window, err := parseWindow(req.DateFrom, req.DateTo)
	if err != nil {
		response.BadRequest(c, "invalid date window", err.Error())
		return
	}

	summary, err := h.reconciler.Run(c.Request.Context(), window, time.Now)
	if err != nil {
		logger.GetLogger().WithError(err).Error("reconciliation run failed")
		response.InternalError(c, "reconciliation failed", err.Error())
		return
	}

	response.Success(c, http.StatusOK, "reconciliation completed", summary)
}

// Status godoc
// @Summary Reconciliation run status
// @Description Report the timestamp of the last run, total record count, and overall match rate
// @Tags reconciliation
// @Produce json
// @Success 200 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/reconcile/status [get]
func (h *ReconcileHandler) Status(c *gin.Context) {
	status, err := h.reporting.GetStatus(c.Request.Context())
	if err != nil {
		logger.GetLogger().WithError(err).Error("failed to load reconciliation status")
		response.InternalError(c, "failed to load status", err.Error())
		return
	}

	response.Success(c, http.StatusOK, "status retrieved", status)
}

func parseWindow(from, to string) (reconciler.Window, error) {
	var window reconciler.Window
	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return window, err
		}
		window.From = &t
	}
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return window, err
		}
		endOfDay := t.Add(23*time.Hour + 59*time.Minute + 59*time.Second)
		window.To = &endOfDay
	}
	return window, nil
}
