package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"recon-engine/internal/reporting"
	"recon-engine/pkg/logger"
	"recon-engine/pkg/response"
)

// DiscrepancyHandler serves the discrepancy listing and summary endpoints.
type DiscrepancyHandler struct {
	reporting *reporting.Service
}

// NewDiscrepancyHandler builds a DiscrepancyHandler.
func NewDiscrepancyHandler(r *reporting.Service) *DiscrepancyHandler {
	return &DiscrepancyHandler{reporting: r}
}

// List godoc
// @Summary List discrepancies
// @Description List unmatched transactions, settlements, adjustments and amount mismatches with suggested matches
// @Tags discrepancies
// @Produce json
// @Param type query string false "unmatched_transaction, unmatched_settlement, unmatched_adjustment, amount_mismatch"
// @Param currency query string false "ISO currency code"
// @Param min_amount query number false "minimum amount"
// @Param priority query string false "high, medium, low"
// @Param limit query int false "page size, default 100"
// @Param offset query int false "page offset, default 0"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/discrepancies [get]
func (h *DiscrepancyHandler) List(c *gin.Context) {
	filter := reporting.Filter{
		Type:     c.Query("type"),
		Currency: c.Query("currency"),
		Priority: c.Query("priority"),
		Limit:    100,
		Offset:   0,
	}

	if raw := c.Query("min_amount"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			response.BadRequest(c, "invalid min_amount", err.Error())
			return
		}
		filter.MinAmount = &amount
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "invalid limit", err.Error())
			return
		}
		filter.Limit = limit
	}
	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "invalid offset", err.Error())
			return
		}
		filter.Offset = offset
	}

	report, err := h.reporting.GetDiscrepancies(c.Request.Context(), filter)
	if err != nil {
		logger.GetLogger().WithError(err).Error("failed to build discrepancy report")
		response.InternalError(c, "failed to load discrepancies", err.Error())
		return
	}

	response.Success(c, http.StatusOK, "discrepancies retrieved", report)
}

// Summary godoc
// @Summary Discrepancy summary
// @Description Aggregate unmatched value, average settlement time, chargeback rate and orphan count
// @Tags discrepancies
// @Produce json
// @Success 200 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/discrepancies/summary [get]
func (h *DiscrepancyHandler) Summary(c *gin.Context) {
	summary, err := h.reporting.GetSummary(c.Request.Context())
	if err != nil {
		logger.GetLogger().WithError(err).Error("failed to build summary")
		response.InternalError(c, "failed to load summary", err.Error())
		return
	}

	response.Success(c, http.StatusOK, "summary retrieved", summary)
}
