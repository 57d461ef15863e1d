package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"recon-engine/internal/domain"
	"recon-engine/internal/store"
	"recon-engine/pkg/logger"
	"recon-engine/pkg/response"
)

// MatchHandler serves the persisted match-result listing and lookup
// endpoints, reading straight through the store rather than the pipeline.
type MatchHandler struct {
	store store.Store
}

// NewMatchHandler builds a MatchHandler.
func NewMatchHandler(s store.Store) *MatchHandler {
	return &MatchHandler{store: s}
}

// List godoc
// @Summary List match results
// @Description List persisted match results, optionally filtered by confidence, status or match type
// @Tags matches
// @Produce json
// @Param confidence_min query int false "minimum confidence score"
// @Param status query string false "matched, pending_review"
// @Param match_type query string false "transaction_settlement, transaction_adjustment"
// @Param limit query int false "page size, default 100"
// @Param offset query int false "page offset, default 0"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/matches [get]
func (h *MatchHandler) List(c *gin.Context) {
	filter := store.MatchFilter{Limit: 100}

	if raw := c.Query("confidence_min"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "invalid confidence_min", err.Error())
			return
		}
		filter.ConfidenceMin = &v
	}
	if raw := c.Query("status"); raw != "" {
		status := domain.MatchStatus(raw)
		filter.Status = &status
	}
	if raw := c.Query("match_type"); raw != "" {
		matchType := domain.MatchType(raw)
		filter.MatchType = &matchType
	}
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "invalid limit", err.Error())
			return
		}
		filter.Limit = v
	}
	if raw := c.Query("offset"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			response.BadRequest(c, "invalid offset", err.Error())
			return
		}
		filter.Offset = v
	}

	matches, total, err := h.store.ListMatches(c.Request.Context(), filter)
	if err != nil {
		logger.GetLogger().WithError(err).Error("failed to list matches")
		response.InternalError(c, "failed to list matches", err.Error())
		return
	}

	response.Success(c, http.StatusOK, "matches retrieved", gin.H{
		"matches": matches,
		"total":   total,
	})
}

// GetByTransaction godoc
// @Summary Get match by transaction id
// @Description Look up the match result for one transaction
// @Tags matches
// @Produce json
// @Param transaction_id path string true "Transaction id"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 500 {object} response.Response
// @Router /api/v1/matches/{transaction_id} [get]
func (h *MatchHandler) GetByTransaction(c *gin.Context) {
	transactionID := c.Param("transaction_id")

	match, err := h.store.GetMatchByTransactionID(c.Request.Context(), transactionID)
	if errors.Is(err, store.ErrNotFound) {
		response.NotFound(c, "no match found for transaction")
		return
	}
	if err != nil {
		logger.GetLogger().WithError(err).WithField("transaction_id", transactionID).Error("failed to get match")
		response.InternalError(c, "failed to get match", err.Error())
		return
	}

	response.Success(c, http.StatusOK, "match retrieved", match)
}
