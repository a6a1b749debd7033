package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/hearth-backend/internal/http/response"
	"github.com/yungbote/hearth-backend/internal/insights/patterns"
	"github.com/yungbote/hearth-backend/internal/services"
)

type InsightHandler struct {
	insights services.InsightService
	queries  services.InsightQueryService
}

func NewInsightHandler(insights services.InsightService, queries services.InsightQueryService) *InsightHandler {
	return &InsightHandler{insights: insights, queries: queries}
}

// GET /api/patterns?category=
func (h *InsightHandler) GetPatterns(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	category := c.Query("category")
	docs, err := h.queries.Patterns(c.Request.Context(), userID, category)
	if err != nil {
		response.RespondAPIError(c, err, "get_patterns_failed")
		return
	}
	response.RespondOK(c, gin.H{"scope": patterns.ScopeFor(category), "patterns": docs})
}

type recomputeRequest struct {
	Category string `json:"category"`
}

// POST /api/patterns/recompute
func (h *InsightHandler) RecomputePatterns(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var req recomputeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	bundle, err := h.insights.RecomputePatterns(c.Request.Context(), userID, req.Category)
	if err != nil {
		response.RespondAPIError(c, err, "pattern_recompute_failed")
		return
	}
	if bundle == nil {
		response.RespondOK(c, gin.H{"scope": patterns.ScopeFor(req.Category), "insufficient_data": true})
		return
	}
	response.RespondOK(c, gin.H{"scope": bundle.Scope, "patterns": bundle})
}

// GET /api/burnout
func (h *InsightHandler) GetBurnout(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	a, err := h.queries.LatestBurnout(c.Request.Context(), userID)
	if err != nil {
		response.RespondAPIError(c, err, "get_burnout_failed")
		return
	}
	response.RespondOK(c, gin.H{"burnout": a})
}

// POST /api/burnout/assess
func (h *InsightHandler) AssessBurnout(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	a, err := h.insights.AssessBurnout(c.Request.Context(), userID, true)
	if err != nil {
		response.RespondAPIError(c, err, "burnout_assess_failed")
		return
	}
	response.RespondOK(c, gin.H{"burnout": a})
}

// GET /api/burnout/history?limit=
func (h *InsightHandler) BurnoutHistory(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	rows, err := h.queries.BurnoutHistory(c.Request.Context(), userID, queryInt(c, "limit", 30))
	if err != nil {
		response.RespondAPIError(c, err, "burnout_history_failed")
		return
	}
	response.RespondOK(c, gin.H{"history": rows})
}
