package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/hearth-backend/internal/domain"
	"github.com/yungbote/hearth-backend/internal/http/response"
	"github.com/yungbote/hearth-backend/internal/services"
)

type GoalHandler struct {
	goals services.GoalService
}

func NewGoalHandler(goals services.GoalService) *GoalHandler {
	return &GoalHandler{goals: goals}
}

// GET /api/goals?state=active,paused
func (h *GoalHandler) ListGoals(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var states []types.GoalState
	for _, s := range queryList(c, "state") {
		states = append(states, types.GoalState(s))
	}
	goals, err := h.goals.List(c.Request.Context(), userID, states)
	if err != nil {
		response.RespondAPIError(c, err, "list_goals_failed")
		return
	}
	response.RespondOK(c, gin.H{"goals": goals})
}

type goalActionRequest struct {
	Action string `json:"action" binding:"required"`
}

// POST /api/goals/:topic/actions
func (h *GoalHandler) ApplyAction(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var req goalActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	res, err := h.goals.ApplyAction(c.Request.Context(), userID, c.Param("topic"), req.Action)
	if err != nil {
		response.RespondAPIError(c, err, "goal_action_failed")
		return
	}
	response.RespondOK(c, gin.H{
		"status": res.Status,
		"reason": res.Reason,
		"from":   res.From,
		"to":     res.To,
		"goal":   res.State,
	})
}
