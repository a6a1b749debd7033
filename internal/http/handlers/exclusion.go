package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/hearth-backend/internal/http/response"
	"github.com/yungbote/hearth-backend/internal/services"
)

type ExclusionHandler struct {
	exclusions services.ExclusionService
}

func NewExclusionHandler(exclusions services.ExclusionService) *ExclusionHandler {
	return &ExclusionHandler{exclusions: exclusions}
}

// POST /api/exclusions
func (h *ExclusionHandler) CreateExclusion(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var in services.CreateExclusionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	x, err := h.exclusions.Create(c.Request.Context(), userID, in)
	if err != nil {
		response.RespondAPIError(c, err, "create_exclusion_failed")
		return
	}
	response.RespondCreated(c, gin.H{"exclusion": x})
}

// GET /api/exclusions
func (h *ExclusionHandler) ListExclusions(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	rows, err := h.exclusions.List(c.Request.Context(), userID)
	if err != nil {
		response.RespondAPIError(c, err, "list_exclusions_failed")
		return
	}
	response.RespondOK(c, gin.H{"exclusions": rows})
}

// DELETE /api/exclusions/:id
func (h *ExclusionHandler) DeleteExclusion(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id", "invalid_exclusion_id")
	if !ok {
		return
	}
	if err := h.exclusions.Delete(c.Request.Context(), userID, id); err != nil {
		response.RespondAPIError(c, err, "exclusion_not_found")
		return
	}
	c.Status(http.StatusNoContent)
}
