package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/hearth-backend/internal/http/response"
	"github.com/yungbote/hearth-backend/internal/platform/dbctx"
	"github.com/yungbote/hearth-backend/internal/services"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	jobID, ok := pathUUID(c, "id", "invalid_job_id")
	if !ok {
		return
	}
	job, err := h.jobs.GetForUser(dbctx.Context{Ctx: c.Request.Context()}, userID, jobID)
	if err != nil {
		response.RespondAPIError(c, err, "job_not_found")
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}
