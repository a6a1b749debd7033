package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/hearth-backend/internal/http/response"
	"github.com/yungbote/hearth-backend/internal/services"
)

type EntryHandler struct {
	entries services.EntryService
}

func NewEntryHandler(entries services.EntryService) *EntryHandler {
	return &EntryHandler{entries: entries}
}

// POST /api/entries
func (h *EntryHandler) CreateEntry(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	var in services.CreateEntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	entry, job, err := h.entries.Create(c.Request.Context(), userID, in)
	if err != nil {
		response.RespondAPIError(c, err, "create_entry_failed")
		return
	}
	response.RespondCreated(c, gin.H{"entry": entry, "job": job})
}

// GET /api/entries?before=&limit=
func (h *EntryHandler) ListEntries(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	entries, err := h.entries.List(c.Request.Context(), userID, queryTime(c, "before"), queryInt(c, "limit", 0))
	if err != nil {
		response.RespondAPIError(c, err, "list_entries_failed")
		return
	}
	response.RespondOK(c, gin.H{"entries": entries})
}

// GET /api/entries/:id
func (h *EntryHandler) GetEntry(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	entryID, ok := pathUUID(c, "id", "invalid_entry_id")
	if !ok {
		return
	}
	entry, err := h.entries.Get(c.Request.Context(), userID, entryID)
	if err != nil {
		response.RespondAPIError(c, err, "entry_not_found")
		return
	}
	response.RespondOK(c, gin.H{"entry": entry})
}

// PATCH /api/entries/:id
func (h *EntryHandler) UpdateEntry(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	entryID, ok := pathUUID(c, "id", "invalid_entry_id")
	if !ok {
		return
	}
	var in services.UpdateEntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	entry, err := h.entries.Update(c.Request.Context(), userID, entryID, in)
	if err != nil {
		response.RespondAPIError(c, err, "update_entry_failed")
		return
	}
	response.RespondOK(c, gin.H{"entry": entry})
}

// PUT /api/entries/:id/analysis
func (h *EntryHandler) AttachAnalysis(c *gin.Context) {
	userID, ok := requestUser(c)
	if !ok {
		return
	}
	entryID, ok := pathUUID(c, "id", "invalid_entry_id")
	if !ok {
		return
	}
	var raw json.RawMessage
	if err := c.ShouldBindJSON(&raw); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	entry, job, err := h.entries.AttachAnalysis(c.Request.Context(), userID, entryID, raw)
	if err != nil {
		response.RespondAPIError(c, err, "attach_analysis_failed")
		return
	}
	response.RespondOK(c, gin.H{"entry": entry, "job": job})
}
