package handler

import (
	"errors"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"github.com/readlearn/backend/internal/logger"
	"github.com/readlearn/backend/internal/service"
	"github.com/readlearn/backend/internal/source"
)

// AdminHandler handles admin operations.
type AdminHandler struct {
	prewarm *service.PrewarmService
	sources map[string]source.Source
}

// NewAdminHandler creates a new admin handler.
// Parameters:
//   - prewarm: prewarm service instance.
//   - sources: article sources keyed by name.
//
// Returns:
//   - *AdminHandler: initialized handler.
func NewAdminHandler(prewarm *service.PrewarmService, sources map[string]source.Source) *AdminHandler {
	return &AdminHandler{prewarm: prewarm, sources: sources}
}

// PrewarmRequest represents the prewarm API request.
type PrewarmRequest struct {
	Source string `json:"source" binding:"required"`
	Limit  int    `json:"limit" binding:"omitempty,min=1,max=100000"`
}

// TriggerPrewarm handles POST /admin/prewarm. The job runs in the background.
func (h *AdminHandler) TriggerPrewarm(c *gin.Context) {
	ctx := c.Request.Context()

	var req PrewarmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.CtxWarn(ctx, "Invalid prewarm request: client_ip=%s, error=%v", c.ClientIP(), err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	src, ok := h.sources[req.Source]
	if !ok {
		logger.CtxWarn(ctx, "Unknown source requested: source=%s, client_ip=%s", req.Source, c.ClientIP())
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Unknown source: " + req.Source,
			"sources": h.sourceNames(),
		})
		return
	}

	jobID, err := h.prewarm.Start(ctx, src, req.Limit)
	if errors.Is(err, service.ErrPrewarmRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": "Prewarm is already running"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	logger.CtxInfo(ctx, "Prewarm started: job_id=%s, source=%s, limit=%d", jobID, req.Source, req.Limit)
	c.JSON(http.StatusAccepted, gin.H{
		"message": "Prewarm started",
		"job_id":  jobID,
	})
}

// GetPrewarmStatus handles GET /admin/prewarm/status.
func (h *AdminHandler) GetPrewarmStatus(c *gin.Context) {
	status, ok := h.prewarm.Status()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"running": false, "sources": h.sourceNames()})
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *AdminHandler) sourceNames() []string {
	names := make([]string, 0, len(h.sources))
	for name := range h.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
