package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/readlearn/backend/internal/domain"
	"github.com/readlearn/backend/internal/logger"
	"github.com/readlearn/backend/internal/service"
)

// HealthDeps are the probes reported by /health and /stats.
type HealthDeps struct {
	// Ping checks the database connection.
	Ping func(ctx context.Context) error
	// CacheStats returns analysis cache entries and summed hits.
	CacheStats func(ctx context.Context) (int64, int64, error)
	Index      service.SimilarityIndex
	Embeddings *service.EmbeddingService
	Usage      *service.UsageAccountant
	KeyStatus  *service.ClassifierStatus

	SimilarityBackend string
	CachingEnabled    bool
	DefaultLanguage   string
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	deps    HealthDeps
	started time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(deps HealthDeps) *HealthHandler {
	if deps.DefaultLanguage == "" {
		deps.DefaultLanguage = domain.DefaultLanguage
	}
	return &HealthHandler{deps: deps, started: time.Now()}
}

// Health handles GET /health.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	keyValid := h.deps.KeyStatus != nil && h.deps.KeyStatus.Valid()

	if h.deps.Ping != nil {
		if err := h.deps.Ping(ctx); err != nil {
			logger.FromContext(ctx).WithError(err).Error("Health check: database unreachable")
			c.JSON(http.StatusInternalServerError, gin.H{
				"status":      "error",
				"apiKeyValid": keyValid,
				"database":    "disconnected",
				"error":       err.Error(),
			})
			return
		}
	}

	embeddings := string(service.EmbeddingDisabled)
	if h.deps.Embeddings != nil {
		embeddings = string(h.deps.Embeddings.State())
	}

	c.JSON(http.StatusOK, gin.H{
		"status":           "ok",
		"timestamp":        time.Now().UTC().Format(time.RFC3339Nano),
		"uptime":           time.Since(h.started).Seconds(),
		"apiKeyConfigured": h.deps.KeyStatus != nil && h.deps.KeyStatus.Configured(),
		"apiKeyValid":      keyValid,
		"database":         "connected",
		"caching":          h.deps.CachingEnabled,
		"embeddings":       embeddings,
		"similarity":       h.deps.SimilarityBackend,
	})
}

// Languages handles GET /languages.
func (h *HealthHandler) Languages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"languages": domain.SupportedLanguages,
		"total":     len(domain.SupportedLanguages),
		"default":   h.deps.DefaultLanguage,
	})
}

// Stats handles GET /stats.
func (h *HealthHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	fail := func(err error) {
		logger.FromContext(ctx).WithError(err).Error("Failed to fetch stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stats", "message": err.Error()})
	}

	var total, hits int64
	if h.deps.CacheStats != nil {
		var err error
		if total, hits, err = h.deps.CacheStats(ctx); err != nil {
			fail(err)
			return
		}
	}

	var articles int64
	if h.deps.Index != nil {
		var err error
		if articles, err = h.deps.Index.Count(ctx); err != nil {
			fail(err)
			return
		}
	}

	usage, err := h.deps.Usage.Summary24h(ctx)
	if err != nil {
		fail(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"cache": gin.H{
			"total":      total,
			"total_hits": hits,
		},
		"similarity": gin.H{
			"total":   articles,
			"backend": h.deps.SimilarityBackend,
		},
		"usage_24h": usage,
	})
}
