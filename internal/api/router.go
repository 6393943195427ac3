package api

import (
	"github.com/gin-gonic/gin"
	"github.com/readlearn/backend/internal/api/handler"
	"github.com/readlearn/backend/internal/api/middleware"
	"github.com/readlearn/backend/internal/config"
	"github.com/readlearn/backend/internal/service"
	"github.com/readlearn/backend/internal/source"
)

// Deps are the services the router exposes.
type Deps struct {
	Analyzer   handler.Analyzer
	Definer    handler.Definer
	Health     handler.HealthDeps
	KeyStatus  middleware.KeyStatus
	RateLimits middleware.WindowCounter

	// Prewarm and Sources are only used when admin routes are enabled.
	Prewarm *service.PrewarmService
	Sources map[string]source.Source
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(cfg *config.Config, deps Deps) *gin.Engine {
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
	}))
	if cfg.Server.RateLimit.Enabled {
		counter := deps.RateLimits
		if counter == nil {
			counter = middleware.NewMemoryCounter()
		}
		r.Use(middleware.RateLimit(counter, middleware.RateLimitConfig{
			Window:      cfg.Server.RateLimit.Window(),
			MaxRequests: cfg.Server.RateLimit.MaxRequests,
			SkipPaths:   []string{"/health"},
		}))
	}

	healthHandler := handler.NewHealthHandler(deps.Health)
	analyzeHandler := handler.NewAnalyzeHandler(deps.Analyzer, cfg.Analysis.MaxTextLength, cfg.Analysis.DefaultLanguage)
	defineHandler := handler.NewDefineHandler(deps.Definer)
	requireKey := middleware.RequireValidKey(deps.KeyStatus)

	r.GET("/health", healthHandler.Health)
	r.GET("/languages", healthHandler.Languages)
	r.GET("/stats", healthHandler.Stats)

	r.POST("/analyze", requireKey, analyzeHandler.Analyze)
	r.POST("/define", requireKey, defineHandler.Define)
	r.POST("/define-batch", requireKey, defineHandler.DefineBatch)

	if cfg.Admin.Enabled && deps.Prewarm != nil {
		adminHandler := handler.NewAdminHandler(deps.Prewarm, deps.Sources)
		admin := r.Group("/admin")
		{
			admin.POST("/prewarm", requireKey, adminHandler.TriggerPrewarm)
			admin.GET("/prewarm/status", adminHandler.GetPrewarmStatus)
		}
	}

	return r
}
