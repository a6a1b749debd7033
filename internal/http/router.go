package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/hearth-backend/internal/http/handlers"
	httpMW "github.com/yungbote/hearth-backend/internal/http/middleware"
	"github.com/yungbote/hearth-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	CORSOrigins    []string
	AuthMiddleware *httpMW.AuthMiddleware

	EntryHandler     *httpH.EntryHandler
	GoalHandler      *httpH.GoalHandler
	InsightHandler   *httpH.InsightHandler
	ExclusionHandler *httpH.ExclusionHandler
	JobHandler       *httpH.JobHandler
	RealtimeHandler  *httpH.RealtimeHandler
	HealthHandler    *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	if cfg.Log != nil {
		r.Use(httpMW.RequestLogger(cfg.Log))
	}
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	protected := r.Group("/api")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		}

		// Entries
		if cfg.EntryHandler != nil {
			protected.POST("/entries", cfg.EntryHandler.CreateEntry)
			protected.GET("/entries", cfg.EntryHandler.ListEntries)
			protected.GET("/entries/:id", cfg.EntryHandler.GetEntry)
			protected.PATCH("/entries/:id", cfg.EntryHandler.UpdateEntry)
			protected.PUT("/entries/:id/analysis", cfg.EntryHandler.AttachAnalysis)
		}

		// Goals
		if cfg.GoalHandler != nil {
			protected.GET("/goals", cfg.GoalHandler.ListGoals)
			protected.POST("/goals/:topic/actions", cfg.GoalHandler.ApplyAction)
		}

		// Patterns and burnout
		if cfg.InsightHandler != nil {
			protected.GET("/patterns", cfg.InsightHandler.GetPatterns)
			protected.POST("/patterns/recompute", cfg.InsightHandler.RecomputePatterns)
			protected.GET("/burnout", cfg.InsightHandler.GetBurnout)
			protected.POST("/burnout/assess", cfg.InsightHandler.AssessBurnout)
			protected.GET("/burnout/history", cfg.InsightHandler.BurnoutHistory)
		}

		// Exclusions
		if cfg.ExclusionHandler != nil {
			protected.GET("/exclusions", cfg.ExclusionHandler.ListExclusions)
			protected.POST("/exclusions", cfg.ExclusionHandler.CreateExclusion)
			protected.DELETE("/exclusions/:id", cfg.ExclusionHandler.DeleteExclusion)
		}

		// Jobs
		if cfg.JobHandler != nil {
			protected.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}
	}

	return r
}
