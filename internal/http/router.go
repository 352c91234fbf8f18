package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/pitchpanel/pitchpanel-backend/internal/http/handlers"
	httpMW "github.com/pitchpanel/pitchpanel-backend/internal/http/middleware"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/envutil"
	"github.com/pitchpanel/pitchpanel-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AuthMiddleware *httpMW.AuthMiddleware

	HealthHandler  *httpH.HealthHandler
	IdeaHandler    *httpH.IdeaHandler
	StageHandler   *httpH.StageHandler
	AnalyzeHandler *httpH.AnalyzeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	if envutil.Bool("GIN_RELEASE", false) {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()
	r.Use(httpMW.CORS())
	r.Use(httpMW.RequestLogger(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	protected := r.Group("/api")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Ideas (sequential evaluation pipeline)
		if cfg.IdeaHandler != nil {
			protected.POST("/ideas", cfg.IdeaHandler.Create)
			protected.GET("/ideas/:id", cfg.IdeaHandler.Get)
			protected.DELETE("/ideas/:id", cfg.IdeaHandler.Delete)
		}

		// Stages
		if cfg.StageHandler != nil {
			protected.POST("/ideas/:id/stages/:persona", cfg.StageHandler.Start)
			protected.POST("/ideas/:id/stages/:persona/messages", cfg.StageHandler.Message)
			protected.POST("/ideas/:id/stages/:persona/finish", cfg.StageHandler.Finish)
		}

		// Batch analyzer
		if cfg.AnalyzeHandler != nil {
			protected.POST("/analyze", cfg.AnalyzeHandler.Analyze)
		}
	}

	return r
}
