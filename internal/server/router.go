package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/llm-gateway/internal/handlers"
	"github.com/yungbote/llm-gateway/internal/middleware"
	"github.com/yungbote/llm-gateway/internal/observability"
)

type RouterConfig struct {
	ServiceName        string
	Version            string
	Metrics            *observability.Metrics
	CompletionsHandler *handlers.CompletionsHandler
	FilesHandler       *handlers.FilesHandler
	StatusHandler      *handlers.StatusHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: false,
	}))
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(middleware.RequestMetrics(cfg.Metrics))

	api := router.Group("/api/v1")
	{
		api.GET("/health", handlers.HealthCheck(cfg.ServiceName, cfg.Version))
		api.GET("/status", cfg.StatusHandler.Get)
		api.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
		api.POST("/chat/completions", cfg.CompletionsHandler.Create)
		api.POST("/files", cfg.FilesHandler.Upload)
	}

	return router
}
