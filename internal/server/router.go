package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/nlp-tlp/quickgraph-sub000/internal/handlers"
	"github.com/nlp-tlp/quickgraph-sub000/internal/middleware"
	"github.com/nlp-tlp/quickgraph-sub000/internal/utils"
)

type RouterConfig struct {
	AuthMiddleware *middleware.AuthMiddleware

	MarkupHandler    *handlers.MarkupHandler
	DatasetHandler   *handlers.DatasetHandler
	AgreementHandler *handlers.AgreementHandler
	SocialHandler    *handlers.SocialHandler
	RealtimeHandler  *handlers.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(otelgin.Middleware("quickgraph"))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Health
	r.GET("/healthcheck", handlers.HealthCheck)

	api := r.Group("/api")

	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Markup
		if cfg.MarkupHandler != nil {
			protected.POST("/markup/apply", cfg.MarkupHandler.Apply)
			protected.PATCH("/markup/:id/accept", cfg.MarkupHandler.Accept)
			protected.DELETE("/markup/:id", cfg.MarkupHandler.Delete)
		}

		// Dataset
		if cfg.DatasetHandler != nil {
			protected.POST("/dataset/:project_id/filter", cfg.DatasetHandler.Filter)
			protected.POST("/dataset/:project_id/save", cfg.DatasetHandler.Save)
			protected.POST("/dataset/:project_id/flag", cfg.DatasetHandler.Flag)
			protected.POST("/dataset/:project_id/pretag", cfg.DatasetHandler.Pretag)
		}

		// Agreement
		if cfg.AgreementHandler != nil {
			protected.GET("/agreement/:project_id", cfg.AgreementHandler.Get)
		}

		// Social
		if cfg.SocialHandler != nil {
			protected.POST("/social/:project_id/comment", cfg.SocialHandler.AddComment)
			protected.GET("/notifications", cfg.SocialHandler.ListNotifications)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/sse/stream", cfg.RealtimeHandler.Stream)
			protected.POST("/sse/subscribe", cfg.RealtimeHandler.Subscribe)
			protected.POST("/sse/unsubscribe", cfg.RealtimeHandler.Unsubscribe)
		}
	}

	return r
}

func allowedOrigins() []string {
	raw := utils.GetEnv("CORS_ALLOW_ORIGINS", "", nil)
	if raw == "" {
		return []string{"http://localhost:3000", "http://localhost:5173"}
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
