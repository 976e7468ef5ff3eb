// Package router provides docchat service routing.
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/docchat/internal/docchat/handler"
	"github.com/kart-io/docchat/internal/pkg/middleware"
	"github.com/kart-io/docchat/pkg/id"
)

// New builds the gin engine with all docchat routes registered.
func New(h *handler.DocChatHandler, idgen id.Generator) *gin.Engine {
	engine := gin.New()
	engine.Use(
		middleware.RequestID(idgen),
		middleware.Logger(),
		middleware.Recovery(),
		middleware.CORS(),
	)

	engine.GET("/healthz", h.Healthz)

	api := engine.Group("/api/v1")
	{
		api.POST("/ingest", h.Ingest)
		api.POST("/chat", h.Chat)
		api.GET("/session", h.GetSession)
		api.PUT("/session", h.SaveSession)
		api.DELETE("/session", h.ResetSession)
		api.GET("/collections/:name/stats", h.Stats)
		api.DELETE("/collections/:name", h.DeleteCollection)
	}

	logger.Info("HTTP routes registered")
	return engine
}
