package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/suPer8Hu/rag-chat/internal/common"
	"github.com/suPer8Hu/rag-chat/internal/config"
	"github.com/suPer8Hu/rag-chat/internal/httpapi/handlers"
	"github.com/suPer8Hu/rag-chat/internal/httpapi/middleware"
)

func NewRouter(h *handlers.Handler, cfg config.Config) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(middleware.Recovery())
	if len(cfg.CORSAllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.CORSAllowOrigins,
			AllowMethods:  []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
			ExposeHeaders: []string{middleware.RequestIDHeader},
			MaxAge:        12 * time.Hour,
		}))
	}

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())

	r.GET("/ping", h.Ping)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/")
	api.Use(middleware.Identity(cfg.JWTSecret))
	api.GET("/models", h.ListModels)

	// ingest
	api.POST("/ingest", h.Ingest)
	api.GET("/collections", h.ListCollections)
	api.DELETE("/collections/:collection/docs/:doc_id", h.DeleteDocument)

	// chat
	api.POST("/chat", middleware.RateLimit(cfg.ChatRateLimit, cfg.ChatRateBurst), h.Chat)
	api.GET("/chat/sessions", h.ListSessions)
	api.GET("/chat/sessions/:session_id/messages", h.ListChatMessages)
	api.PATCH("/chat/sessions/:session_id", h.RenameSession)
	api.POST("/chat/sessions/:session_id/pin", h.PinSession)
	api.DELETE("/chat/sessions/:session_id", h.DeleteSession)
	return r
}
