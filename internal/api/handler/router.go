package handler

import (
	"time"

	"pairchat/backend/internal/media"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the gin engine with every route of the server.
func NewRouter(h *Handler) *gin.Engine {
	if !h.Config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(h.log))
	router.Use(Metrics())
	router.Use(cors.New(cors.Config{
		AllowOriginFunc:  h.Config.AllowOrigin,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws", h.ServeWebSocket)
	router.Static(media.RoutePrefix, h.Config.UploadDir)

	api := router.Group("/api")
	{
		api.GET("/token", h.IssueToken)
		api.GET("/users", h.ListUsers)
		api.GET("/conversation", h.GetConversation)
		api.GET("/messages", h.ListMessages)
		api.POST("/upload", h.Upload)
	}

	return router
}
