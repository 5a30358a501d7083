package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/kernelpilot-backend/internal/handlers"
	"github.com/yungbote/kernelpilot-backend/internal/middleware"
	"github.com/yungbote/kernelpilot-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log             *logger.Logger
	NotebookHandler *handlers.NotebookHandler
	DatasetHandler  *handlers.DatasetHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID(cfg.Log))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-Request-ID"},
		AllowCredentials: false,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	router.GET("/dataset/download/:searchTerm", cfg.DatasetHandler.Download)

	router.POST("/notebook/create/:name", cfg.NotebookHandler.Create)
	router.POST("/notebook/update/:name", cfg.NotebookHandler.Update)
	router.POST("/notebook/publish/:name", cfg.NotebookHandler.Publish)
	router.GET("/notebook/runs/:name", cfg.NotebookHandler.Runs)

	return router
}
