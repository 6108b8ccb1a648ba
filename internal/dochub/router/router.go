// Package router provides document hub service routing.
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/dochub/internal/dochub/handler"
	"github.com/kart-io/dochub/internal/dochub/metrics"
)

// Register registers the document hub routes.
func Register(engine *gin.Engine, hubHandler *handler.HubHandler) {
	logger.Info("Registering document hub routes...")

	// Health check
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Prometheus metrics
	engine.GET("/metrics", func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		c.String(http.StatusOK, metrics.GetHubMetrics().Export("dochub", "hub"))
	})

	v1 := engine.Group("/v1")
	{
		// Document lifecycle
		v1.POST("/documents", hubHandler.Ingest)
		v1.DELETE("/documents", hubHandler.DeleteDocument)

		// Query endpoint
		v1.POST("/query", hubHandler.Query)

		// Relevance endpoint
		v1.POST("/relevance", hubHandler.Relevance)

		// Introspection
		v1.GET("/stats", hubHandler.Stats)
		v1.GET("/models", hubHandler.Models)
	}

	logger.Info("HTTP routes registered")
}
