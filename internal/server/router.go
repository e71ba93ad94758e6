// Package server exposes the analyzer over HTTP.
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// New builds the gin engine with all API routes registered.
func New(h *Handler) *gin.Engine {
	r := gin.Default()

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	{
		api.GET("/posts", h.ListPosts)
		api.GET("/stats", h.Stats)
		api.POST("/analyze", h.Analyze)
		api.POST("/batch", h.StartBatch)
		api.GET("/batch/:id", h.BatchProgress)
		api.DELETE("/batch/:id", h.CancelBatch)
		api.POST("/reset", h.Reset)
	}

	// Downloaded media, for dashboards that want to show the images.
	r.Static("/images", h.imageDir)

	return r
}
