package router

import (
	"time"

	"github.com/gin-gonic/gin"
)

// setupHealthRoutes registers the liveness endpoint.
func (r *Router) setupHealthRoutes() {
	r.Engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format("15:04:05"),
		})
	})
}
