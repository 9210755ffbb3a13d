package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/mossy-p/videocall/internal/middleware"
	"github.com/mossy-p/videocall/internal/users"
)

// RegisterRoutes mounts the registration API and the signaling endpoint.
func RegisterRoutes(router *gin.Engine, store users.Store, hub *Hub, jwtSecret string) {
	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/register", Register(store, jwtSecret))
		apiGroup.GET("/login", Login(store, jwtSecret))

		// Online roster (requires JWT)
		apiGroup.GET("/users/online", middleware.JWTAuth(jwtSecret), OnlineUsers(hub))
	}

	wsGroup := router.Group("/ws")
	{
		// The token query parameter must belong to :name
		wsGroup.GET("/signal/:name", HandleSignaling(hub))
	}
}
