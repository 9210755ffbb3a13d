package main

import (
	"context"
	"log"

	"github.com/mossy-p/videocall/config"
	"github.com/mossy-p/videocall/internal/handlers"
	"github.com/mossy-p/videocall/internal/redis"
	"github.com/mossy-p/videocall/internal/users"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	var (
		store    users.Store
		presence users.Presence
	)
	switch cfg.StoreBackend {
	case config.StoreRedis:
		rs, err := redis.Connect(context.Background(), cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer rs.Close()
		store, presence = rs, rs
		log.Println("Redis connection established")
	case config.StoreMemory:
		store = users.NewMemoryStore()
		log.Println("Using in-memory user store")
	default:
		log.Fatalf("Unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Global CORS middleware (runs before routing)
	router.Use(handlers.OriginFilter(cfg.AllowedOrigins))

	hub := handlers.NewHub(cfg.JWTSecret, presence)
	handlers.RegisterRoutes(router, store, hub, cfg.JWTSecret)

	// Start server
	log.Printf("Starting signaling relay on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
