package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yocodex/backend/internal/auth"
	"github.com/yocodex/backend/internal/cache"
	"github.com/yocodex/backend/internal/config"
	"github.com/yocodex/backend/internal/database"
	"github.com/yocodex/backend/internal/handlers"
	"github.com/yocodex/backend/internal/logger"
	"github.com/yocodex/backend/internal/metrics"
	"github.com/yocodex/backend/internal/middleware"
	"github.com/yocodex/backend/internal/notify"
	"github.com/yocodex/backend/internal/realtime"
	"github.com/yocodex/backend/internal/social"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	cfg := config.Load()

	if err := logger.Initialize(cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Log.Info("YoCodex server starting",
		zap.String("environment", cfg.Environment),
	)

	if cfg.JWTSecret == "" {
		logger.Log.Fatal("JWT_SECRET environment variable is required")
	}

	// Initialize database
	if err := database.Initialize(cfg.DatabaseURL); err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		logger.Log.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Redis is optional: without it the server still works, caching and
	// distributed rate limiting are simply disabled.
	redisClient, err := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
	if err != nil {
		logger.Log.Warn("Redis unavailable, continuing without cache", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}
	cacheManager := cache.NewManager(redisClient)

	metrics.Initialize()

	// Realtime hub and WebSocket handler
	hub := realtime.NewHub()
	go hub.Run()
	wsHandler := realtime.NewHandler(hub, []byte(cfg.JWTSecret))

	// Core services
	notifyService := notify.NewService(database.DB, hub, cacheManager)
	socialService := social.NewService(database.DB, notifyService)
	authService := auth.NewService([]byte(cfg.JWTSecret))

	// Retention sweeper for read notifications
	sweeper := notify.NewSweeper(notifyService, cfg.NotificationMaxAge, cfg.NotificationSweepInterval)
	sweeper.Start()
	defer sweeper.Stop()

	h := handlers.NewHandlers(authService, notifyService, socialService, cacheManager)

	// Setup Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.GinLoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{"*"} // Configure properly for production
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization"}
	r.Use(cors.New(corsConfig))

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API routes
	api := r.Group("/api/v1")
	api.Use(middleware.RedisRateLimitMiddleware(redisClient, cfg.RateLimitRequests, cfg.RateLimitWindow))
	{
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", h.Register)
			authGroup.POST("/login", h.Login)
			authGroup.GET("/me", middleware.AuthMiddleware(authService), h.Me)
		}

		users := api.Group("/users")
		{
			users.GET("/:id", h.GetUser)
			users.GET("/:id/profile", h.GetUserProfile)
			users.GET("/:id/followers", h.GetFollowers)
			users.GET("/:id/following", h.GetFollowing)
			users.POST("/:id/follow", middleware.AuthMiddleware(authService), h.FollowUser)
			users.DELETE("/:id/follow", middleware.AuthMiddleware(authService), h.UnfollowUser)
		}

		posts := api.Group("/posts")
		{
			posts.GET("", h.ListPosts)
			posts.GET("/:id", h.GetPost)
			posts.GET("/:id/comments", h.ListComments)
			posts.POST("", middleware.AuthMiddleware(authService), h.CreatePost)
			posts.POST("/:id/like", middleware.AuthMiddleware(authService), h.LikePost)
			posts.POST("/:id/comments", middleware.AuthMiddleware(authService), h.CreateComment)
		}

		comments := api.Group("/comments")
		{
			comments.Use(middleware.AuthMiddleware(authService))
			comments.POST("/:id/like", h.LikeComment)
		}

		notifications := api.Group("/notifications")
		{
			notifications.Use(middleware.AuthMiddleware(authService))
			notifications.GET("", h.GetNotifications)
			notifications.GET("/unread-count", h.GetUnreadCount)
			notifications.PUT("/read-all", h.MarkAllNotificationsRead)
			notifications.PUT("/:id/read", h.MarkNotificationRead)
			notifications.DELETE("/:id", h.DeleteNotification)
			notifications.DELETE("", h.DeleteAllNotifications)
		}

		ws := api.Group("/ws")
		{
			// Auth via query param ?token=... or Authorization header
			ws.GET("", wsHandler.HandleWebSocket)
			ws.GET("/metrics", middleware.AuthMiddleware(authService), wsHandler.HandleMetrics)
		}
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info("YoCodex backend listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server")

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Shutdown WebSocket connections gracefully
	if err := hub.Shutdown(ctx); err != nil {
		logger.Log.Warn("WebSocket shutdown incomplete", zap.Error(err))
	}

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Log.Info("Server exited")
}
