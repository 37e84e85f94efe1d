package main

// @title           Stream Service API
// @version         1.0
// @description     Real-time update broker: WebSocket streams, project subscriptions and update fan-out
// @host            localhost:8080
// @BasePath        /
// @schemes         http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stream-service/internal/adapters/kafka"
	"stream-service/internal/api/routes"
	"stream-service/internal/config"
	"stream-service/internal/database"
	"stream-service/internal/repositories/postgres"
	"stream-service/internal/services"
	"stream-service/internal/websocket"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting stream server")

	// Initialize Redis connection
	redisClient, err := database.NewRedisConnection(&cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	// Initialize PostgreSQL connection
	db, err := database.NewPostgresConnection(cfg.Database.URI)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize services
	redisService := services.NewRedisService(redisClient.GetClient())
	sessionService := services.NewSessionService(cfg.JWT.Secret, cfg.Stream.TicketTTL, redisService)
	projectRepo := postgres.NewProjectRepository(db)

	// Initialize stream hub
	hub := websocket.NewHub(sessionService, projectRepo, websocket.Options{
		FlushInterval: cfg.Stream.FlushInterval,
		SendBuffer:    cfg.Stream.SendBuffer,
		Presence:      redisService,
	})
	go hub.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Kafka ingestion is optional; HTTP /internal endpoints cover single-node setups
	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		consumer, err = kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Group, cfg.Kafka.Topic, hub)
		if err != nil {
			slog.Error("Failed to start Kafka consumer", "error", err)
			os.Exit(1)
		}
		go consumer.Run(ctx)
		slog.Info("Kafka consumer started", "topic", cfg.Kafka.Topic, "group", cfg.Kafka.Group)
	}

	// Initialize router with all dependencies
	gin.SetMode(gin.ReleaseMode)
	router := routes.NewRouter(hub, redisService, sessionService, cfg)
	router.SetupRoutes()

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// Stop ingesting before the hub stops accepting updates
	cancel()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			slog.Error("Failed to close Kafka consumer", "error", err)
		}
	}

	// Final flush, then close every stream
	hub.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
