package routes

import (
	"net/http"
	"time"

	"stream-service/internal/api/handlers"
	"stream-service/internal/api/middleware"
	"stream-service/internal/config"
	"stream-service/internal/models"
	"stream-service/internal/websocket"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "stream-service/docs"
)

type Router struct {
	engine          *gin.Engine
	streamHandler   *handlers.StreamHandler
	internalHandler *handlers.InternalHandler
	rateLimitMW     *middleware.RateLimitMiddleware
	authMW          *middleware.AuthMiddleware
	internalKey     string
}

func NewRouter(
	hub *websocket.Hub,
	limiter middleware.RateLimiter,
	tickets handlers.TicketIssuer,
	cfg *config.Config,
) *Router {
	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(cfg.Stream.AllowedOrigins))
	engine.Use(middleware.LogApi())

	upgrader := websocket.NewUpgrader(cfg.Stream.AllowedOrigins)

	return &Router{
		engine:          engine,
		streamHandler:   handlers.NewStreamHandler(hub, tickets, upgrader),
		internalHandler: handlers.NewInternalHandler(hub),
		rateLimitMW:     middleware.NewRateLimitMiddleware(limiter),
		authMW:          middleware.NewAuthMiddleware(cfg.JWT.Secret),
		internalKey:     cfg.Stream.InternalKey,
	}
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, models.StatusResponse{Status: "ok"})
	})

	// Swagger documentation
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := r.engine.Group("/api/v1")

	// The handshake is authenticated in-band by the initialize message
	api.GET("/ws",
		r.rateLimitMW.RateLimitIP(30, time.Minute), // 30 connections per minute per IP
		r.streamHandler.HandleWebSocket,
	)

	r.streamHandler.RegisterRoutes(api,
		r.authMW.RequireAuth(),
		r.rateLimitMW.RateLimit(120, time.Minute), // 120 requests per minute
	)

	internal := r.engine.Group("/internal")
	internal.Use(middleware.RequireInternalKey(r.internalKey))
	r.internalHandler.RegisterRoutes(internal)
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
