package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/api/handlers"
	"github.com/merchanthub/omsapi/internal/api/middleware"
	"github.com/merchanthub/omsapi/internal/config"
	"github.com/merchanthub/omsapi/internal/repository"
	"github.com/merchanthub/omsapi/internal/service"
)

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, repos *repository.Repositories, connections *service.ConnectionService, orders *service.OrderService, logger *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(repos, logger))
	{
		v1.GET("/platforms/:type/credential-fields", handlers.HandleCredentialFields(connections, logger))

		v1.POST("/connections", handlers.HandleCreateConnection(connections, logger))
		v1.GET("/connections", handlers.HandleListConnections(connections, logger))
		v1.POST("/connections/sync", handlers.HandleSyncAll(connections, logger))
		v1.GET("/connections/:id", handlers.HandleGetConnection(connections, logger))
		v1.PATCH("/connections/:id", handlers.HandleUpdateConnection(connections, logger))
		v1.DELETE("/connections/:id", handlers.HandleDeleteConnection(connections, logger))
		v1.POST("/connections/:id/test", handlers.HandleTestConnection(connections, logger))
		v1.POST("/connections/:id/sync", handlers.HandleSyncConnection(connections, logger))
		v1.POST("/connections/:id/import", handlers.HandleImportCSV(connections, logger))

		v1.GET("/orders", handlers.HandleListOrders(orders, logger))
		v1.GET("/orders/:id", handlers.HandleGetOrder(orders, logger))
		v1.POST("/orders/:id/status", handlers.HandleUpdateOrderStatus(orders, logger))
		v1.POST("/orders/:id/ship", handlers.HandleShipOrder(orders, logger))
		v1.POST("/orders/:id/cancel", handlers.HandleCancelOrder(orders, logger))
	}

	return router
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		status := c.Writer.Status()
		logger.Info("HTTP request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
		)
	}
}
