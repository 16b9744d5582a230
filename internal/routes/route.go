package routes

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gyamfi-dev/tourmate-server/internal/container"
	"github.com/gyamfi-dev/tourmate-server/internal/handlers"
	"github.com/gyamfi-dev/tourmate-server/internal/middleware"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	// Add middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	// API version 1
	v1 := r.Group("/api/v1")
	{
		// Health check
		v1.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "OK",
				"service": "tourmate-api",
			})
		})
	}

	notificationRoutes := v1.Group("/notifications")
	{
		notificationRoutes.GET("/:audience", handlers.ListNotifications(container.GatewayService))
		notificationRoutes.GET("/:audience/stream", handlers.StreamNotifications(container.GatewayService))
		notificationRoutes.POST("/:audience", handlers.PublishNotification(container.GatewayService))
		notificationRoutes.PATCH("/:audience/:id/read", handlers.MarkNotificationRead(container.GatewayService))
		notificationRoutes.DELETE("/:audience/:id", handlers.DeleteNotification(container.GatewayService))
	}

	bookingRoutes := v1.Group("/bookings")
	{
		bookingRoutes.GET("/users/:id/changes", handlers.GetStatusChanges(container.BookingRepo, container.StatusService))
		bookingRoutes.POST("/users/:id/baseline", handlers.BaselineUser(container.BookingRepo, container.StatusService))
		bookingRoutes.GET("/guides/:id/pending", handlers.GetPendingBookings(container.BookingRepo, container.NewBookingService))
		bookingRoutes.POST("/guides/:id/ack", handlers.AckNotified(container.NewBookingService))
	}

	trackerRoutes := v1.Group("/trackers")
	{
		trackerRoutes.DELETE("/:id", handlers.ClearTrackerHistory(container.StatusService, container.NewBookingService))
	}

	return r
}
