package container

import (
	"log/slog"

	"github.com/go-redis/redis"
	"github.com/gyamfi-dev/tourmate-server/internal/models"
	"github.com/gyamfi-dev/tourmate-server/internal/notifier"
	"github.com/gyamfi-dev/tourmate-server/internal/services"
	"go.mongodb.org/mongo-driver/mongo"
)

// Container holds all application dependencies
type Container struct {
	Logger *slog.Logger
	// Database clients
	MongoDBClient *mongo.Client
	RedisClient   *redis.Client

	BookingRepo       models.BookingRepo
	StatusService     *services.BookingStatusService
	NewBookingService *services.NewBookingService
	GatewayService    *services.RealtimeNotificationService
}

// NewContainer creates a new dependency injection container
func NewContainer(
	logger *slog.Logger,
	mongoDBClient *mongo.Client,
	redisClient *redis.Client,
	dispatcher notifier.AlertDispatcher,
) *Container {
	// Initialize repositories
	mongoRepo := models.MongodbNewRepo(mongoDBClient)
	feed := models.NewFeedRepo(mongoDBClient, redisClient)
	statusStore := models.NewRedisDedupStore(redisClient, models.StatusDedupPrefix)
	newBookingStore := models.NewRedisDedupStore(redisClient, models.NewBookingDedupPrefix)

	statusService := services.NewBookingStatusService(statusStore, logger)
	newBookingService := services.NewNewBookingService(newBookingStore, logger)
	gatewayService := services.NewRealtimeNotificationService(feed, dispatcher, logger)

	return &Container{
		Logger:            logger,
		MongoDBClient:     mongoDBClient,
		RedisClient:       redisClient,
		BookingRepo:       mongoRepo,
		StatusService:     statusService,
		NewBookingService: newBookingService,
		GatewayService:    gatewayService,
	}
}
