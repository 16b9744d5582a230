package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gyamfi-dev/tourmate-server/internal/config"
	"github.com/gyamfi-dev/tourmate-server/internal/connect"
	"github.com/gyamfi-dev/tourmate-server/internal/models"
	"github.com/gyamfi-dev/tourmate-server/internal/notifier"
	"github.com/gyamfi-dev/tourmate-server/internal/services"
	"github.com/gyamfi-dev/tourmate-server/internal/worker"
)

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	_ = godotenv.Load(".env.local")

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	logger.Info("Starting Tourmate ingest worker", "environment", cfg.Environment)

	mongoClient, err := connect.MongoDBConnect(cfg)
	if err != nil {
		logger.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer func() { _ = connect.MongoDBDisconnect(mongoClient) }()

	redisClient, err := connect.RedisConnect(cfg)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	feed := models.NewFeedRepo(mongoClient, redisClient)
	gateway := services.NewRealtimeNotificationService(feed, notifier.NewConsole(logger), logger)

	workerCfg := worker.Config{
		AmqpURL:     cfg.AmqpURL,
		Exchange:    getEnvWithDefault("INGEST_EXCHANGE", "booking.exchange"),
		Queue:       getEnvWithDefault("INGEST_QUEUE", "notification.q"),
		Bindings:    parseCSV(getEnvWithDefault("INGEST_BINDINGS", "booking.*")),
		Prefetch:    16,
		ServiceName: "tourmate-ingest",
	}

	cons := worker.NewConsumer(workerCfg, gateway, logger)
	for {
		if err := cons.Connect(); err != nil {
			logger.Error("Broker connect failed, retrying", "error", err)
			time.Sleep(2 * time.Second)
			continue
		}
		break
	}
	defer cons.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := cons.Run(ctx); err != nil {
			logger.Error("Consumer stopped", "error", err)
		}
	}()

	logger.Info("Worker started",
		"queue", workerCfg.Queue,
		"exchange", workerCfg.Exchange,
		"bindings", workerCfg.Bindings,
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	cancel()
	time.Sleep(200 * time.Millisecond)
}
