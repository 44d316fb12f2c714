// cmd/historian/main.go is an asynchronous historian service that pops lobby
// actions from a Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CarterLud/unotwist/internal/cache"
	"github.com/CarterLud/unotwist/internal/config"
	"github.com/CarterLud/unotwist/internal/database"
	"github.com/CarterLud/unotwist/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	log "github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	logger := cfg.NewLogger()
	log.SetLevel(logger.Level)
	log.SetFormatter(logger.Formatter)

	if cfg.RedisAddr == "" || cfg.DatabaseURL == "" {
		log.Fatal("historian needs REDIS_ADDR and DATABASE_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.ConnectDB(ctx, cfg.DatabaseURL); err != nil {
		log.Fatalf("database: %v", err)
	}
	defer database.Close()

	if err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB); err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer cache.Close()

	source := &historian.RedisSource{
		Client:  cache.Rdb,
		Queue:   cfg.QueueName,
		Timeout: 3 * time.Second,
	}
	svc := historian.NewService(source, historian.DBSink{}, historian.Config{
		BatchSize:  cfg.HistorianBatchSize,
		FlushDelay: cfg.HistorianFlushDelay,
		Inactivity: cfg.LobbyInactivity,
	})

	log.WithFields(log.Fields{"queue": cfg.QueueName, "batch": cfg.HistorianBatchSize}).Info("historian running")
	svc.Run(ctx)
	log.Info("historian shutdown complete")
}
