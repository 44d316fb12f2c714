package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/CarterLud/unotwist/internal/cache"
	"github.com/CarterLud/unotwist/internal/config"
	"github.com/CarterLud/unotwist/internal/database"
	"github.com/CarterLud/unotwist/internal/handlers"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal(err)
	}
	logger := cfg.NewLogger()
	logrus.SetLevel(logger.Level)
	logrus.SetFormatter(logger.Formatter)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RedisAddr != "" {
		cache.QueueName = cfg.QueueName
		if err := cache.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB); err != nil {
			logger.Warnf("action log disabled: %v", err)
		} else {
			defer cache.Close()
			logger.Infof("publishing actions to %s", cfg.QueueName)
		}
	}
	if cfg.DatabaseURL != "" {
		if err := database.ConnectDB(ctx, cfg.DatabaseURL); err != nil {
			logger.Warnf("round history disabled: %v", err)
		} else {
			defer database.Close()
		}
	}

	gs := handlers.NewGameServer(handlers.ServerConfig{
		Rules:            cfg.Rules,
		LobbyIdleTimeout: cfg.LobbyIdleTimeout,
		MessagesPerSec:   cfg.WSMessagesPerSec,
		MessageBurst:     cfg.WSMessageBurst,
	}, logger)
	go gs.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.Routes(logger, gs),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("shutdown: %v", err)
		}
	}()

	logger.Infof("Running on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
	<-gs.Done()
	logger.Info("server stopped")
}
