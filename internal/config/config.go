// Package config reads runtime settings from the environment. A .env file is
// loaded by the binaries through godotenv before Load runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/CarterLud/unotwist/internal/cache"
	"github.com/CarterLud/unotwist/internal/game"
	"github.com/sirupsen/logrus"
)

// Config is the full set of server and historian settings.
type Config struct {
	Port      string
	LogLevel  logrus.Level
	LogFormat string

	Rules            game.HouseRules
	LobbyIdleTimeout time.Duration

	WSMessagesPerSec float64
	WSMessageBurst   int

	RedisAddr   string
	RedisDB     int
	QueueName   string
	DatabaseURL string

	HistorianBatchSize  int
	HistorianFlushDelay time.Duration
	LobbyInactivity     time.Duration
}

// Load builds a Config from the environment, falling back to defaults for
// unset keys. Malformed values are reported rather than ignored.
func Load() (*Config, error) {
	r := &reader{}
	rules := game.DefaultHouseRules()

	cfg := &Config{
		Port:      r.str("PORT", "8080"),
		LogFormat: r.str("LOG_FORMAT", "text"),

		LobbyIdleTimeout: r.duration("LOBBY_IDLE_TIMEOUT", 30*time.Minute),

		WSMessagesPerSec: r.float("WS_MESSAGES_PER_SEC", 20),
		WSMessageBurst:   r.integer("WS_MESSAGE_BURST", 40),

		RedisAddr:   r.str("REDIS_ADDR", ""),
		RedisDB:     r.integer("REDIS_DB", 0),
		QueueName:   r.str("HISTORIAN_QUEUE_NAME", cache.DefaultQueueName),
		DatabaseURL: r.str("DATABASE_URL", ""),

		HistorianBatchSize:  r.integer("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlushDelay: time.Duration(r.integer("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
		LobbyInactivity:     time.Duration(r.integer("LOBBY_INACTIVITY_TIMEOUT_SEC", 600)) * time.Second,
	}

	level, err := logrus.ParseLevel(r.str("LOG_LEVEL", "info"))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	cfg.LogLevel = level

	rules.BotDelay = time.Duration(r.integer("BOT_DELAY_MS", int(rules.BotDelay/time.Millisecond))) * time.Millisecond
	rules.UnoBotDelay = time.Duration(r.integer("UNO_BOT_DELAY_MS", int(rules.UnoBotDelay/time.Millisecond))) * time.Millisecond
	rules.SlamWindow = time.Duration(r.integer("SLAM_WINDOW_MS", int(rules.SlamWindow/time.Millisecond))) * time.Millisecond
	rules.MaxPlayers = r.integer("MAX_PLAYERS", rules.MaxPlayers)
	rules.MissedUnoPenalty = r.integer("UNO_PENALTY", rules.MissedUnoPenalty)
	rules.HideOpponentHands = r.boolean("HIDE_OPPONENT_HANDS", false)
	pool, err := game.ParseTwistPool(r.str("TWIST_POOL", string(game.TwistPoolImplemented)))
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("TWIST_POOL: %w", err))
	}
	rules.TwistPool = pool
	cfg.Rules = rules

	if rules.MaxPlayers < 2 || rules.MaxPlayers > game.MaxSeats {
		r.errs = append(r.errs, fmt.Errorf("MAX_PLAYERS must be between 2 and %d", game.MaxSeats))
	}
	if cfg.HistorianBatchSize < 1 {
		r.errs = append(r.errs, errors.New("HISTORIAN_BATCH_SIZE must be positive"))
	}

	if len(r.errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(r.errs...))
	}
	return cfg, nil
}

// NewLogger builds the process logger from the configured level and format.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)
	if c.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// reader collects parse errors so Load can report all of them at once.
type reader struct {
	errs []error
}

func (r *reader) str(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func (r *reader) integer(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (r *reader) float(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (r *reader) boolean(key string, def bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}

func (r *reader) duration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		r.errs = append(r.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return v
}
