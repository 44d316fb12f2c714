package config

import (
	"testing"
	"time"

	"github.com/CarterLud/unotwist/internal/game"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, 600*time.Millisecond, cfg.Rules.BotDelay)
	assert.Equal(t, time.Second, cfg.Rules.UnoBotDelay)
	assert.Equal(t, 2*time.Second, cfg.Rules.SlamWindow)
	assert.Equal(t, 10, cfg.Rules.MaxPlayers)
	assert.Equal(t, 2, cfg.Rules.MissedUnoPenalty)
	assert.False(t, cfg.Rules.HideOpponentHands)
	assert.Equal(t, game.TwistPoolImplemented, cfg.Rules.TwistPool)
	assert.Equal(t, 30*time.Minute, cfg.LobbyIdleTimeout)
	assert.Equal(t, "uno_actions", cfg.QueueName)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.DatabaseURL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BOT_DELAY_MS", "50")
	t.Setenv("HIDE_OPPONENT_HANDS", "true")
	t.Setenv("TWIST_POOL", "all")
	t.Setenv("LOBBY_IDLE_TIMEOUT", "90s")
	t.Setenv("HISTORIAN_FLUSH_MS", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, logrus.DebugLevel, cfg.LogLevel)
	assert.Equal(t, 50*time.Millisecond, cfg.Rules.BotDelay)
	assert.True(t, cfg.Rules.HideOpponentHands)
	assert.Equal(t, game.TwistPoolAll, cfg.Rules.TwistPool)
	assert.Equal(t, 90*time.Second, cfg.LobbyIdleTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.HistorianFlushDelay)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("MAX_PLAYERS", "lots")
	t.Setenv("TWIST_POOL", "chaos")
	t.Setenv("HIDE_OPPONENT_HANDS", "sometimes")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_PLAYERS")
	assert.Contains(t, err.Error(), "TWIST_POOL")
	assert.Contains(t, err.Error(), "HIDE_OPPONENT_HANDS")
}

func TestLoadBoundsMaxPlayers(t *testing.T) {
	for _, v := range []string{"1", "16"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("MAX_PLAYERS", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "MAX_PLAYERS must be between 2 and 15")
		})
	}

	t.Setenv("MAX_PLAYERS", "15")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, game.MaxSeats, cfg.Rules.MaxPlayers)
}

func TestNewLoggerFormat(t *testing.T) {
	t.Setenv("LOG_FORMAT", "json")
	cfg, err := Load()
	require.NoError(t, err)

	logger := cfg.NewLogger()
	_, isJSON := logger.Formatter.(*logrus.JSONFormatter)
	assert.True(t, isJSON)
}
