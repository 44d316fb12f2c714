package database

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS lobbies (
		id          UUID PRIMARY KEY,
		pin         TEXT NOT NULL,
		status      TEXT NOT NULL DEFAULT 'in_progress',
		start_time  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		end_time    TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS lobby_actions (
		lobby_id        UUID NOT NULL REFERENCES lobbies(id) ON DELETE CASCADE,
		action_index    INT NOT NULL,
		round           INT NOT NULL,
		actor_id        UUID,
		action_type     TEXT NOT NULL,
		action_payload  JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at      TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (lobby_id, action_index)
	)`,
	`CREATE TABLE IF NOT EXISTS rounds (
		lobby_id   UUID NOT NULL,
		round      INT NOT NULL,
		pin        TEXT NOT NULL,
		twist      TEXT NOT NULL,
		winner_id  UUID NOT NULL,
		ended_at   TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (lobby_id, round)
	)`,
	`CREATE TABLE IF NOT EXISTS round_players (
		lobby_id    UUID NOT NULL,
		round       INT NOT NULL,
		player_id   UUID NOT NULL,
		name        TEXT NOT NULL,
		seat        INT NOT NULL,
		is_bot      BOOLEAN NOT NULL,
		cards_left  INT NOT NULL,
		did_win     BOOLEAN NOT NULL,
		PRIMARY KEY (lobby_id, round, player_id),
		FOREIGN KEY (lobby_id, round) REFERENCES rounds(lobby_id, round) ON DELETE CASCADE
	)`,
}

// EnsureSchema creates the tables this service writes to if they are missing.
func EnsureSchema(ctx context.Context, db Execer) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
