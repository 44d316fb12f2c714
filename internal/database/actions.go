package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/CarterLud/unotwist/internal/cache"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Lobby statuses as stored in the lobbies table.
const (
	StatusInProgress = "in_progress"
	StatusClosed     = "closed"
	StatusAbandoned  = "abandoned"
)

// InsertActionTx upserts the action's lobby row and appends the action. A
// lobby_closed action also closes the lobby row.
func InsertActionTx(ctx context.Context, tx pgx.Tx, rec cache.GameActionRecord) error {
	upsertLobby := `
		INSERT INTO lobbies (id, pin, status, start_time)
		VALUES ($1, $2, 'in_progress', NOW())
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, upsertLobby, rec.LobbyID, rec.Pin); err != nil {
		return err
	}

	payload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return err
	}
	insertAction := `
		INSERT INTO lobby_actions (
			lobby_id, action_index, round, actor_id, action_type, action_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (lobby_id, action_index) DO NOTHING
	`
	var actor *uuid.UUID
	if rec.ActorID != uuid.Nil {
		actor = &rec.ActorID
	}
	createdAt := time.UnixMilli(rec.Timestamp)
	if _, err := tx.Exec(ctx, insertAction, rec.LobbyID, rec.ActionIndex, rec.Round, actor, rec.ActionType, payload, createdAt); err != nil {
		return err
	}

	if rec.ActionType == "lobby_closed" {
		return setLobbyStatus(ctx, tx, rec.LobbyID, StatusClosed)
	}
	return nil
}

// MarkLobbyAbandoned flags a lobby that stopped producing actions while still in progress.
func MarkLobbyAbandoned(ctx context.Context, lobbyID uuid.UUID) error {
	return BeginTxFunc(ctx, func(tx pgx.Tx) error {
		return setLobbyStatus(ctx, tx, lobbyID, StatusAbandoned)
	})
}

func setLobbyStatus(ctx context.Context, db Execer, lobbyID uuid.UUID, status string) error {
	q := `
		UPDATE lobbies
		SET status = $2, end_time = NOW()
		WHERE id = $1 AND status = 'in_progress'
	`
	_, err := db.Exec(ctx, q, lobbyID, status)
	return err
}
