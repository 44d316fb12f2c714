package database

import (
	"context"
	"fmt"

	"github.com/CarterLud/unotwist/internal/models"
	"github.com/jackc/pgx/v5"
)

// RecordRoundResult stores a finished round and every seat's standing in one
// transaction. Recording the same round twice overwrites it.
func RecordRoundResult(ctx context.Context, res models.RoundResult) error {
	err := BeginTxFunc(ctx, func(tx pgx.Tx) error {
		upsertRound := `
			INSERT INTO rounds (lobby_id, round, pin, twist, winner_id, ended_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (lobby_id, round)
			DO UPDATE SET winner_id = $5, ended_at = $6
		`
		if _, e := tx.Exec(ctx, upsertRound, res.LobbyID, res.Round, res.Pin, res.Twist, res.WinnerID, res.EndedAt); e != nil {
			return e
		}

		for _, p := range res.Players {
			q := `
				INSERT INTO round_players (lobby_id, round, player_id, name, seat, is_bot, cards_left, did_win)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				ON CONFLICT (lobby_id, round, player_id)
				DO UPDATE SET cards_left = $7, did_win = $8
			`
			didWin := p.PlayerID == res.WinnerID
			if _, e := tx.Exec(ctx, q, res.LobbyID, res.Round, p.PlayerID, p.Name, p.Seat, p.IsBot, p.CardsLeft, didWin); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx record round %d of lobby %s: %w", res.Round, res.LobbyID, err)
	}
	return nil
}
