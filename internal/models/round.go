package models

import (
	"time"

	"github.com/google/uuid"
)

// RoundResult is the persisted outcome of one finished round.
type RoundResult struct {
	LobbyID  uuid.UUID
	Pin      string
	Round    int
	Twist    string
	WinnerID uuid.UUID
	Players  []RoundPlayer
	EndedAt  time.Time
}

// RoundPlayer is a seat's standing at the end of a round.
type RoundPlayer struct {
	PlayerID  uuid.UUID
	Name      string
	Seat      int
	IsBot     bool
	CardsLeft int
}
