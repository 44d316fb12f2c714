// internal/game/rules.go
package game

import (
	"errors"
	"time"

	"github.com/CarterLud/unotwist/internal/models"
)

// HouseRules holds the tunables of a lobby. They are fixed at creation.
type HouseRules struct {
	BotDelay          time.Duration // delay before a bot seat acts
	UnoBotDelay       time.Duration // delay before a bot declares UNO
	SlamWindow        time.Duration // how long a slam window accepts responses
	MaxPlayers        int           // seats per lobby, bots included
	HideOpponentHands bool          // send only hand counts for other seats
	MissedUnoPenalty  int           // extra cards drawn for a missed UNO
	TwistPool         TwistPool     // which twists a new lobby may roll
}

// DefaultHouseRules returns the rules used when no configuration overrides them.
func DefaultHouseRules() HouseRules {
	return HouseRules{
		BotDelay:         600 * time.Millisecond,
		UnoBotDelay:      1000 * time.Millisecond,
		SlamWindow:       2000 * time.Millisecond,
		MaxPlayers:       10,
		MissedUnoPenalty: 2,
		TwistPool:        TwistPoolImplemented,
	}
}

// RuleError is a rejected request. Its message is safe to show the player.
type RuleError struct {
	msg string
}

func (e *RuleError) Error() string { return e.msg }

func ruleError(msg string) *RuleError { return &RuleError{msg: msg} }

var (
	ErrInvalidPin     = ruleError("Invalid PIN")
	ErrLobbyNotFound  = ruleError("Lobby not found")
	ErrAlreadyStarted = ruleError("Game already started")
	ErrLobbyFull      = ruleError("Lobby is full")
	ErrNotHost        = ruleError("Only the host can start")
	ErrNoPlayers      = ruleError("No players in lobby")
	ErrNotSeated      = ruleError("You are not in this lobby")
	ErrNotStarted     = ruleError("Game has not started")
	ErrRoundNotOver   = ruleError("Round is still in progress")
	ErrNotYourTurn    = ruleError("Not your turn")
	ErrAwaitingColor  = ruleError("Choose a color first")
	ErrCardNotInHand  = ruleError("You do not have that card")
	ErrIllegalPlay    = ruleError("That card cannot be played now")
	ErrMustStack      = ruleError("Play a Draw 2 or +4, or draw")
	ErrNoColorPending = ruleError("No color choice pending for that card")
	ErrInvalidColor   = ruleError("Invalid color")
	ErrUnoNotAllowed  = ruleError("You can only say UNO with one card")
	ErrCalledOut      = ruleError("Too late, you were called out")
	ErrNoUnoWindow    = ruleError("Nobody to call out")
	ErrCallSelf       = ruleError("You cannot call yourself out")

	// ErrDeckExhausted means neither pile can supply the cards a draw needs.
	// It is fatal for the lobby.
	ErrDeckExhausted = errors.New("draw and discard piles exhausted")
	// ErrInvariant means the card multiset no longer adds up. Fatal for the lobby.
	ErrInvariant = errors.New("card invariant violated")
)

// CanPlay reports whether card may go on top of the discard pile.
// Wilds are always legal; otherwise the color must match the active color
// or the value must match the top card.
func CanPlay(card, top *models.Card, current models.Color) bool {
	if card.IsWild() || top == nil {
		return true
	}
	return card.Color == current || card.Value == top.Value
}

// BestColor picks the most common color in hand. Ties go to the earlier
// color in models.Colors; an empty or all-wild hand yields red.
func BestColor(hand []*models.Card) models.Color {
	counts := make(map[models.Color]int, len(models.Colors))
	for _, c := range hand {
		if c.Color.Valid() {
			counts[c.Color]++
		}
	}
	best, most := models.ColorRed, -1
	for _, col := range models.Colors {
		if counts[col] > most {
			best, most = col, counts[col]
		}
	}
	return best
}
