package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/CarterLud/unotwist/internal/models"
	"github.com/google/uuid"
)

// ServerMessage is implemented by every frame the server emits.
type ServerMessage interface {
	MessageType() string
}

// LobbyPlayer is the roster entry used in lobby membership frames.
type LobbyPlayer struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	IsBot bool      `json:"isBot"`
}

// PlayerView is one seat as seen by a particular recipient. Hand is null when
// the recipient may not see it; HandCount is always present.
type PlayerView struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Hand      []*models.Card `json:"hand"`
	HandCount int            `json:"handCount"`
	IsBot     bool           `json:"isBot"`
	SaidUno   bool           `json:"saidUno"`
}

// State is the per-recipient snapshot of a lobby.
type State struct {
	Pin           string        `json:"pin"`
	Phase         string        `json:"phase"`
	Players       []PlayerView  `json:"players"`
	DiscardTop    *models.Card  `json:"discardTop"`
	CurrentColor  models.Color  `json:"currentColor"`
	TurnIndex     int           `json:"turnIndex"`
	Direction     int           `json:"direction"`
	PendingDraw   int           `json:"pendingDraw"`
	DrawPileCount int           `json:"drawPileCount"`
	Twist         *models.Twist `json:"twist,omitempty"`
}

type LobbyCreated struct {
	Pin      string        `json:"pin"`
	PlayerID uuid.UUID     `json:"playerId"`
	HostID   uuid.UUID     `json:"hostId"`
	Players  []LobbyPlayer `json:"players"`
}

type JoinedLobby struct {
	Pin      string        `json:"pin"`
	PlayerID uuid.UUID     `json:"playerId"`
	HostID   uuid.UUID     `json:"hostId"`
	Players  []LobbyPlayer `json:"players"`
}

type LobbyUpdate struct {
	HostID  uuid.UUID     `json:"hostId"`
	Players []LobbyPlayer `json:"players"`
}

type GameStarted struct {
	Twist models.Twist `json:"twist"`
	State State        `json:"state"`
}

type StateUpdate struct {
	State State `json:"state"`
}

// ColorPrompt asks the player who just played a wild to pick a color.
type ColorPrompt struct {
	CardID uuid.UUID `json:"cardId"`
}

type Message struct {
	Text string `json:"text"`
}

type UnoWindow struct {
	PlayerID   uuid.UUID `json:"playerId"`
	PlayerName string    `json:"playerName"`
}

type UnoWindowClose struct{}

type SlamStart struct{}

type SlamPenalty struct {
	PlayerName string `json:"playerName"`
	Count      int    `json:"count"`
}

type RoundOver struct {
	WinnerID   uuid.UUID `json:"winnerId"`
	WinnerName string    `json:"winnerName"`
}

type Error struct {
	Message string `json:"message"`
}

type Pong struct{}

func (LobbyCreated) MessageType() string   { return "lobby_created" }
func (JoinedLobby) MessageType() string    { return "joined_lobby" }
func (LobbyUpdate) MessageType() string    { return "lobby_update" }
func (GameStarted) MessageType() string    { return "game_started" }
func (StateUpdate) MessageType() string    { return "state" }
func (ColorPrompt) MessageType() string    { return "choose_color" }
func (Message) MessageType() string        { return "message" }
func (UnoWindow) MessageType() string      { return "uno_window" }
func (UnoWindowClose) MessageType() string { return "uno_window_close" }
func (SlamStart) MessageType() string      { return "slam_start" }
func (SlamPenalty) MessageType() string    { return "slam_penalty" }
func (RoundOver) MessageType() string      { return "round_over" }
func (Error) MessageType() string          { return "error" }
func (Pong) MessageType() string           { return "pong" }

// Encode renders msg as a JSON object with its "type" tag as the first key.
func Encode(msg ServerMessage) ([]byte, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", msg.MessageType(), err)
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("encode %s: payload is not an object", msg.MessageType())
	}
	tag, _ := json.Marshal(msg.MessageType())

	out := make([]byte, 0, len(body)+len(tag)+10)
	out = append(out, `{"type":`...)
	out = append(out, tag...)
	if len(body) > 2 {
		out = append(out, ',')
	}
	out = append(out, body[1:]...)
	return out, nil
}
