// Package protocol defines the JSON frames exchanged over the game socket.
// Every frame is an object with a "type" discriminator; the message sets in
// each direction are closed.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/CarterLud/unotwist/internal/models"
	"github.com/google/uuid"
)

var (
	// ErrMalformed is returned for frames that are not a JSON object or whose
	// fields do not match the declared type.
	ErrMalformed = errors.New("malformed message")
	// ErrUnknownType is returned for a well-formed frame with an unrecognized type.
	ErrUnknownType = errors.New("unknown message type")
)

// Client message type tags.
const (
	TypeCreateLobby = "create_lobby"
	TypeJoinLobby   = "join_lobby"
	TypeStartGame   = "start_game"
	TypeNewRound    = "new_round"
	TypePlay        = "play"
	TypeChooseColor = "choose_color"
	TypeDraw        = "draw"
	TypeUno         = "uno"
	TypeCallUno     = "call_uno"
	TypeSlam        = "slam"
	TypePing        = "ping"
)

// ClientMessage is implemented by every request a client may send.
type ClientMessage interface {
	clientMessage()
}

// Pin is a lobby PIN. Clients send it as a string, though a bare number is tolerated.
type Pin string

func (p *Pin) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*p = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = Pin(s)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("pin must be a string or integer: %w", err)
	}
	*p = Pin(strconv.FormatInt(n, 10))
	return nil
}

type CreateLobby struct {
	Name string `json:"name"`
}

type JoinLobby struct {
	Name string `json:"name"`
	Pin  Pin    `json:"pin"`
}

type StartGame struct {
	Pin Pin `json:"pin"`
}

// NewRound asks the host's lobby to deal again after a round ends.
type NewRound struct {
	Pin Pin `json:"pin"`
}

type Play struct {
	Pin    Pin       `json:"pin"`
	CardID uuid.UUID `json:"cardId"`
}

type ChooseColor struct {
	Pin    Pin          `json:"pin"`
	Color  models.Color `json:"color"`
	CardID uuid.UUID    `json:"cardId"`
}

type Draw struct {
	Pin Pin `json:"pin"`
}

// Uno declares UNO for the sender's own hand.
type Uno struct {
	Pin Pin `json:"pin"`
}

// CallUno calls out whoever currently holds an open UNO window.
type CallUno struct {
	Pin Pin `json:"pin"`
}

type Slam struct {
	Pin Pin `json:"pin"`
}

type Ping struct{}

func (CreateLobby) clientMessage() {}
func (JoinLobby) clientMessage()   {}
func (StartGame) clientMessage()   {}
func (NewRound) clientMessage()    {}
func (Play) clientMessage()        {}
func (ChooseColor) clientMessage() {}
func (Draw) clientMessage()        {}
func (Uno) clientMessage()         {}
func (CallUno) clientMessage()     {}
func (Slam) clientMessage()        {}
func (Ping) clientMessage()        {}

// Decode parses a single client frame. The returned error wraps ErrMalformed
// or ErrUnknownType so callers can pick the right response.
func Decode(data []byte) (ClientMessage, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var msg ClientMessage
	switch envelope.Type {
	case TypeCreateLobby:
		msg = &CreateLobby{}
	case TypeJoinLobby:
		msg = &JoinLobby{}
	case TypeStartGame:
		msg = &StartGame{}
	case TypeNewRound:
		msg = &NewRound{}
	case TypePlay:
		msg = &Play{}
	case TypeChooseColor:
		msg = &ChooseColor{}
	case TypeDraw:
		msg = &Draw{}
	case TypeUno:
		msg = &Uno{}
	case TypeCallUno:
		msg = &CallUno{}
	case TypeSlam:
		msg = &Slam{}
	case TypePing:
		return Ping{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, envelope.Type)
	}

	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, envelope.Type, err)
	}
	return deref(msg), nil
}

// deref returns the value form so handlers can switch on concrete value types.
func deref(msg ClientMessage) ClientMessage {
	switch m := msg.(type) {
	case *CreateLobby:
		return *m
	case *JoinLobby:
		return *m
	case *StartGame:
		return *m
	case *NewRound:
		return *m
	case *Play:
		return *m
	case *ChooseColor:
		return *m
	case *Draw:
		return *m
	case *Uno:
		return *m
	case *CallUno:
		return *m
	case *Slam:
		return *m
	}
	return msg
}
