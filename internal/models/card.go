// internal/models/card.go
package models

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Color is one of the four suit colors. Wild cards carry ColorNone until played.
type Color string

const (
	ColorNone   Color = ""
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
)

// Colors lists the playable colors in canonical order. Tie-breaks that
// depend on color order use this slice.
var Colors = []Color{ColorRed, ColorYellow, ColorGreen, ColorBlue}

// Valid reports whether c is one of the four playable colors.
func (c Color) Valid() bool {
	switch c {
	case ColorRed, ColorYellow, ColorGreen, ColorBlue:
		return true
	}
	return false
}

// MarshalJSON encodes ColorNone as null.
func (c Color) MarshalJSON() ([]byte, error) {
	if c == ColorNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(c))
}

// UnmarshalJSON accepts null or one of the color names.
func (c *Color) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = ColorNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	col := Color(s)
	if col != ColorNone && !col.Valid() {
		return fmt.Errorf("unknown color %q", s)
	}
	*c = col
	return nil
}

// CardKind groups card values by how they resolve.
type CardKind string

const (
	KindNumber CardKind = "number"
	KindAction CardKind = "action"
	KindWild   CardKind = "wild"
)

// Card values that are not plain ranks.
const (
	ValueSkip      = "Skip"
	ValueReverse   = "Reverse"
	ValueDraw2     = "Draw2"
	ValueWild      = "Wild"
	ValueWildDraw4 = "+4"
)

// Card is a single immutable card. IDs are unique within a deck.
type Card struct {
	Color Color     `json:"color"`
	Value string    `json:"value"`
	Kind  CardKind  `json:"kind"`
	ID    uuid.UUID `json:"id"`
}

// NewCard builds a card with a fresh id, deriving Kind from value.
func NewCard(color Color, value string) *Card {
	kind := KindNumber
	switch value {
	case ValueWild, ValueWildDraw4:
		kind = KindWild
	case ValueSkip, ValueReverse, ValueDraw2:
		kind = KindAction
	}
	return &Card{ID: uuid.New(), Color: color, Value: value, Kind: kind}
}

func (c *Card) IsWild() bool { return c.Kind == KindWild }

// IsStacker reports whether the card may answer an outstanding draw penalty.
func (c *Card) IsStacker() bool {
	return c.Value == ValueDraw2 || c.Value == ValueWildDraw4
}

func (c *Card) String() string {
	if c.Color == ColorNone {
		return c.Value
	}
	return string(c.Color) + " " + c.Value
}
