// internal/models/player.go
package models

import "github.com/google/uuid"

// Player is a seat at a lobby. The ID is stable for the seat even when a bot
// takes it over after a disconnect.
type Player struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Hand      []*Card   `json:"hand"`
	SaidUno   bool      `json:"saidUno"`
	IsBot     bool      `json:"isBot"`
	Connected bool      `json:"connected"`
}

// FindCard returns the card with the given id and its index in the hand, or nil and -1.
func (p *Player) FindCard(cardID uuid.UUID) (*Card, int) {
	for i, c := range p.Hand {
		if c.ID == cardID {
			return c, i
		}
	}
	return nil, -1
}

// RemoveCard takes the card out of the hand, preserving the order of the rest.
func (p *Player) RemoveCard(cardID uuid.UUID) (*Card, bool) {
	c, idx := p.FindCard(cardID)
	if idx < 0 {
		return nil, false
	}
	p.Hand = append(p.Hand[:idx], p.Hand[idx+1:]...)
	return c, true
}
