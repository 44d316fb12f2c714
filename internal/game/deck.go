// internal/game/deck.go
package game

import (
	"fmt"
	"math/rand"

	"github.com/CarterLud/unotwist/internal/models"
)

// DeckSize is the number of cards in a full deck.
const DeckSize = 108

// BuildDeck returns a full shuffled deck: per color one 0, two of each 1-9,
// two each of Draw2, Skip and Reverse; plus four Wild and four +4.
func BuildDeck(rng *rand.Rand) []*models.Card {
	cards := make([]*models.Card, 0, DeckSize)
	for _, col := range models.Colors {
		cards = append(cards, models.NewCard(col, "0"))
		for n := 1; n <= 9; n++ {
			v := fmt.Sprint(n)
			cards = append(cards, models.NewCard(col, v), models.NewCard(col, v))
		}
		for _, v := range []string{models.ValueDraw2, models.ValueSkip, models.ValueReverse} {
			cards = append(cards, models.NewCard(col, v), models.NewCard(col, v))
		}
	}
	for i := 0; i < 4; i++ {
		cards = append(cards,
			models.NewCard(models.ColorNone, models.ValueWild),
			models.NewCard(models.ColorNone, models.ValueWildDraw4))
	}
	shuffle(rng, cards)
	return cards
}

func shuffle(rng *rand.Rand, cards []*models.Card) {
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// Deck holds the draw and discard piles of a lobby. The last element of each
// slice is its top.
type Deck struct {
	drawPile []*models.Card
	discard  []*models.Card
	rng      *rand.Rand
}

// NewDeck builds and shuffles a fresh deck.
func NewDeck(rng *rand.Rand) *Deck {
	return &Deck{drawPile: BuildDeck(rng), rng: rng}
}

func (d *Deck) DrawPileCount() int { return len(d.drawPile) }
func (d *Deck) DiscardCount() int  { return len(d.discard) }

// Top returns the discard top or nil.
func (d *Deck) Top() *models.Card {
	if len(d.discard) == 0 {
		return nil
	}
	return d.discard[len(d.discard)-1]
}

// Discard puts c on top of the discard pile.
func (d *Deck) Discard(c *models.Card) {
	d.discard = append(d.discard, c)
}

// Available is how many cards can be drawn before the piles run dry. The
// discard top never goes back into the draw pile.
func (d *Deck) Available() int {
	n := len(d.drawPile)
	if len(d.discard) > 1 {
		n += len(d.discard) - 1
	}
	return n
}

// Draw pops n cards, reshuffling the discard pile under its top when the draw
// pile empties. It draws nothing unless all n cards are available.
func (d *Deck) Draw(n int) ([]*models.Card, error) {
	if n > d.Available() {
		return nil, fmt.Errorf("draw %d of %d: %w", n, d.Available(), ErrDeckExhausted)
	}
	out := make([]*models.Card, 0, n)
	for i := 0; i < n; i++ {
		if len(d.drawPile) == 0 {
			d.recycleDiscard()
		}
		last := len(d.drawPile) - 1
		out = append(out, d.drawPile[last])
		d.drawPile = d.drawPile[:last]
	}
	return out, nil
}

// recycleDiscard moves everything but the discard top into the draw pile and
// shuffles the draw pile.
func (d *Deck) recycleDiscard() {
	if len(d.discard) <= 1 {
		return
	}
	top := d.discard[len(d.discard)-1]
	d.drawPile = append(d.drawPile, d.discard[:len(d.discard)-1]...)
	d.discard = []*models.Card{top}
	shuffle(d.rng, d.drawPile)
}

// ReshuffleDiscard folds the discard pile, minus its top, into the draw pile.
func (d *Deck) ReshuffleDiscard() {
	d.recycleDiscard()
}

// FlipFirst turns up the opening discard. Wilds met on the way go to the
// bottom of the draw pile so none are lost.
func (d *Deck) FlipFirst() (*models.Card, error) {
	for tries := len(d.drawPile); tries > 0; tries-- {
		last := len(d.drawPile) - 1
		c := d.drawPile[last]
		d.drawPile = d.drawPile[:last]
		if !c.IsWild() {
			d.Discard(c)
			return c, nil
		}
		d.drawPile = append([]*models.Card{c}, d.drawPile...)
	}
	return nil, fmt.Errorf("no non-wild card to flip: %w", ErrDeckExhausted)
}

// cards returns every card held by the piles.
func (d *Deck) cards() []*models.Card {
	out := make([]*models.Card, 0, len(d.drawPile)+len(d.discard))
	out = append(out, d.drawPile...)
	return append(out, d.discard...)
}
