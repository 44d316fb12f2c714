package game

import (
	"fmt"

	"github.com/CarterLud/unotwist/internal/models"
	"github.com/CarterLud/unotwist/internal/protocol"
)

// applyWildTwists fires the lobby twist for a wild just played from seat.
func (l *Lobby) applyWildTwists(p *models.Player, seat int) error {
	switch l.Twist.Key {
	case TwistWildShuffle:
		l.Deck.ReshuffleDiscard()
		l.broadcast(protocol.Message{Text: "Wild Shuffle! The discard pile goes back into the deck"})
	case TwistKeyboardSlam:
		l.startSlam()
	case TwistWildEcho:
		cards, err := l.Deck.Draw(1)
		if err != nil {
			return err
		}
		p.Hand = append(p.Hand, cards...)
		l.broadcast(protocol.Message{Text: fmt.Sprintf("Wild Echo: %s draws 1", p.Name)})
	case TwistEveryoneDraws:
		if l.firstWildSeen {
			return nil
		}
		l.firstWildSeen = true
		return l.everyoneElseDraws(seat, everyoneDrawsPenalty)
	}
	return nil
}

// everyoneElseDraws deals count cards to every seat but seat. All or nothing.
func (l *Lobby) everyoneElseDraws(seat, count int) error {
	cards, err := l.Deck.Draw(count * (len(l.Players) - 1))
	if err != nil {
		return err
	}
	for i, p := range l.Players {
		if i == seat {
			continue
		}
		p.Hand = append(p.Hand, cards[:count]...)
		cards = cards[count:]
	}
	l.broadcast(protocol.Message{Text: fmt.Sprintf("First Wild! Everyone else draws %d", count)})
	return nil
}

// applyCardTwists fires the lobby twist for a non-wild card. It reports
// whether any hands changed owner.
func (l *Lobby) applyCardTwists(p *models.Player, seat int, card *models.Card) bool {
	switch {
	case l.Twist.Key == TwistHotPotato && card.Value == "0":
		l.rotateHands()
		for _, o := range l.Players {
			o.SaidUno = false
		}
		l.broadcast(protocol.Message{Text: "Hot Potato! Hands move one seat"})
		return true
	case l.Twist.Key == TwistHandSwap && card.Value == "7":
		other := l.Players[l.seatAfter(seat)]
		p.Hand, other.Hand = other.Hand, p.Hand
		p.SaidUno, other.SaidUno = false, false
		l.broadcast(protocol.Message{Text: fmt.Sprintf("%s swaps hands with %s", p.Name, other.Name)})
		return true
	}
	return false
}

// openUnoWindowAfterHandMove opens the window for the first seat in play
// order, starting after seat, that now holds a single card.
func (l *Lobby) openUnoWindowAfterHandMove(seat int) {
	next := seat
	for range l.Players {
		next = l.seatAfter(next)
		if p := l.Players[next]; len(p.Hand) == 1 {
			l.maybeOpenUnoWindow(p)
			return
		}
	}
}

// rotateHands moves every hand one seat in the direction of play.
func (l *Lobby) rotateHands() {
	n := len(l.Players)
	hands := make([][]*models.Card, n)
	for i, p := range l.Players {
		hands[i] = p.Hand
	}
	for i := range l.Players {
		dest := ((i+l.Direction)%n + n) % n
		l.Players[dest].Hand = hands[i]
	}
}
