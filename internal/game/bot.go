// internal/game/bot.go
package game

import (
	"github.com/CarterLud/unotwist/internal/models"
	log "github.com/sirupsen/logrus"
)

// scheduleBot queues a move if the seat on turn is a bot. The task is tied to
// the current turn sequence and does nothing once the turn has moved on.
func (l *Lobby) scheduleBot() {
	stopTimer(l.botTimer)
	l.botTimer = nil
	if l.closed || l.Phase != PhaseStarted || l.sched == nil {
		return
	}
	p := l.CurrentPlayer()
	if p == nil || !p.IsBot {
		return
	}
	seq := l.turnSeq
	l.botTimer = l.sched.AfterFunc(l.Rules.BotDelay, func() {
		if l.closed || l.Phase != PhaseStarted || seq != l.turnSeq {
			return
		}
		l.botTurn()
	})
}

// botTurn plays the first legal non-wild, else the first legal wild, else draws.
func (l *Lobby) botTurn() {
	seat := l.TurnIndex
	p := l.Players[seat]
	if !p.IsBot || l.awaitingColor != nil {
		return
	}

	card := chooseBotCard(p.Hand, l.Deck.Top(), l.CurrentColor, l.PendingDraw > 0)
	var err error
	if card != nil {
		err = l.playCard(p, seat, card)
	} else {
		err = l.drawForTurn(p)
	}
	if err != nil {
		log.WithFields(log.Fields{"pin": l.Pin, "player": p.ID}).Warnf("bot move failed: %v", err)
		l.fail(err)
		return
	}
	l.afterMutation()
}

// chooseBotCard returns the card a bot plays, or nil to draw. With a draw
// pending only Draw2 and +4 qualify.
func chooseBotCard(hand []*models.Card, top *models.Card, current models.Color, pending bool) *models.Card {
	var wild *models.Card
	for _, c := range hand {
		if pending && !c.IsStacker() {
			continue
		}
		if !CanPlay(c, top, current) {
			continue
		}
		if !c.IsWild() {
			return c
		}
		if wild == nil {
			wild = c
		}
	}
	return wild
}
