package game

import (
	"github.com/CarterLud/unotwist/internal/models"
	"github.com/CarterLud/unotwist/internal/protocol"
	"github.com/google/uuid"
)

// Snapshot renders the lobby as seen by viewer. With HideOpponentHands set,
// other seats show only their card count.
func (l *Lobby) Snapshot(viewer uuid.UUID) protocol.State {
	players := make([]protocol.PlayerView, 0, len(l.Players))
	for _, p := range l.Players {
		pv := protocol.PlayerView{
			ID:        p.ID,
			Name:      p.Name,
			HandCount: len(p.Hand),
			IsBot:     p.IsBot,
			SaidUno:   p.SaidUno,
		}
		if !l.Rules.HideOpponentHands || p.ID == viewer {
			pv.Hand = append(make([]*models.Card, 0, len(p.Hand)), p.Hand...)
		}
		players = append(players, pv)
	}
	twist := l.Twist
	st := protocol.State{
		Pin:          l.Pin,
		Phase:        string(l.Phase),
		Players:      players,
		CurrentColor: l.CurrentColor,
		TurnIndex:    l.TurnIndex,
		Direction:    l.Direction,
		PendingDraw:  l.PendingDraw,
		Twist:        &twist,
	}
	if l.Deck != nil {
		st.DiscardTop = l.Deck.Top()
		st.DrawPileCount = l.Deck.DrawPileCount()
	}
	return st
}

// broadcastState sends each seat its own snapshot.
func (l *Lobby) broadcastState() {
	for _, p := range l.Players {
		l.sendTo(p.ID, protocol.StateUpdate{State: l.Snapshot(p.ID)})
	}
}
