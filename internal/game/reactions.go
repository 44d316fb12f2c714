package game

import (
	"fmt"

	"github.com/CarterLud/unotwist/internal/models"
	"github.com/CarterLud/unotwist/internal/protocol"
	"github.com/google/uuid"
)

// unoWindow is open while a seat sits on one card. A newer window replaces
// an older one; gen tells their timers apart.
type unoWindow struct {
	gen       uint64
	playerID  uuid.UUID
	resolved  bool
	calledOut bool
	timer     Timer
}

// slamWindow collects slam responses until its timer picks a victim.
type slamWindow struct {
	gen      uint64
	received map[uuid.UUID]bool
	timer    Timer
}

// maybeOpenUnoWindow opens a window for p if p is down to one card.
func (l *Lobby) maybeOpenUnoWindow(p *models.Player) {
	if len(p.Hand) != 1 {
		return
	}
	l.closeUnoWindow(false)
	l.unoGen++
	w := &unoWindow{gen: l.unoGen, playerID: p.ID}
	l.unoWindow = w
	p.SaidUno = false
	l.broadcast(protocol.UnoWindow{PlayerID: p.ID, PlayerName: p.Name})
	if p.IsBot {
		l.scheduleBotUno(p, w.gen)
	}
}

// scheduleBotUno lets a bot holder declare after a delay unless the window
// was resolved or replaced first.
func (l *Lobby) scheduleBotUno(p *models.Player, gen uint64) {
	w := l.unoWindow
	if w == nil || w.gen != gen || l.sched == nil {
		return
	}
	stopTimer(w.timer)
	w.timer = l.sched.AfterFunc(l.Rules.UnoBotDelay, func() {
		cur := l.unoWindow
		if l.closed || cur == nil || cur.gen != gen || cur.resolved {
			return
		}
		if len(p.Hand) != 1 {
			return
		}
		p.SaidUno = true
		l.broadcast(protocol.Message{Text: fmt.Sprintf("%s says UNO!", p.Name)})
		l.logAction(p.ID, "uno", nil)
		l.resolveUnoWindow()
		l.afterMutation()
	})
}

// resolveUnoWindow marks the current window settled and tells everyone.
func (l *Lobby) resolveUnoWindow() {
	w := l.unoWindow
	if w == nil || w.resolved {
		return
	}
	w.resolved = true
	stopTimer(w.timer)
	l.broadcast(protocol.UnoWindowClose{})
}

// closeUnoWindow drops the current window. announce sends uno_window_close
// if the window had not been resolved yet.
func (l *Lobby) closeUnoWindow(announce bool) {
	w := l.unoWindow
	if w == nil {
		return
	}
	stopTimer(w.timer)
	if announce && !w.resolved {
		l.broadcast(protocol.UnoWindowClose{})
	}
	l.unoWindow = nil
}

// reconcileUnoWindow closes a window whose holder no longer has one card.
// While the holder still has one card the window stays, so a called-out
// holder cannot declare late.
func (l *Lobby) reconcileUnoWindow() {
	w := l.unoWindow
	if w == nil {
		return
	}
	p, _ := l.Player(w.playerID)
	if p == nil || len(p.Hand) != 1 {
		l.closeUnoWindow(true)
	}
}

// DeclareUno records that the seat said UNO for its single card.
func (l *Lobby) DeclareUno(playerID uuid.UUID) error {
	p, _, err := l.actor(playerID)
	if err != nil {
		return err
	}
	if len(p.Hand) != 1 {
		return ErrUnoNotAllowed
	}
	w := l.unoWindow
	ownWindow := w != nil && w.playerID == p.ID
	if ownWindow && w.calledOut {
		return ErrCalledOut
	}
	if p.SaidUno {
		return nil
	}
	l.touch()
	p.SaidUno = true
	l.broadcast(protocol.Message{Text: fmt.Sprintf("%s says UNO!", p.Name)})
	l.logAction(p.ID, "uno", nil)
	if ownWindow {
		l.resolveUnoWindow()
	}
	l.afterMutation()
	return nil
}

// CallUno accuses the holder of the open window of not declaring. The holder
// keeps the missed-UNO flag and pays on their next draw.
func (l *Lobby) CallUno(callerID uuid.UUID) error {
	caller, _, err := l.actor(callerID)
	if err != nil {
		return err
	}
	w := l.unoWindow
	if w == nil || w.resolved {
		return ErrNoUnoWindow
	}
	if w.playerID == caller.ID {
		return ErrCallSelf
	}
	target, _ := l.Player(w.playerID)
	if target == nil || target.SaidUno {
		return ErrNoUnoWindow
	}
	l.touch()
	w.calledOut = true
	l.broadcast(protocol.Message{Text: fmt.Sprintf("%s called out %s for not saying UNO!", caller.Name, target.Name)})
	l.logAction(caller.ID, "call_uno", map[string]interface{}{"target": target.ID})
	l.resolveUnoWindow()
	l.afterMutation()
	return nil
}

// startSlam opens a slam window, replacing any running one.
func (l *Lobby) startSlam() {
	if l.slamWindow != nil {
		stopTimer(l.slamWindow.timer)
	}
	l.slamGen++
	gen := l.slamGen
	w := &slamWindow{gen: gen, received: make(map[uuid.UUID]bool)}
	l.slamWindow = w
	l.broadcast(protocol.SlamStart{})
	if l.sched != nil {
		w.timer = l.sched.AfterFunc(l.Rules.SlamWindow, func() { l.expireSlam(gen) })
	}
}

// Slam records a response to the open slam window. Without one it is ignored.
func (l *Lobby) Slam(playerID uuid.UUID) error {
	if l.closed {
		return ErrLobbyNotFound
	}
	if p, _ := l.Player(playerID); p == nil {
		return ErrNotSeated
	}
	if l.slamWindow == nil {
		return nil
	}
	l.slamWindow.received[playerID] = true
	return nil
}

// expireSlam penalizes one seat: a random non-responder, or anyone if all
// responded. Turn order is untouched.
func (l *Lobby) expireSlam(gen uint64) {
	w := l.slamWindow
	if l.closed || w == nil || w.gen != gen {
		return
	}
	l.slamWindow = nil
	if l.Phase != PhaseStarted || len(l.Players) == 0 {
		return
	}
	victim := l.pickSlamVictim(w.received)
	cards, err := l.Deck.Draw(slamPenalty)
	if err != nil {
		l.fail(err)
		return
	}
	victim.Hand = append(victim.Hand, cards...)
	l.logAction(victim.ID, "slam_penalty", map[string]interface{}{"count": slamPenalty})
	l.broadcast(protocol.SlamPenalty{PlayerName: victim.Name, Count: slamPenalty})
	l.afterMutation()
}

func (l *Lobby) pickSlamVictim(received map[uuid.UUID]bool) *models.Player {
	var candidates []*models.Player
	for _, p := range l.Players {
		if !received[p.ID] {
			candidates = append(candidates, p)
		}
	}
	if len(candidates) == 0 {
		candidates = l.Players
	}
	return candidates[l.rng.Intn(len(candidates))]
}
