// internal/game/play.go
package game

import (
	"errors"
	"fmt"

	"github.com/CarterLud/unotwist/internal/models"
	"github.com/CarterLud/unotwist/internal/protocol"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Start deals the first round. Only the host may start, and only once. A lone
// human gets a bot opponent.
func (l *Lobby) Start(requesterID uuid.UUID) error {
	if l.closed {
		return ErrLobbyNotFound
	}
	if requesterID != l.HostID {
		return ErrNotHost
	}
	if l.Phase != PhaseLobby {
		return ErrAlreadyStarted
	}
	if len(l.Players) < 1 {
		return ErrNoPlayers
	}
	if len(l.Players) == 1 {
		l.addPlayer(botName, true)
	}
	return l.beginRound(requesterID)
}

// NewRound deals again after a round has been won. Seats and twist carry over.
func (l *Lobby) NewRound(requesterID uuid.UUID) error {
	if l.closed {
		return ErrLobbyNotFound
	}
	if requesterID != l.HostID {
		return ErrNotHost
	}
	switch l.Phase {
	case PhaseLobby:
		return ErrNotStarted
	case PhaseStarted:
		return ErrRoundNotOver
	}
	return l.beginRound(requesterID)
}

func (l *Lobby) beginRound(requesterID uuid.UUID) error {
	l.touch()
	if err := l.deal(); err != nil {
		return l.fail(err)
	}
	l.logAction(requesterID, "round_start", map[string]interface{}{
		"round":   l.Round,
		"players": len(l.Players),
		"twist":   l.Twist.Key,
	})
	log.WithFields(log.Fields{"pin": l.Pin, "round": l.Round, "twist": l.Twist.Key}).Info("round dealt")
	for _, p := range l.Players {
		l.sendTo(p.ID, protocol.GameStarted{Twist: l.Twist, State: l.Snapshot(p.ID)})
	}
	return nil
}

// deal resets the table with a fresh deck, seven cards per seat and one
// non-wild card face up.
func (l *Lobby) deal() error {
	l.cancelTimers()
	l.Round++
	l.Deck = NewDeck(l.rng)
	for _, p := range l.Players {
		p.Hand = nil
		p.SaidUno = false
	}
	for r := 0; r < handSize; r++ {
		for _, p := range l.Players {
			cards, err := l.Deck.Draw(1)
			if err != nil {
				return err
			}
			p.Hand = append(p.Hand, cards...)
		}
	}
	first, err := l.Deck.FlipFirst()
	if err != nil {
		return err
	}
	l.CurrentColor = first.Color
	l.Direction = 1
	l.PendingDraw = 0
	l.pendingFrom = 0
	l.awaitingColor = nil
	l.firstWildSeen = false
	l.TurnIndex = (l.Round - 1) % len(l.Players)
	l.Phase = PhaseStarted
	l.turnSeq++
	l.scheduleBot()
	return nil
}

// actor resolves a seat that wants to act in a running round.
func (l *Lobby) actor(playerID uuid.UUID) (*models.Player, int, error) {
	if l.closed {
		return nil, -1, ErrLobbyNotFound
	}
	p, seat := l.Player(playerID)
	if p == nil {
		return nil, -1, ErrNotSeated
	}
	if l.Phase != PhaseStarted {
		return nil, -1, ErrNotStarted
	}
	return p, seat, nil
}

// turnActor is actor plus the turn checks shared by Play and Draw.
func (l *Lobby) turnActor(playerID uuid.UUID) (*models.Player, int, error) {
	p, seat, err := l.actor(playerID)
	if err != nil {
		return nil, -1, err
	}
	if seat != l.TurnIndex {
		return nil, -1, ErrNotYourTurn
	}
	if l.awaitingColor != nil {
		return nil, -1, ErrAwaitingColor
	}
	return p, seat, nil
}

// Play puts a card from the seat's hand onto the discard pile. Nothing changes
// unless the card is held, legal on the current top, and answers any pending
// draw.
func (l *Lobby) Play(playerID, cardID uuid.UUID) error {
	p, seat, err := l.turnActor(playerID)
	if err != nil {
		return err
	}
	card, _ := p.FindCard(cardID)
	if card == nil {
		return ErrCardNotInHand
	}
	if l.PendingDraw > 0 && !card.IsStacker() {
		return ErrMustStack
	}
	if !CanPlay(card, l.Deck.Top(), l.CurrentColor) {
		return ErrIllegalPlay
	}
	l.touch()
	if err := l.playCard(p, seat, card); err != nil {
		return l.fail(err)
	}
	l.afterMutation()
	return nil
}

// playCard applies a validated play. Shared by humans and bots.
func (l *Lobby) playCard(p *models.Player, seat int, card *models.Card) error {
	p.RemoveCard(card.ID)
	l.Deck.Discard(card)
	l.logAction(p.ID, "play", map[string]interface{}{"card": card.String(), "cardId": card.ID})

	if len(p.Hand) == 0 {
		l.endRound(p)
		return nil
	}

	skips := 0
	if card.IsWild() {
		if card.Value == models.ValueWildDraw4 {
			l.PendingDraw += 4
			l.pendingFrom = seat
		}
		if err := l.applyWildTwists(p, seat); err != nil {
			return err
		}
		if !p.IsBot {
			l.awaitingColor = &colorChoice{playerID: p.ID, cardID: card.ID}
			l.maybeOpenUnoWindow(p)
			l.sendTo(p.ID, protocol.ColorPrompt{CardID: card.ID})
			return nil
		}
		l.CurrentColor = BestColor(p.Hand)
	} else {
		l.CurrentColor = card.Color
		skips = l.applyActionCard(card, seat)
		if l.applyCardTwists(p, seat, card) {
			l.openUnoWindowAfterHandMove(seat)
			return l.resolveOrAdvance(skips)
		}
	}

	l.maybeOpenUnoWindow(p)
	return l.resolveOrAdvance(skips)
}

// applyActionCard resolves Skip, Reverse and Draw2 and returns how many seats
// the next advance skips.
func (l *Lobby) applyActionCard(card *models.Card, seat int) int {
	value := card.Value
	if l.Twist.Key == TwistReverseWorld {
		switch value {
		case models.ValueSkip:
			value = models.ValueReverse
		case models.ValueReverse:
			value = models.ValueSkip
		}
	}
	switch value {
	case models.ValueSkip:
		return 1
	case models.ValueReverse:
		l.Direction = -l.Direction
		if len(l.Players) == 2 {
			return 1
		}
	case models.ValueDraw2:
		l.PendingDraw += 2
		l.pendingFrom = seat
	}
	return 0
}

// ChooseColor names the color for the wild the seat just played, then lets
// play continue.
func (l *Lobby) ChooseColor(playerID uuid.UUID, color models.Color, cardID uuid.UUID) error {
	p, _, err := l.actor(playerID)
	if err != nil {
		return err
	}
	ac := l.awaitingColor
	if ac == nil || ac.playerID != p.ID || ac.cardID != cardID {
		return ErrNoColorPending
	}
	if top := l.Deck.Top(); top == nil || top.ID != cardID {
		return ErrNoColorPending
	}
	if !color.Valid() {
		return ErrInvalidColor
	}
	l.touch()
	l.awaitingColor = nil
	l.CurrentColor = color
	l.logAction(p.ID, "choose_color", map[string]interface{}{"color": string(color)})
	if err := l.resolveOrAdvance(0); err != nil {
		return l.fail(err)
	}
	l.afterMutation()
	return nil
}

// Draw takes a card for the seat on turn, or the pending draw if one is owed.
func (l *Lobby) Draw(playerID uuid.UUID) error {
	p, _, err := l.turnActor(playerID)
	if err != nil {
		return err
	}
	l.touch()
	if err := l.drawForTurn(p); err != nil {
		return l.fail(err)
	}
	l.afterMutation()
	return nil
}

// drawForTurn draws one card and ends the turn. Going from one card to two
// without having said UNO costs the missed-UNO penalty on top.
func (l *Lobby) drawForTurn(p *models.Player) error {
	if l.PendingDraw > 0 {
		return l.applyPendingDraw()
	}
	penalty := 0
	if len(p.Hand) == 1 && !p.SaidUno {
		penalty = l.missedUnoPenalty()
	}
	cards, err := l.Deck.Draw(1 + penalty)
	if err != nil {
		return err
	}
	p.Hand = append(p.Hand, cards...)
	l.logAction(p.ID, "draw", map[string]interface{}{"count": 1})
	if penalty > 0 {
		l.broadcast(protocol.Message{Text: fmt.Sprintf("UNO penalty: %s draws %d", p.Name, penalty)})
		l.logAction(p.ID, "uno_penalty", map[string]interface{}{"count": penalty})
	}
	l.advance(1)
	return nil
}

func (l *Lobby) missedUnoPenalty() int {
	if l.Twist.Key == TwistUnoBomb {
		return unoBombPenalty
	}
	return l.Rules.MissedUnoPenalty
}

// resolveOrAdvance ends a play: an owed draw takes precedence over the normal
// advance of one seat plus skips.
func (l *Lobby) resolveOrAdvance(skips int) error {
	if l.PendingDraw > 0 {
		return l.applyPendingDraw()
	}
	l.advance(1 + skips)
	return nil
}

// applyPendingDraw makes the seat after the last stacker draw everything owed
// and skips them. Under reverse_draw the stacker draws instead and play
// passes to the seat after them.
func (l *Lobby) applyPendingDraw() error {
	target := l.seatAfter(l.pendingFrom)
	if l.Twist.Key == TwistReverseDraw {
		target = l.pendingFrom
	}
	cards, err := l.Deck.Draw(l.PendingDraw)
	if err != nil {
		return err
	}
	victim := l.Players[target]
	victim.Hand = append(victim.Hand, cards...)
	l.logAction(victim.ID, "forced_draw", map[string]interface{}{"count": len(cards)})
	l.broadcast(protocol.Message{Text: fmt.Sprintf("%s draws %d", victim.Name, len(cards))})
	l.PendingDraw = 0
	l.TurnIndex = target
	l.advance(1)
	return nil
}

// advance moves the turn by steps seats in the current direction and wakes a
// bot if one now holds the turn.
func (l *Lobby) advance(steps int) {
	n := len(l.Players)
	l.TurnIndex = ((l.TurnIndex+steps*l.Direction)%n + n) % n
	l.turnSeq++
	l.scheduleBot()
}

func (l *Lobby) endRound(winner *models.Player) {
	l.Phase = PhaseRoundOver
	l.PendingDraw = 0
	l.awaitingColor = nil
	l.cancelTimers()
	l.broadcast(protocol.Message{Text: fmt.Sprintf("%s wins the round!", winner.Name)})
	l.broadcast(protocol.RoundOver{WinnerID: winner.ID, WinnerName: winner.Name})
	l.logAction(winner.ID, "round_over", map[string]interface{}{"round": l.Round})
	l.recordRound(winner)
}

// afterMutation verifies the card count and pushes fresh state to every seat.
func (l *Lobby) afterMutation() {
	if l.closed {
		return
	}
	if err := l.checkInvariant(); err != nil {
		l.fail(err)
		return
	}
	l.reconcileUnoWindow()
	l.broadcastState()
}

// fail closes the lobby on unrecoverable errors and passes err through.
func (l *Lobby) fail(err error) error {
	switch {
	case errors.Is(err, ErrDeckExhausted):
		log.WithFields(log.Fields{"pin": l.Pin}).Warnf("deck exhausted: %v", err)
		l.Close("Out of cards, lobby closed")
	case errors.Is(err, ErrInvariant):
		log.WithFields(log.Fields{"pin": l.Pin}).Errorf("invariant check failed: %v", err)
		l.Close("Internal error, lobby closed")
	}
	return err
}

// checkInvariant confirms every card of the deck is in exactly one place.
func (l *Lobby) checkInvariant() error {
	if l.Phase == PhaseLobby {
		return nil
	}
	seen := make(map[uuid.UUID]struct{}, DeckSize)
	count := func(cards []*models.Card) error {
		for _, c := range cards {
			if _, dup := seen[c.ID]; dup {
				return fmt.Errorf("card %s held twice: %w", c.ID, ErrInvariant)
			}
			seen[c.ID] = struct{}{}
		}
		return nil
	}
	for _, p := range l.Players {
		if err := count(p.Hand); err != nil {
			return err
		}
	}
	if err := count(l.Deck.cards()); err != nil {
		return err
	}
	if len(seen) != DeckSize {
		return fmt.Errorf("%d cards in play: %w", len(seen), ErrInvariant)
	}
	return nil
}
