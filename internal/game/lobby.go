// internal/game/lobby.go
package game

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/CarterLud/unotwist/internal/cache"
	"github.com/CarterLud/unotwist/internal/models"
	"github.com/CarterLud/unotwist/internal/protocol"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Phase is the lifecycle stage of a lobby.
type Phase string

const (
	PhaseLobby     Phase = "lobby"
	PhaseStarted   Phase = "started"
	PhaseRoundOver Phase = "round_over"
)

const (
	handSize       = 7
	defaultHost    = "Host"
	defaultPlayer  = "Player"
	botName        = "AI Bot"
	maxNameLength  = 24
	closedByHost   = "Lobby closed"
	closedNoHumans = "Lobby closed: no players left"
)

// MaxSeats is the most seats a single deck can deal a full hand to while
// still turning up a starting card.
const MaxSeats = (DeckSize - 1) / handSize

// colorChoice is an outstanding wild waiting for its player to name a color.
type colorChoice struct {
	playerID uuid.UUID
	cardID   uuid.UUID
}

// Lobby is one game session, from creation through any number of rounds.
// A lobby is owned by a single goroutine; none of its methods lock.
type Lobby struct {
	ID        uuid.UUID
	Pin       string
	HostID    uuid.UUID
	Players   []*models.Player
	Phase     Phase
	Twist     models.Twist
	Rules     HouseRules
	Round     int
	CreatedAt time.Time

	Deck         *Deck
	CurrentColor models.Color
	TurnIndex    int
	Direction    int
	PendingDraw  int

	// LastActivity is bumped by every accepted request; the idle sweep reads it.
	LastActivity time.Time

	pendingFrom   int // seat that last added to PendingDraw
	awaitingColor *colorChoice
	firstWildSeen bool

	turnSeq  uint64
	botTimer Timer

	unoGen     uint64
	unoWindow  *unoWindow
	slamGen    uint64
	slamWindow *slamWindow

	actionIndex int
	history     *actionPublisher
	closed      bool

	rng   *rand.Rand
	sched Scheduler

	// BroadcastFn delivers a message to every seat in the lobby.
	BroadcastFn func(msg protocol.ServerMessage)
	// SendToPlayerFn delivers a message to one seat.
	SendToPlayerFn func(playerID uuid.UUID, msg protocol.ServerMessage)
	// OnClose runs once when the lobby shuts down for any reason.
	OnClose func(l *Lobby, reason string)
}

// NewLobby creates a lobby in the lobby phase with its host seated.
func NewLobby(pin, hostName string, rules HouseRules, sched Scheduler, rng *rand.Rand) (*Lobby, *models.Player) {
	now := time.Now()
	l := &Lobby{
		ID:           uuid.New(),
		Pin:          pin,
		Phase:        PhaseLobby,
		Rules:        rules,
		Twist:        PickTwist(rng, rules.TwistPool),
		Direction:    1,
		CreatedAt:    now,
		LastActivity: now,
		rng:          rng,
		sched:        sched,
	}
	l.Deck = NewDeck(rng)
	if cache.Rdb != nil {
		l.history = newActionPublisher(cache.PublishGameAction)
	}
	host := l.addPlayer(cleanName(hostName, defaultHost), false)
	l.HostID = host.ID
	l.logAction(host.ID, "lobby_created", map[string]interface{}{"twist": l.Twist.Key})
	return l, host
}

// cleanName trims and bounds a display name, falling back to def when empty.
func cleanName(name, def string) string {
	name = strings.TrimSpace(name)
	if r := []rune(name); len(r) > maxNameLength {
		name = strings.TrimSpace(string(r[:maxNameLength]))
	}
	if name == "" {
		return def
	}
	return name
}

func (l *Lobby) addPlayer(name string, bot bool) *models.Player {
	p := &models.Player{ID: uuid.New(), Name: name, IsBot: bot, Connected: !bot}
	l.Players = append(l.Players, p)
	return p
}

// Closed reports whether the lobby has shut down.
func (l *Lobby) Closed() bool { return l.closed }

// CanJoin reports why a new seat could not be taken right now, if at all.
func (l *Lobby) CanJoin() error {
	if l.closed {
		return ErrInvalidPin
	}
	if l.Phase != PhaseLobby {
		return ErrAlreadyStarted
	}
	if len(l.Players) >= l.Rules.MaxPlayers {
		return ErrLobbyFull
	}
	return nil
}

// Join seats a new player. Only possible before the first deal.
func (l *Lobby) Join(name string) (*models.Player, error) {
	if err := l.CanJoin(); err != nil {
		return nil, err
	}
	p := l.addPlayer(cleanName(name, defaultPlayer), false)
	l.touch()
	l.logAction(p.ID, "join", map[string]interface{}{"name": p.Name})
	l.broadcastRoster()
	return p, nil
}

// Roster lists seats for lobby membership frames.
func (l *Lobby) Roster() []protocol.LobbyPlayer {
	out := make([]protocol.LobbyPlayer, 0, len(l.Players))
	for _, p := range l.Players {
		out = append(out, protocol.LobbyPlayer{ID: p.ID, Name: p.Name, IsBot: p.IsBot})
	}
	return out
}

func (l *Lobby) broadcastRoster() {
	l.broadcast(protocol.LobbyUpdate{HostID: l.HostID, Players: l.Roster()})
}

// Player returns the seat with the given id.
func (l *Lobby) Player(id uuid.UUID) (*models.Player, int) {
	for i, p := range l.Players {
		if p.ID == id {
			return p, i
		}
	}
	return nil, -1
}

// CurrentPlayer is the seat whose turn it is.
func (l *Lobby) CurrentPlayer() *models.Player {
	if len(l.Players) == 0 {
		return nil
	}
	return l.Players[l.TurnIndex]
}

func (l *Lobby) seatAfter(seat int) int {
	n := len(l.Players)
	return ((seat+l.Direction)%n + n) % n
}

func (l *Lobby) humansConnected() int {
	n := 0
	for _, p := range l.Players {
		if !p.IsBot && p.Connected {
			n++
		}
	}
	return n
}

// Leave handles a seat's connection going away. Before the deal the seat is
// removed; afterwards a bot takes it over. The lobby closes when the host
// leaves or when no connected human remains.
func (l *Lobby) Leave(playerID uuid.UUID) {
	if l.closed {
		return
	}
	p, seat := l.Player(playerID)
	if p == nil {
		return
	}
	l.logAction(p.ID, "leave", nil)

	if playerID == l.HostID {
		l.Close(closedByHost)
		return
	}

	if l.Phase == PhaseLobby {
		l.Players = append(l.Players[:seat], l.Players[seat+1:]...)
		l.touch()
		l.broadcastRoster()
		return
	}

	p.Connected = false
	if l.humansConnected() == 0 {
		l.Close(closedNoHumans)
		return
	}
	p.IsBot = true
	l.broadcast(protocol.Message{Text: fmt.Sprintf("%s left, a bot takes over", p.Name)})
	if err := l.handOverToBot(p, seat); err != nil {
		l.fail(err)
		return
	}
	l.afterMutation()
}

// handOverToBot finishes anything the departed human left waiting on.
func (l *Lobby) handOverToBot(p *models.Player, seat int) error {
	if l.Phase != PhaseStarted {
		return nil
	}
	if ac := l.awaitingColor; ac != nil && ac.playerID == p.ID {
		l.awaitingColor = nil
		l.CurrentColor = BestColor(p.Hand)
		return l.resolveOrAdvance(0)
	}
	if w := l.unoWindow; w != nil && w.playerID == p.ID && !w.resolved {
		l.scheduleBotUno(p, w.gen)
	}
	if seat == l.TurnIndex {
		l.scheduleBot()
	}
	return nil
}

// Close shuts the lobby down: timers stop, seats are told why, and OnClose runs.
func (l *Lobby) Close(reason string) {
	if l.closed {
		return
	}
	l.closed = true
	l.cancelTimers()
	log.WithFields(log.Fields{"pin": l.Pin, "lobby": l.ID}).Infof("lobby closed: %s", reason)
	l.broadcast(protocol.Error{Message: reason})
	l.logAction(uuid.Nil, "lobby_closed", map[string]interface{}{"reason": reason})
	if l.history != nil {
		l.history.close()
	}
	if l.OnClose != nil {
		l.OnClose(l, reason)
	}
}

func (l *Lobby) cancelTimers() {
	stopTimer(l.botTimer)
	l.botTimer = nil
	l.turnSeq++
	l.closeUnoWindow(false)
	if l.slamWindow != nil {
		stopTimer(l.slamWindow.timer)
		l.slamWindow = nil
	}
}

// IdleFor is how long the lobby has gone without an accepted request.
func (l *Lobby) IdleFor(now time.Time) time.Duration {
	return now.Sub(l.LastActivity)
}

func (l *Lobby) touch() {
	l.LastActivity = time.Now()
}

func (l *Lobby) broadcast(msg protocol.ServerMessage) {
	if l.BroadcastFn != nil {
		l.BroadcastFn(msg)
	}
}

func (l *Lobby) sendTo(playerID uuid.UUID, msg protocol.ServerMessage) {
	if l.SendToPlayerFn != nil {
		l.SendToPlayerFn(playerID, msg)
	}
}
