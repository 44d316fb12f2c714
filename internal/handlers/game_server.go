// internal/handlers/game_server.go
package handlers

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/CarterLud/unotwist/internal/game"
	"github.com/CarterLud/unotwist/internal/protocol"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ServerConfig tunes a GameServer.
type ServerConfig struct {
	Rules            game.HouseRules
	LobbyIdleTimeout time.Duration
	ReapEvery        time.Duration
	MessagesPerSec   float64
	MessageBurst     int
}

// binding ties a connection to the seat it controls.
type binding struct {
	pin      string
	playerID uuid.UUID
}

// GameServer owns every lobby and every connection binding. All of its state
// is touched only from the goroutine running Run; other goroutines hand work
// over with Submit.
type GameServer struct {
	cfg    ServerConfig
	logger *logrus.Logger

	store    *game.LobbyStore
	conns    map[uuid.UUID]*Connection
	bindings map[uuid.UUID]binding
	seats    map[string]map[uuid.UUID]*Connection // pin -> player id -> connection

	tasks chan func()
	done  chan struct{}
}

func NewGameServer(cfg ServerConfig, logger *logrus.Logger) *GameServer {
	if cfg.ReapEvery <= 0 {
		cfg.ReapEvery = time.Minute
	}
	if cfg.MessagesPerSec <= 0 {
		cfg.MessagesPerSec = 20
	}
	if cfg.MessageBurst <= 0 {
		cfg.MessageBurst = 40
	}
	gs := &GameServer{
		cfg:      cfg,
		logger:   logger,
		conns:    make(map[uuid.UUID]*Connection),
		bindings: make(map[uuid.UUID]binding),
		seats:    make(map[string]map[uuid.UUID]*Connection),
		tasks:    make(chan func(), 256),
		done:     make(chan struct{}),
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	gs.store = game.NewLobbyStore(cfg.Rules, loopScheduler{gs: gs}, rng)
	return gs
}

// loopScheduler runs timer callbacks on the event loop.
type loopScheduler struct {
	gs *GameServer
}

func (s loopScheduler) AfterFunc(d time.Duration, f func()) game.Timer {
	return time.AfterFunc(d, func() { s.gs.Submit(f) })
}

// Submit queues f to run on the event loop. It gives up once the loop has stopped.
func (gs *GameServer) Submit(f func()) bool {
	select {
	case gs.tasks <- f:
		return true
	case <-gs.done:
		return false
	}
}

// Done is closed when Run returns.
func (gs *GameServer) Done() <-chan struct{} { return gs.done }

// Run processes submitted work and reaps idle lobbies until ctx is cancelled.
func (gs *GameServer) Run(ctx context.Context) {
	ticker := time.NewTicker(gs.cfg.ReapEvery)
	defer ticker.Stop()
	defer close(gs.done)

	for {
		select {
		case <-ctx.Done():
			for _, l := range gs.store.List() {
				l.Close("Server shutting down")
			}
			return
		case now := <-ticker.C:
			if gs.cfg.LobbyIdleTimeout > 0 {
				if n := gs.store.ReapIdle(now, gs.cfg.LobbyIdleTimeout); n > 0 {
					gs.logger.Infof("reaped %d idle lobbies", n)
				}
			}
		case f := <-gs.tasks:
			f()
		}
	}
}

// connect registers a freshly accepted connection.
func (gs *GameServer) connect(conn *Connection) {
	gs.conns[conn.ID] = conn
}

// disconnect gives up the connection's seat and forgets it.
func (gs *GameServer) disconnect(conn *Connection) {
	gs.leaveCurrent(conn)
	delete(gs.conns, conn.ID)
}

func (gs *GameServer) bind(conn *Connection, l *game.Lobby, playerID uuid.UUID) {
	gs.bindings[conn.ID] = binding{pin: l.Pin, playerID: playerID}
	seats := gs.seats[l.Pin]
	if seats == nil {
		seats = make(map[uuid.UUID]*Connection)
		gs.seats[l.Pin] = seats
	}
	seats[playerID] = conn
}

// leaveCurrent vacates the seat the connection holds, if any.
func (gs *GameServer) leaveCurrent(conn *Connection) {
	b, ok := gs.bindings[conn.ID]
	if !ok {
		return
	}
	delete(gs.bindings, conn.ID)
	delete(gs.seats[b.pin], b.playerID)
	if l, ok := gs.store.Get(b.pin); ok {
		l.Leave(b.playerID)
	}
}

// wire points a lobby's notifications at the connections seated in it.
func (gs *GameServer) wire(l *game.Lobby) {
	pin := l.Pin
	l.BroadcastFn = func(msg protocol.ServerMessage) {
		for _, c := range gs.seats[pin] {
			c.Write(msg)
		}
	}
	l.SendToPlayerFn = func(playerID uuid.UUID, msg protocol.ServerMessage) {
		if c, ok := gs.seats[pin][playerID]; ok {
			c.Write(msg)
		}
	}
}

// onLobbyClosed unbinds everyone still seated in a lobby that shut down.
func (gs *GameServer) onLobbyClosed(l *game.Lobby, reason string) {
	for connID, b := range gs.bindings {
		if b.pin == l.Pin {
			delete(gs.bindings, connID)
		}
	}
	delete(gs.seats, l.Pin)
	gs.logger.WithFields(logrus.Fields{"pin": l.Pin, "reason": reason}).Info("lobby removed")
}

// seat resolves the lobby for pin and the player the connection controls in
// it. The player is uuid.Nil when the connection holds no seat there.
func (gs *GameServer) seat(conn *Connection, pin protocol.Pin) (*game.Lobby, uuid.UUID, bool) {
	l, ok := gs.store.Get(string(pin))
	if !ok {
		return nil, uuid.Nil, false
	}
	b, bound := gs.bindings[conn.ID]
	if !bound || b.pin != l.Pin {
		return l, uuid.Nil, true
	}
	return l, b.playerID, true
}

// handle dispatches one decoded request. Runs on the event loop.
func (gs *GameServer) handle(conn *Connection, msg protocol.ClientMessage) {
	var err error
	switch m := msg.(type) {
	case protocol.Ping:
		conn.Write(protocol.Pong{})

	case protocol.CreateLobby:
		var l *game.Lobby
		l, err = gs.store.Create(m.Name, gs.onLobbyClosed)
		if err != nil {
			break
		}
		gs.leaveCurrent(conn)
		gs.wire(l)
		gs.bind(conn, l, l.HostID)
		conn.Write(protocol.LobbyCreated{Pin: l.Pin, PlayerID: l.HostID, HostID: l.HostID, Players: l.Roster()})
		gs.logger.WithFields(logrus.Fields{"pin": l.Pin, "twist": l.Twist.Key}).Info("lobby created")

	case protocol.JoinLobby:
		l, ok := gs.store.Get(string(m.Pin))
		if !ok {
			err = game.ErrInvalidPin
			break
		}
		if b, bound := gs.bindings[conn.ID]; bound && b.pin == l.Pin {
			// already seated here
			conn.Write(protocol.JoinedLobby{Pin: l.Pin, PlayerID: b.playerID, HostID: l.HostID, Players: l.Roster()})
			break
		}
		if err = l.CanJoin(); err != nil {
			break
		}
		gs.leaveCurrent(conn)
		p, joinErr := l.Join(m.Name)
		if joinErr != nil {
			err = joinErr
			break
		}
		gs.bind(conn, l, p.ID)
		conn.Write(protocol.JoinedLobby{Pin: l.Pin, PlayerID: p.ID, HostID: l.HostID, Players: l.Roster()})

	case protocol.StartGame:
		l, pid, ok := gs.seat(conn, m.Pin)
		if !ok {
			err = game.ErrLobbyNotFound
			break
		}
		err = l.Start(pid)

	case protocol.NewRound:
		l, pid, ok := gs.seat(conn, m.Pin)
		if !ok {
			err = game.ErrLobbyNotFound
			break
		}
		err = l.NewRound(pid)

	case protocol.Play:
		err = gs.inGame(conn, m.Pin, func(l *game.Lobby, pid uuid.UUID) error { return l.Play(pid, m.CardID) })
	case protocol.ChooseColor:
		err = gs.inGame(conn, m.Pin, func(l *game.Lobby, pid uuid.UUID) error { return l.ChooseColor(pid, m.Color, m.CardID) })
	case protocol.Draw:
		err = gs.inGame(conn, m.Pin, func(l *game.Lobby, pid uuid.UUID) error { return l.Draw(pid) })
	case protocol.Uno:
		err = gs.inGame(conn, m.Pin, func(l *game.Lobby, pid uuid.UUID) error { return l.DeclareUno(pid) })
	case protocol.CallUno:
		err = gs.inGame(conn, m.Pin, func(l *game.Lobby, pid uuid.UUID) error { return l.CallUno(pid) })
	case protocol.Slam:
		err = gs.inGame(conn, m.Pin, func(l *game.Lobby, pid uuid.UUID) error { return l.Slam(pid) })

	default:
		gs.logger.Warnf("no handler for %T", msg)
		conn.WriteError("Unknown message type")
		return
	}
	gs.respond(conn, err)
}

// inGame runs f against the seat the connection holds in pin's lobby. Frames
// for unknown pins are dropped.
func (gs *GameServer) inGame(conn *Connection, pin protocol.Pin, f func(l *game.Lobby, playerID uuid.UUID) error) error {
	l, pid, ok := gs.seat(conn, pin)
	if !ok {
		gs.logger.WithFields(logrus.Fields{"conn": conn.ID, "pin": pin}).Debug("dropping frame for unknown lobby")
		return nil
	}
	return f(l, pid)
}

// respond reports a failed request back to its sender. Rule errors carry a
// message for the player; anything else has already closed the lobby.
func (gs *GameServer) respond(conn *Connection, err error) {
	if err == nil {
		return
	}
	var ruleErr *game.RuleError
	if errors.As(err, &ruleErr) {
		conn.WriteError(ruleErr.Error())
		return
	}
	gs.logger.WithField("conn", conn.ID).Warnf("request failed: %v", err)
}

// LobbySummary is one row of the lobby listing.
type LobbySummary struct {
	Pin       string    `json:"pin"`
	Players   int       `json:"players"`
	Phase     string    `json:"phase"`
	Twist     string    `json:"twist"`
	Round     int       `json:"round"`
	CreatedAt time.Time `json:"createdAt"`
}

// Lobbies lists live lobbies, read on the event loop.
func (gs *GameServer) Lobbies(ctx context.Context) ([]LobbySummary, error) {
	reply := make(chan []LobbySummary, 1)
	ok := gs.Submit(func() {
		list := gs.store.List()
		out := make([]LobbySummary, 0, len(list))
		for _, l := range list {
			out = append(out, LobbySummary{
				Pin:       l.Pin,
				Players:   len(l.Players),
				Phase:     string(l.Phase),
				Twist:     l.Twist.Key,
				Round:     l.Round,
				CreatedAt: l.CreatedAt,
			})
		}
		reply <- out
	})
	if !ok {
		return nil, errors.New("game server stopped")
	}
	select {
	case out := <-reply:
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
