package handlers

import (
	"io"
	"testing"
	"time"

	"github.com/CarterLud/unotwist/internal/game"
	"github.com/CarterLud/unotwist/internal/protocol"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// newTestServer builds a server whose timers are too slow to fire during a test.
func newTestServer() *GameServer {
	rules := game.DefaultHouseRules()
	rules.BotDelay = time.Hour
	rules.UnoBotDelay = time.Hour
	rules.SlamWindow = time.Hour
	return NewGameServer(ServerConfig{Rules: rules}, quietLogger())
}

func connectTest(gs *GameServer) *Connection {
	conn := NewConnection("test")
	gs.connect(conn)
	return conn
}

// drain empties the connection queue.
func drain(conn *Connection) []protocol.ServerMessage {
	var out []protocol.ServerMessage
	for {
		select {
		case msg := <-conn.OutChan:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func lastOf(msgs []protocol.ServerMessage, msgType string) protocol.ServerMessage {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].MessageType() == msgType {
			return msgs[i]
		}
	}
	return nil
}

func errorsIn(msgs []protocol.ServerMessage) []string {
	var out []string
	for _, m := range msgs {
		if e, ok := m.(protocol.Error); ok {
			out = append(out, e.Message)
		}
	}
	return out
}

// createAndJoin seats Ann as host and Bob as guest and returns the pin.
func createAndJoin(t *testing.T, gs *GameServer) (ann, bob *Connection, pin string) {
	t.Helper()
	ann, bob = connectTest(gs), connectTest(gs)
	gs.handle(ann, protocol.CreateLobby{Name: "Ann"})
	created, ok := lastOf(drain(ann), "lobby_created").(protocol.LobbyCreated)
	require.True(t, ok)
	require.Len(t, created.Pin, 6)

	gs.handle(bob, protocol.JoinLobby{Name: "Bob", Pin: protocol.Pin(created.Pin)})
	joined, ok := lastOf(drain(bob), "joined_lobby").(protocol.JoinedLobby)
	require.True(t, ok)
	require.Len(t, joined.Players, 2)
	assert.Equal(t, created.HostID, joined.HostID)

	update, ok := lastOf(drain(ann), "lobby_update").(protocol.LobbyUpdate)
	require.True(t, ok)
	assert.Len(t, update.Players, 2)
	return ann, bob, created.Pin
}

func TestCreateJoinStartEndToEnd(t *testing.T) {
	gs := newTestServer()
	ann, bob, pin := createAndJoin(t, gs)

	gs.handle(ann, protocol.StartGame{Pin: protocol.Pin(pin)})
	for _, conn := range []*Connection{ann, bob} {
		started, ok := lastOf(drain(conn), "game_started").(protocol.GameStarted)
		require.True(t, ok)
		st := started.State
		require.Len(t, st.Players, 2)
		assert.Len(t, st.Players[0].Hand, 7)
		assert.Len(t, st.Players[1].Hand, 7)
		assert.Equal(t, 93, st.DrawPileCount)
		require.NotNil(t, st.DiscardTop)
		assert.False(t, st.DiscardTop.IsWild())
		assert.Equal(t, "started", st.Phase)
		assert.Equal(t, pin, st.Pin)
	}
}

func TestJoinErrors(t *testing.T) {
	gs := newTestServer()
	ann, _, pin := createAndJoin(t, gs)
	late := connectTest(gs)

	gs.handle(late, protocol.JoinLobby{Name: "Cat", Pin: "000001"})
	assert.Equal(t, []string{"Invalid PIN"}, errorsIn(drain(late)))

	gs.handle(ann, protocol.StartGame{Pin: protocol.Pin(pin)})
	gs.handle(late, protocol.JoinLobby{Name: "Cat", Pin: protocol.Pin(pin)})
	assert.Equal(t, []string{"Game already started"}, errorsIn(drain(late)))
}

func TestStartErrors(t *testing.T) {
	gs := newTestServer()
	ann, bob, pin := createAndJoin(t, gs)

	gs.handle(ann, protocol.StartGame{Pin: "000000"})
	assert.Equal(t, []string{"Lobby not found"}, errorsIn(drain(ann)))

	gs.handle(bob, protocol.StartGame{Pin: protocol.Pin(pin)})
	assert.Equal(t, []string{"Only the host can start"}, errorsIn(drain(bob)))

	stranger := connectTest(gs)
	gs.handle(stranger, protocol.StartGame{Pin: protocol.Pin(pin)})
	assert.Equal(t, []string{"Only the host can start"}, errorsIn(drain(stranger)))

	gs.handle(ann, protocol.StartGame{Pin: protocol.Pin(pin)})
	drain(ann)
	gs.handle(ann, protocol.StartGame{Pin: protocol.Pin(pin)})
	assert.Equal(t, []string{"Game already started"}, errorsIn(drain(ann)))
}

func TestSoloHostGetsBot(t *testing.T) {
	gs := newTestServer()
	ann := connectTest(gs)
	gs.handle(ann, protocol.CreateLobby{Name: "Ann"})
	created := lastOf(drain(ann), "lobby_created").(protocol.LobbyCreated)

	gs.handle(ann, protocol.StartGame{Pin: protocol.Pin(created.Pin)})
	started, ok := lastOf(drain(ann), "game_started").(protocol.GameStarted)
	require.True(t, ok)
	require.Len(t, started.State.Players, 2)
	assert.True(t, started.State.Players[1].IsBot)
	assert.Equal(t, "AI Bot", started.State.Players[1].Name)
}

func TestRuleViolationAnswersSenderOnly(t *testing.T) {
	gs := newTestServer()
	ann, bob, pin := createAndJoin(t, gs)
	gs.handle(ann, protocol.StartGame{Pin: protocol.Pin(pin)})
	started := lastOf(drain(bob), "game_started").(protocol.GameStarted)
	drain(ann)

	card := started.State.Players[1].Hand[0]
	gs.handle(bob, protocol.Play{Pin: protocol.Pin(pin), CardID: card.ID})
	assert.Equal(t, []string{"Not your turn"}, errorsIn(drain(bob)))
	assert.Empty(t, drain(ann))
}

func TestDrawBroadcastsState(t *testing.T) {
	gs := newTestServer()
	ann, bob, pin := createAndJoin(t, gs)
	gs.handle(ann, protocol.StartGame{Pin: protocol.Pin(pin)})
	drain(ann)
	drain(bob)

	gs.handle(ann, protocol.Draw{Pin: protocol.Pin(pin)})
	for _, conn := range []*Connection{ann, bob} {
		st, ok := lastOf(drain(conn), "state").(protocol.StateUpdate)
		require.True(t, ok)
		assert.Equal(t, 8, st.State.Players[0].HandCount)
		assert.Equal(t, 1, st.State.TurnIndex)
	}
}

func TestUnknownPinFramesAreDropped(t *testing.T) {
	gs := newTestServer()
	ann, _, _ := createAndJoin(t, gs)

	gs.handle(ann, protocol.Draw{Pin: "000000"})
	gs.handle(ann, protocol.Uno{Pin: "000000"})
	assert.Empty(t, drain(ann))
}

func TestPingPong(t *testing.T) {
	gs := newTestServer()
	conn := connectTest(gs)
	gs.handle(conn, protocol.Ping{})
	msgs := drain(conn)
	require.Len(t, msgs, 1)
	assert.Equal(t, "pong", msgs[0].MessageType())
}

func TestHostDisconnectClosesLobby(t *testing.T) {
	gs := newTestServer()
	ann, bob, pin := createAndJoin(t, gs)

	gs.disconnect(ann)
	assert.Equal(t, []string{"Lobby closed"}, errorsIn(drain(bob)))
	_, ok := gs.store.Get(pin)
	assert.False(t, ok)
	assert.Empty(t, gs.bindings)
	assert.NotContains(t, gs.seats, pin)
}

func TestGuestDisconnectMidGameHandsSeatToBot(t *testing.T) {
	gs := newTestServer()
	ann, bob, pin := createAndJoin(t, gs)
	gs.handle(ann, protocol.StartGame{Pin: protocol.Pin(pin)})
	drain(ann)

	gs.disconnect(bob)
	msgs := drain(ann)
	var texts []string
	for _, m := range msgs {
		if txt, ok := m.(protocol.Message); ok {
			texts = append(texts, txt.Text)
		}
	}
	assert.Contains(t, texts, "Bob left, a bot takes over")
	st, ok := lastOf(msgs, "state").(protocol.StateUpdate)
	require.True(t, ok)
	assert.True(t, st.State.Players[1].IsBot)
	_, ok = gs.store.Get(pin)
	assert.True(t, ok)
}

func TestCreatingAgainLeavesPreviousLobby(t *testing.T) {
	gs := newTestServer()
	ann, bob, first := createAndJoin(t, gs)

	gs.handle(bob, protocol.CreateLobby{Name: "Bob"})
	second := lastOf(drain(bob), "lobby_created").(protocol.LobbyCreated)
	assert.NotEqual(t, first, second.Pin)

	update, ok := lastOf(drain(ann), "lobby_update").(protocol.LobbyUpdate)
	require.True(t, ok)
	assert.Len(t, update.Players, 1)
	assert.Equal(t, 2, gs.store.Len())
}

func TestFailedJoinKeepsCurrentSeat(t *testing.T) {
	gs := newTestServer()
	ann, bob, pin := createAndJoin(t, gs)
	gs.handle(ann, protocol.StartGame{Pin: protocol.Pin(pin)})
	drain(ann)
	drain(bob)

	gs.handle(ann, protocol.JoinLobby{Name: "Ann", Pin: "000000"})
	assert.Equal(t, []string{"Invalid PIN"}, errorsIn(drain(ann)))
	assert.Empty(t, errorsIn(drain(bob)))

	l, ok := gs.store.Get(pin)
	require.True(t, ok)
	assert.False(t, l.Closed())
	assert.Equal(t, pin, gs.bindings[ann.ID].pin)

	// a started lobby elsewhere is refused without giving up the seat here
	cat := connectTest(gs)
	gs.handle(cat, protocol.CreateLobby{Name: "Cat"})
	other := lastOf(drain(cat), "lobby_created").(protocol.LobbyCreated)
	gs.handle(cat, protocol.StartGame{Pin: protocol.Pin(other.Pin)})
	drain(cat)

	gs.handle(bob, protocol.JoinLobby{Name: "Bob", Pin: protocol.Pin(other.Pin)})
	assert.Equal(t, []string{"Game already started"}, errorsIn(drain(bob)))
	assert.Equal(t, pin, gs.bindings[bob.ID].pin)

	gs.handle(ann, protocol.Draw{Pin: protocol.Pin(pin)})
	st, ok := lastOf(drain(bob), "state").(protocol.StateUpdate)
	require.True(t, ok)
	assert.Equal(t, 8, st.State.Players[0].HandCount)
}

func TestJoiningOwnLobbyAgainKeepsSeat(t *testing.T) {
	gs := newTestServer()
	ann, bob, pin := createAndJoin(t, gs)

	gs.handle(ann, protocol.JoinLobby{Name: "Ann", Pin: protocol.Pin(pin)})
	joined, ok := lastOf(drain(ann), "joined_lobby").(protocol.JoinedLobby)
	require.True(t, ok)
	assert.Equal(t, joined.HostID, joined.PlayerID)
	assert.Len(t, joined.Players, 2)
	assert.Empty(t, drain(bob))
}
