package game

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/CarterLud/unotwist/internal/models"
	"github.com/CarterLud/unotwist/internal/protocol"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// manualTimer is a task held by manualScheduler until a test fires it.
type manualTimer struct {
	delay   time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *manualTimer) Stop() bool {
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// manualScheduler queues tasks instead of running them on a clock.
type manualScheduler struct {
	timers []*manualTimer
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Timer {
	t := &manualTimer{delay: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

// pending counts tasks that are neither stopped nor fired.
func (s *manualScheduler) pending() int {
	n := 0
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// runPending fires every task pending at call time, in creation order.
// Tasks scheduled while firing wait for the next call.
func (s *manualScheduler) runPending() int {
	batch := append([]*manualTimer(nil), s.timers...)
	n := 0
	for _, t := range batch {
		if t.stopped || t.fired {
			continue
		}
		t.fired = true
		t.f()
		n++
	}
	return n
}

// runDelay fires pending tasks scheduled with exactly d.
func (s *manualScheduler) runDelay(d time.Duration) int {
	batch := append([]*manualTimer(nil), s.timers...)
	n := 0
	for _, t := range batch {
		if t.stopped || t.fired || t.delay != d {
			continue
		}
		t.fired = true
		t.f()
		n++
	}
	return n
}

// recorder collects what a lobby sends instead of writing to sockets.
type recorder struct {
	mu        sync.Mutex
	broadcast []protocol.ServerMessage
	direct    map[uuid.UUID][]protocol.ServerMessage
}

func newRecorder() *recorder {
	return &recorder{direct: make(map[uuid.UUID][]protocol.ServerMessage)}
}

func (r *recorder) broadcastFn(msg protocol.ServerMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcast = append(r.broadcast, msg)
}

func (r *recorder) sendFn(playerID uuid.UUID, msg protocol.ServerMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.direct[playerID] = append(r.direct[playerID], msg)
}

func (r *recorder) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcast = nil
	r.direct = make(map[uuid.UUID][]protocol.ServerMessage)
}

// texts returns the text of every broadcast message frame.
func (r *recorder) texts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, m := range r.broadcast {
		if msg, ok := m.(protocol.Message); ok {
			out = append(out, msg.Text)
		}
	}
	return out
}

// countBroadcast counts broadcast frames with the given type tag.
func (r *recorder) countBroadcast(msgType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.broadcast {
		if m.MessageType() == msgType {
			n++
		}
	}
	return n
}

func (r *recorder) lastDirect(playerID uuid.UUID, msgType string) protocol.ServerMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.direct[playerID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].MessageType() == msgType {
			return msgs[i]
		}
	}
	return nil
}

func testRules() HouseRules {
	rules := DefaultHouseRules()
	rules.BotDelay = 600 * time.Millisecond
	rules.UnoBotDelay = 1000 * time.Millisecond
	rules.SlamWindow = 2000 * time.Millisecond
	return rules
}

// newTestLobby creates a lobby with the given number of human seats and a
// fixed twist. The host is Players[0].
func newTestLobby(t *testing.T, humans int, twistKey string) (*Lobby, *manualScheduler, *recorder) {
	t.Helper()
	sched := &manualScheduler{}
	rec := newRecorder()
	names := []string{"Ann", "Bob", "Cat", "Dan", "Eve"}

	l, _ := NewLobby("123456", names[0], testRules(), sched, rand.New(rand.NewSource(7)))
	twist, ok := TwistByKey(twistKey)
	require.True(t, ok, "unknown twist %s", twistKey)
	l.Twist = twist
	l.BroadcastFn = rec.broadcastFn
	l.SendToPlayerFn = rec.sendFn

	for i := 1; i < humans; i++ {
		_, err := l.Join(names[i])
		require.NoError(t, err)
	}
	return l, sched, rec
}

// startedLobby is newTestLobby followed by a successful start.
func startedLobby(t *testing.T, humans int, twistKey string) (*Lobby, *manualScheduler, *recorder) {
	t.Helper()
	l, sched, rec := newTestLobby(t, humans, twistKey)
	require.NoError(t, l.Start(l.HostID))
	rec.clear()
	return l, sched, rec
}

// neutralTwist has no wired behavior.
const neutralTwist = "color_lock"

type cardSpec struct {
	color models.Color
	value string
}

func spec(color models.Color, value string) cardSpec { return cardSpec{color: color, value: value} }

func wild(value string) cardSpec { return cardSpec{color: models.ColorNone, value: value} }

// takeFromDraw pulls a matching card out of the draw pile. When none is left
// there it trades one out of another seat's hand, giving that seat the top
// draw-pile card in exchange.
func takeFromDraw(t *testing.T, l *Lobby, s cardSpec, building *models.Player) *models.Card {
	t.Helper()
	pile := l.Deck.drawPile
	for i := len(pile) - 1; i >= 0; i-- {
		if pile[i].Color == s.color && pile[i].Value == s.value {
			c := pile[i]
			l.Deck.drawPile = append(pile[:i], pile[i+1:]...)
			return c
		}
	}
	for _, p := range l.Players {
		if p == building {
			continue
		}
		for i, c := range p.Hand {
			if c.Color == s.color && c.Value == s.value {
				last := len(l.Deck.drawPile) - 1
				p.Hand[i] = l.Deck.drawPile[last]
				l.Deck.drawPile = l.Deck.drawPile[:last]
				return c
			}
		}
	}
	t.Fatalf("no %s %s available", s.color, s.value)
	return nil
}

// setHand replaces the seat's hand with the given cards, keeping the deck whole.
// The returned slice is a copy, so it still lists the dealt cards after plays.
func setHand(t *testing.T, l *Lobby, p *models.Player, specs ...cardSpec) []*models.Card {
	t.Helper()
	l.Deck.drawPile = append(l.Deck.drawPile, p.Hand...)
	p.Hand = nil
	for _, s := range specs {
		p.Hand = append(p.Hand, takeFromDraw(t, l, s, p))
	}
	return append([]*models.Card(nil), p.Hand...)
}

// setTop makes the given card the sole discard and the active color.
func setTop(t *testing.T, l *Lobby, s cardSpec) *models.Card {
	t.Helper()
	l.Deck.drawPile = append(l.Deck.drawPile, l.Deck.discard...)
	l.Deck.discard = nil
	c := takeFromDraw(t, l, s, nil)
	l.Deck.discard = []*models.Card{c}
	l.CurrentColor = c.Color
	return c
}

// buryDiscard moves n draw-pile cards underneath the discard top.
func buryDiscard(l *Lobby, n int) {
	top := l.Deck.discard[len(l.Deck.discard)-1]
	under := l.Deck.drawPile[:n]
	rest := append([]*models.Card(nil), l.Deck.drawPile[n:]...)
	l.Deck.discard = append(append([]*models.Card(nil), under...), top)
	l.Deck.drawPile = rest
}

func requireWhole(t *testing.T, l *Lobby) {
	t.Helper()
	require.NoError(t, l.checkInvariant())
}
