// internal/game/lobby_store.go
package game

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"
)

const (
	pinMin      = 100000
	pinMax      = 999999
	pinAttempts = 1000
)

// ErrNoFreePin means pin generation kept colliding with live lobbies.
var ErrNoFreePin = errors.New("no free lobby pin")

// LobbyStore maps pins to live lobbies. Like the lobbies themselves it is
// owned by one goroutine and does not lock.
type LobbyStore struct {
	lobbies map[string]*Lobby
	rules   HouseRules
	sched   Scheduler
	rng     *rand.Rand
}

// NewLobbyStore returns an empty store that creates lobbies with rules and sched.
func NewLobbyStore(rules HouseRules, sched Scheduler, rng *rand.Rand) *LobbyStore {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &LobbyStore{
		lobbies: make(map[string]*Lobby),
		rules:   rules,
		sched:   sched,
		rng:     rng,
	}
}

// Create opens a lobby under a fresh pin with hostName seated. The lobby
// removes itself from the store when it closes; onClose runs after that.
func (s *LobbyStore) Create(hostName string, onClose func(l *Lobby, reason string)) (*Lobby, error) {
	pin, err := s.newPin()
	if err != nil {
		return nil, err
	}
	lobbyRng := rand.New(rand.NewSource(s.rng.Int63()))
	l, _ := NewLobby(pin, hostName, s.rules, s.sched, lobbyRng)
	l.OnClose = func(closed *Lobby, reason string) {
		s.Remove(closed.Pin)
		if onClose != nil {
			onClose(closed, reason)
		}
	}
	s.lobbies[pin] = l
	return l, nil
}

func (s *LobbyStore) newPin() (string, error) {
	for i := 0; i < pinAttempts; i++ {
		pin := fmt.Sprintf("%06d", pinMin+s.rng.Intn(pinMax-pinMin+1))
		if _, taken := s.lobbies[pin]; !taken {
			return pin, nil
		}
	}
	return "", ErrNoFreePin
}

// Get looks up a live lobby by pin.
func (s *LobbyStore) Get(pin string) (*Lobby, bool) {
	l, ok := s.lobbies[pin]
	return l, ok
}

// Remove forgets the lobby under pin, freeing the pin for reuse.
func (s *LobbyStore) Remove(pin string) {
	delete(s.lobbies, pin)
}

func (s *LobbyStore) Len() int { return len(s.lobbies) }

// List returns live lobbies ordered by creation time.
func (s *LobbyStore) List() []*Lobby {
	out := make([]*Lobby, 0, len(s.lobbies))
	for _, l := range s.lobbies {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// ReapIdle closes every lobby idle longer than maxIdle and returns how many closed.
func (s *LobbyStore) ReapIdle(now time.Time, maxIdle time.Duration) int {
	n := 0
	for _, l := range s.List() {
		if l.IdleFor(now) > maxIdle {
			l.Close("Lobby closed after inactivity")
			n++
		}
	}
	return n
}
