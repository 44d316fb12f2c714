// internal/historian/historian.go
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/CarterLud/unotwist/internal/cache"
	"github.com/CarterLud/unotwist/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Source yields queued action records. Pop returns nil, nil when nothing
// arrived before its own timeout.
type Source interface {
	Pop(ctx context.Context) (*cache.GameActionRecord, error)
}

// Sink persists what the historian collects.
type Sink interface {
	InsertBatch(ctx context.Context, records []cache.GameActionRecord) error
	MarkAbandoned(ctx context.Context, lobbyID uuid.UUID) error
}

// RedisSource pops records from a Redis list with BLPop.
type RedisSource struct {
	Client  *redis.Client
	Queue   string
	Timeout time.Duration
}

// Pop blocks up to Timeout for the next record.
func (s *RedisSource) Pop(ctx context.Context) (*cache.GameActionRecord, error) {
	res, err := s.Client.BLPop(ctx, s.Timeout, s.Queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return nil, nil
	}
	return decodeRecord(res[1])
}

func decodeRecord(payload string) (*cache.GameActionRecord, error) {
	var rec cache.GameActionRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("invalid action record: %w", err)
	}
	if rec.LobbyID == uuid.Nil {
		return nil, errors.New("invalid action record: missing lobby_id")
	}
	return &rec, nil
}

// DBSink writes to the global database pool.
type DBSink struct{}

// InsertBatch stores every record in one transaction.
func (DBSink) InsertBatch(ctx context.Context, records []cache.GameActionRecord) error {
	return database.BeginTxFunc(ctx, func(tx pgx.Tx) error {
		for _, rec := range records {
			if err := database.InsertActionTx(ctx, tx, rec); err != nil {
				return fmt.Errorf("insert action %d of lobby %s: %w", rec.ActionIndex, rec.LobbyID, err)
			}
		}
		return nil
	})
}

// MarkAbandoned flags the lobby row as abandoned.
func (DBSink) MarkAbandoned(ctx context.Context, lobbyID uuid.UUID) error {
	return database.MarkLobbyAbandoned(ctx, lobbyID)
}

// Config tunes a Service.
type Config struct {
	BatchSize  int
	FlushDelay time.Duration
	Inactivity time.Duration // idle time before a lobby counts as abandoned
	SweepEvery time.Duration
}

// Service drains the action queue into the database in batches and marks
// lobbies abandoned once they stop producing actions.
type Service struct {
	source Source
	sink   Sink
	cfg    Config

	lastActivity sync.Map // map[uuid.UUID]time.Time

	batchMu sync.Mutex
	batch   []cache.GameActionRecord
}

// NewService wires a Service. Zero config fields take defaults.
func NewService(source Source, sink Sink, cfg Config) *Service {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 20
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = 500 * time.Millisecond
	}
	if cfg.Inactivity <= 0 {
		cfg.Inactivity = 10 * time.Minute
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = time.Minute
	}
	return &Service{
		source: source,
		sink:   sink,
		cfg:    cfg,
		batch:  make([]cache.GameActionRecord, 0, cfg.BatchSize),
	}
}

// Run reads and flushes until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.readLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		s.inactivityLoop(ctx)
	}()

	log.Info("historian started")
	wg.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.flush(flushCtx)
	log.Info("historian stopped")
}

func (s *Service) readLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FlushDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.flush(ctx)
		default:
			rec, err := s.source.Pop(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Errorf("pop action: %v", err)
				continue
			}
			if rec == nil {
				continue
			}
			s.track(*rec, time.Now())
			if s.append(*rec) {
				s.flush(ctx)
			}
		}
	}
}

// track records lobby activity. A closed lobby is no longer watched.
func (s *Service) track(rec cache.GameActionRecord, at time.Time) {
	if rec.ActionType == "lobby_closed" {
		s.lastActivity.Delete(rec.LobbyID)
		return
	}
	s.lastActivity.Store(rec.LobbyID, at)
}

// append adds rec to the batch and reports whether the batch is full.
func (s *Service) append(rec cache.GameActionRecord) bool {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	s.batch = append(s.batch, rec)
	return len(s.batch) >= s.cfg.BatchSize
}

// flush writes the pending batch in one transaction. A failed batch is
// logged and dropped.
func (s *Service) flush(ctx context.Context) {
	s.batchMu.Lock()
	if len(s.batch) == 0 {
		s.batchMu.Unlock()
		return
	}
	pending := make([]cache.GameActionRecord, len(s.batch))
	copy(pending, s.batch)
	s.batch = s.batch[:0]
	s.batchMu.Unlock()

	if err := s.sink.InsertBatch(ctx, pending); err != nil {
		log.Errorf("flush %d actions: %v", len(pending), err)
		return
	}
	log.Debugf("flushed %d actions", len(pending))
}

func (s *Service) inactivityLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.SweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.sweep(ctx, now)
		}
	}
}

// sweep marks every lobby idle past the inactivity threshold as abandoned
// and stops watching it.
func (s *Service) sweep(ctx context.Context, now time.Time) int {
	n := 0
	s.lastActivity.Range(func(key, val interface{}) bool {
		lobbyID, ok1 := key.(uuid.UUID)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= s.cfg.Inactivity {
			return true
		}
		if err := s.sink.MarkAbandoned(ctx, lobbyID); err != nil {
			log.Errorf("mark lobby %s abandoned: %v", lobbyID, err)
			return true
		}
		log.WithField("lobby", lobbyID).Info("lobby marked abandoned after inactivity")
		s.lastActivity.Delete(lobbyID)
		n++
		return true
	})
	return n
}
