package game

import (
	"context"
	"time"

	"github.com/CarterLud/unotwist/internal/cache"
	"github.com/CarterLud/unotwist/internal/database"
	"github.com/CarterLud/unotwist/internal/models"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const historyBuffer = 256

// actionPublisher pushes one lobby's action records to the historian queue
// from a single goroutine, so records reach Redis in the order they were
// logged.
type actionPublisher struct {
	records chan cache.GameActionRecord
	publish func(ctx context.Context, rec cache.GameActionRecord) error
	done    chan struct{}
	closed  bool
}

func newActionPublisher(publish func(ctx context.Context, rec cache.GameActionRecord) error) *actionPublisher {
	ap := &actionPublisher{
		records: make(chan cache.GameActionRecord, historyBuffer),
		publish: publish,
		done:    make(chan struct{}),
	}
	go ap.run()
	return ap
}

func (ap *actionPublisher) run() {
	defer close(ap.done)
	for rec := range ap.records {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := ap.publish(ctx, rec); err != nil {
			log.WithFields(log.Fields{"pin": rec.Pin, "action": rec.ActionType}).Warnf("publish action: %v", err)
		}
		cancel()
	}
}

// enqueue never blocks the caller. A full buffer drops the record.
func (ap *actionPublisher) enqueue(rec cache.GameActionRecord) {
	if ap.closed {
		return
	}
	select {
	case ap.records <- rec:
	default:
		log.WithFields(log.Fields{"pin": rec.Pin, "action": rec.ActionType}).Warn("history buffer full, dropping action")
	}
}

// close lets the publisher drain what is queued and exit.
func (ap *actionPublisher) close() {
	if ap.closed {
		return
	}
	ap.closed = true
	close(ap.records)
}

// logAction numbers an action and queues it for the historian. Nothing is
// queued when Redis is not configured.
func (l *Lobby) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	l.actionIndex++
	if l.history == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	l.history.enqueue(cache.GameActionRecord{
		LobbyID:       l.ID,
		Pin:           l.Pin,
		Round:         l.Round,
		ActionIndex:   l.actionIndex,
		ActorID:       actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	})
}

// roundResult captures the table at the moment winner went out.
func (l *Lobby) roundResult(winner *models.Player) models.RoundResult {
	res := models.RoundResult{
		LobbyID:  l.ID,
		Pin:      l.Pin,
		Round:    l.Round,
		Twist:    l.Twist.Key,
		WinnerID: winner.ID,
		EndedAt:  time.Now(),
	}
	for i, p := range l.Players {
		res.Players = append(res.Players, models.RoundPlayer{
			PlayerID:  p.ID,
			Name:      p.Name,
			Seat:      i,
			IsBot:     p.IsBot,
			CardsLeft: len(p.Hand),
		})
	}
	return res
}

// recordRound persists a finished round when Postgres is configured.
func (l *Lobby) recordRound(winner *models.Player) {
	if database.DB == nil {
		return
	}
	res := l.roundResult(winner)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.RecordRoundResult(ctx, res); err != nil {
			log.WithFields(log.Fields{"pin": res.Pin, "round": res.Round}).Errorf("record round: %v", err)
		}
	}()
}
