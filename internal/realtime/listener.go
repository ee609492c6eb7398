// Package realtime streams change notifications out of Postgres. The
// migration installs triggers that pg_notify on every todo and rule
// mutation; this listener turns those into typed events so caches can be
// invalidated on all running instances, not just the one that wrote.
package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"smartdo/internal/database"
	"smartdo/internal/models"
)

const (
	TodoChannel      = "todo_changes"
	RecurringChannel = "recurring_changes"
)

// Event is one decoded notification. Date and StartDate are nil when the
// payload omitted or failed to parse them; consumers should fall back to
// coarse invalidation in that case.
type Event struct {
	Channel     string
	Op          string
	Date        *time.Time
	StartDate   *time.Time
	RepeatCount int
	RepeatUnit  models.RepeatUnit
}

type payload struct {
	Op          string `json:"op"`
	Date        string `json:"date"`
	StartDate   string `json:"start_date"`
	RepeatCount int    `json:"repeat_count"`
	RepeatUnit  string `json:"repeat_unit"`
}

type Listener struct {
	db      *database.DB
	events  chan Event
	backoff time.Duration
}

func New(db *database.DB) *Listener {
	return &Listener{
		db:      db,
		events:  make(chan Event, 16),
		backoff: 5 * time.Second,
	}
}

// Events is the stream of decoded notifications. Closed when Start returns.
func (l *Listener) Events() <-chan Event {
	return l.events
}

// Start holds a dedicated connection on LISTEN and forwards notifications
// until ctx is cancelled. Connection loss is retried with a fixed backoff;
// notifications sent while disconnected are lost, which is acceptable
// because consumers treat events as invalidation hints, not as a journal.
func (l *Listener) Start(ctx context.Context) {
	defer close(l.events)

	for {
		if err := l.listen(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("realtime: listener disconnected, retrying in %s: %v", l.backoff, err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.backoff):
		}
	}
}

func (l *Listener) listen(ctx context.Context) error {
	poolConn, err := l.db.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer poolConn.Release()

	conn := poolConn.Conn()
	for _, channel := range []string{TodoChannel, RecurringChannel} {
		if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
			return err
		}
	}
	log.Printf("realtime: listening on %s, %s", TodoChannel, RecurringChannel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}

		ev, err := decode(notification.Channel, notification.Payload)
		if err != nil {
			log.Printf("realtime: bad payload on %s: %v", notification.Channel, err)
			continue
		}

		select {
		case l.events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func decode(channel, raw string) (Event, error) {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return Event{}, err
	}

	ev := Event{
		Channel:     channel,
		Op:          p.Op,
		RepeatCount: p.RepeatCount,
		RepeatUnit:  models.RepeatUnit(p.RepeatUnit),
	}
	if t, err := time.Parse(models.DateFormat, p.Date); err == nil && p.Date != "" {
		ev.Date = &t
	}
	if t, err := time.Parse(models.DateFormat, p.StartDate); err == nil && p.StartDate != "" {
		ev.StartDate = &t
	}
	return ev, nil
}
