package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/guildhall/guildhall/internal/metrics"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

const (
	eventBuffer     = 16
	unlistenTimeout = 5 * time.Second
)

// PGListener implements Subscriber on Postgres LISTEN/NOTIFY. Each
// subscription holds one pooled connection for its lifetime.
type PGListener struct {
	pool    *pgxpool.Pool
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewPGListener creates a listener backed by pool.
func NewPGListener(pool *pgxpool.Pool, logger *slog.Logger, recorder metrics.Recorder) *PGListener {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &PGListener{
		pool:    pool,
		logger:  logger.With("component", "realtime"),
		metrics: recorder,
	}
}

// Subscribe acquires a connection and issues LISTEN on the topic channel.
// The subscription ends when ctx is done or Close is called.
func (l *PGListener) Subscribe(ctx context.Context, topic Topic) (*Subscription, error) {
	if err := topic.Validate(); err != nil {
		return nil, err
	}

	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen connection: %w", err)
	}

	channel := pq.QuoteIdentifier(topic.Channel())
	if _, err := conn.Exec(ctx, "LISTEN "+channel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", topic.Table, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	events := make(chan Event, eventBuffer)
	done := make(chan struct{})

	l.metrics.IncSubscriptionOpened()
	go l.run(subCtx, conn, channel, topic, events, done)

	return &Subscription{C: events, topic: topic, cancel: cancel, done: done}, nil
}

func (l *PGListener) run(ctx context.Context, conn *pgxpool.Conn, channel string, topic Topic, events chan<- Event, done chan<- struct{}) {
	defer close(done)
	defer close(events)
	defer l.release(conn, channel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() == nil {
				l.logger.Warn("listen connection lost", "table", topic.Table, "error", err)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal([]byte(n.Payload), &ev); err != nil {
			l.logger.Warn("dropping undecodable notification", "table", topic.Table, "error", err)
			continue
		}
		if !topic.Matches(ev) {
			continue
		}

		select {
		case events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (l *PGListener) release(conn *pgxpool.Conn, channel string) {
	defer l.metrics.IncSubscriptionClosed()

	ctx, cancel := context.WithTimeout(context.Background(), unlistenTimeout)
	defer cancel()

	if _, err := conn.Exec(ctx, "UNLISTEN "+channel); err != nil {
		// Do not hand a connection with a live LISTEN back to the pool.
		_ = conn.Conn().Close(ctx)
	}
	conn.Release()
}
