// Package realtime delivers row-change events from the database to
// in-process subscribers. Scoping happens on the server: a subscriber only
// receives events published on its topic's channel.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

// Change kinds carried by Event.Kind.
const (
	KindInsert = "INSERT"
	KindUpdate = "UPDATE"
	KindDelete = "DELETE"
)

// ErrInvalidTopic is returned when a topic is missing its table or filter.
var ErrInvalidTopic = errors.New("invalid realtime topic")

// Topic selects the changes of one table filtered by an equality on a column.
type Topic struct {
	Table  string
	Event  string // empty matches every kind
	Column string
	Value  string
}

// Validate checks that the topic names a table and a filter.
func (t Topic) Validate() error {
	if t.Table == "" || t.Column == "" || t.Value == "" {
		return ErrInvalidTopic
	}
	return nil
}

// Channel returns the notification channel name, e.g.
// "messages:recipient_id=0b6e...". Triggers publish on the same name.
func (t Topic) Channel() string {
	return t.Table + ":" + t.Column + "=" + t.Value
}

// Matches reports whether ev belongs to this topic's table and kind.
func (t Topic) Matches(ev Event) bool {
	if ev.Table != t.Table {
		return false
	}
	return t.Event == "" || t.Event == ev.Kind
}

// Event is a single row change. Record holds the row as JSON and is decoded
// by the consumer.
type Event struct {
	Table  string          `json:"table"`
	Kind   string          `json:"type"`
	Record json.RawMessage `json:"record"`
}

// Subscriber opens scoped subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, topic Topic) (*Subscription, error)
}

// Subscription is an open server-side listen slot. C is closed once the
// subscription ends, either by Close or by its context finishing.
type Subscription struct {
	C <-chan Event

	topic  Topic
	cancel context.CancelFunc
	done   <-chan struct{}
	once   sync.Once
}

// Topic returns the topic this subscription listens on.
func (s *Subscription) Topic() Topic {
	return s.topic
}

// Close releases the subscription and waits for its delivery goroutine to
// exit. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}
