package realtime

import (
	"context"
	"sync"
)

type hubSub struct {
	topic  Topic
	events chan Event
}

// Hub is an in-process Subscriber. Publish fans an event out to every
// subscriber of the matching channel; slow subscribers drop events.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[int]hubSub
	next int
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[int]hubSub)}
}

// Subscribe registers a subscriber on the topic channel.
func (h *Hub) Subscribe(ctx context.Context, topic Topic) (*Subscription, error) {
	if err := topic.Validate(); err != nil {
		return nil, err
	}

	channel := topic.Channel()
	events := make(chan Event, eventBuffer)

	h.mu.Lock()
	id := h.next
	h.next++
	if h.subs[channel] == nil {
		h.subs[channel] = make(map[int]hubSub)
	}
	h.subs[channel][id] = hubSub{topic: topic, events: events}
	h.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		<-subCtx.Done()
		h.mu.Lock()
		delete(h.subs[channel], id)
		if len(h.subs[channel]) == 0 {
			delete(h.subs, channel)
		}
		close(events)
		h.mu.Unlock()
		close(done)
	}()

	return &Subscription{C: events, topic: topic, cancel: cancel, done: done}, nil
}

// Publish delivers ev on channel to every subscriber whose topic matches.
func (h *Hub) Publish(channel string, ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs[channel] {
		if !sub.topic.Matches(ev) {
			continue
		}
		select {
		case sub.events <- ev:
		default:
		}
	}
}

// Subscribers returns the number of open subscriptions on channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[channel])
}
