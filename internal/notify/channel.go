// Package notify turns realtime message inserts addressed to the signed-in
// member into toasts.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/guildhall/guildhall/internal/metrics"
	"github.com/guildhall/guildhall/internal/model"
	"github.com/guildhall/guildhall/internal/realtime"
	"github.com/guildhall/guildhall/internal/repository"
	"github.com/guildhall/guildhall/internal/toast"
)

const defaultLookupTimeout = 5 * time.Second

// ProfileLookup resolves the sender of a message.
// Implementations return repository.ErrProfileNotFound for unknown ids.
type ProfileLookup interface {
	GetSenderProfile(ctx context.Context, id string) (*model.SenderProfile, error)
}

// Sink receives built notifications. *toast.Queue implements it.
type Sink interface {
	Enqueue(n toast.Notification) string
}

// MessagesTopic is the realtime topic of inserts addressed to recipientID.
func MessagesTopic(recipientID string) realtime.Topic {
	return realtime.Topic{
		Table:  "messages",
		Event:  realtime.KindInsert,
		Column: "recipient_id",
		Value:  recipientID,
	}
}

// Channel holds at most one subscription, owned by the current identity.
type Channel struct {
	subscriber    realtime.Subscriber
	profiles      ProfileLookup
	sink          Sink
	logger        *slog.Logger
	metrics       metrics.Recorder
	lookupTimeout time.Duration

	mu      sync.Mutex
	current *subscription
}

type subscription struct {
	identityID string
	sub        *realtime.Subscription
	cancel     context.CancelFunc
	done       chan struct{}

	// mu orders delivery against close: once closed is set no further
	// notification reaches the sink.
	mu     sync.Mutex
	closed bool
}

// Option configures a Channel.
type Option func(*Channel)

// WithLookupTimeout bounds each sender profile lookup.
func WithLookupTimeout(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.lookupTimeout = d
		}
	}
}

// NewChannel creates a closed Channel.
func NewChannel(subscriber realtime.Subscriber, profiles ProfileLookup, sink Sink, logger *slog.Logger, recorder metrics.Recorder, opts ...Option) *Channel {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	c := &Channel{
		subscriber:    subscriber,
		profiles:      profiles,
		sink:          sink,
		logger:        logger.With("component", "notify"),
		metrics:       recorder,
		lookupTimeout: defaultLookupTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open makes the channel follow identity. A nil identity closes any open
// subscription. The same identity keeps the existing one; a different
// identity replaces it. The subscription also ends when ctx is done.
func (c *Channel) Open(ctx context.Context, identity *model.Identity) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if identity == nil || identity.ID == "" {
		c.closeLocked()
		return nil
	}
	if c.current != nil && c.current.identityID == identity.ID && !c.current.ended() {
		return nil
	}
	c.closeLocked()

	subCtx, cancel := context.WithCancel(ctx)
	sub, err := c.subscriber.Subscribe(subCtx, MessagesTopic(identity.ID))
	if err != nil {
		cancel()
		return fmt.Errorf("subscribe to messages: %w", err)
	}

	s := &subscription{
		identityID: identity.ID,
		sub:        sub,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	c.current = s
	go c.consume(subCtx, s)

	c.logger.Debug("notification channel opened", "identity_id", identity.ID)
	return nil
}

// Close releases the current subscription, if any. In-flight events are
// discarded.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

// IdentityID returns the identity the channel currently follows, or "".
func (c *Channel) IdentityID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil || c.current.ended() {
		return ""
	}
	return c.current.identityID
}

// Done returns a channel closed when the current subscription stops
// delivering events, whether closed here or ended by the backend. It is nil
// when no subscription is open.
func (c *Channel) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	return c.current.done
}

func (c *Channel) closeLocked() {
	s := c.current
	if s == nil {
		return
	}
	c.current = nil

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.sub.Close()
	c.logger.Debug("notification channel closed", "identity_id", s.identityID)
}

func (s *subscription) ended() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (c *Channel) consume(ctx context.Context, s *subscription) {
	defer close(s.done)
	for ev := range s.sub.C {
		c.handle(ctx, s, ev)
	}
}

func (c *Channel) handle(ctx context.Context, s *subscription, ev realtime.Event) {
	var msg model.NotificationEvent
	if err := json.Unmarshal(ev.Record, &msg); err != nil {
		c.drop("undecodable message event", err)
		return
	}
	if err := msg.Validate(); err != nil {
		c.drop("invalid message event", err)
		return
	}
	if msg.RecipientID != s.identityID {
		c.drop("message event for another recipient", nil)
		return
	}

	sender, err := c.lookupSender(ctx, msg.SenderID)
	if err != nil {
		if ctx.Err() != nil {
			c.metrics.IncNotification(metrics.NotificationDiscarded)
			return
		}
		c.drop("sender lookup failed", err)
		return
	}

	c.deliver(s, BuildNotification(&msg, sender))
}

func (c *Channel) lookupSender(ctx context.Context, senderID string) (*model.SenderProfile, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, c.lookupTimeout)
	defer cancel()

	sender, err := c.profiles.GetSenderProfile(lookupCtx, senderID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		return &model.SenderProfile{ID: senderID}, nil
	}
	return sender, err
}

func (c *Channel) deliver(s *subscription, n toast.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		c.metrics.IncNotification(metrics.NotificationDiscarded)
		return
	}
	c.sink.Enqueue(n)
	c.metrics.IncNotification(metrics.NotificationDelivered)
}

func (c *Channel) drop(reason string, err error) {
	c.metrics.IncNotification(metrics.NotificationDropped)
	if err != nil {
		c.logger.Warn("dropping notification", "reason", reason, "error", err)
		return
	}
	c.logger.Warn("dropping notification", "reason", reason)
}
