package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guildhall/guildhall/internal/metrics"
)

const (
	// StreamKey is the Redis stream holding queued emails.
	StreamKey = "stream:email_outbox"

	// DeadLetterStreamKey receives jobs that could not be delivered.
	DeadLetterStreamKey = "stream:email_outbox:dlq"

	// MaxStreamLen is the approximate max length of the outbox stream.
	MaxStreamLen = 10000

	// EnqueueTimeout bounds EnqueueAsync.
	EnqueueTimeout = 2 * time.Second
)

// Job is the payload stored on the outbox stream.
type Job struct {
	Kind     Kind         `json:"kind"`
	ToName   string       `json:"to_name,omitempty"`
	ToEmail  string       `json:"to_email"`
	Data     TemplateData `json:"data"`
	QueuedAt int64        `json:"queued_at"` // Unix milliseconds
}

// Validate checks a job before it is queued or sent.
func (j Job) Validate() error {
	if _, ok := templates[j.Kind]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTemplate, j.Kind)
	}
	if j.ToEmail == "" {
		return errors.New("to_email is required")
	}
	return nil
}

// Outbox queues email jobs on a Redis stream.
type Outbox struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewOutbox creates an outbox bound to client.
func NewOutbox(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Outbox {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Outbox{
		redis:   client,
		logger:  logger.With("component", "mail.outbox"),
		metrics: recorder,
	}
}

// Enqueue adds a job to the stream synchronously and returns its stream id.
func (o *Outbox) Enqueue(ctx context.Context, job Job) (string, error) {
	if err := job.Validate(); err != nil {
		return "", err
	}
	if job.QueuedAt == 0 {
		job.QueuedAt = time.Now().UnixMilli()
	}

	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}

	id, err := o.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"payload": string(data),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	return id, nil
}

// EnqueueAsync queues the job without blocking the caller.
// Failures are logged and counted, never returned.
func (o *Outbox) EnqueueAsync(job Job) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), EnqueueTimeout)
		defer cancel()

		streamID, err := o.Enqueue(ctx, job)
		if err != nil {
			o.logger.Warn("failed to queue email",
				"kind", job.Kind,
				"error", err,
			)
			o.metrics.IncEmail(metrics.EmailQueueFailed)
			return
		}

		o.logger.Debug("email queued",
			"kind", job.Kind,
			"stream_id", streamID,
		)
		o.metrics.IncEmail(metrics.EmailQueued)
	}()
}
