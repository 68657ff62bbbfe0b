package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/guildhall/guildhall/internal/metrics"
)

const (
	// ConsumerGroup is the Redis consumer group name.
	ConsumerGroup = "email_workers"

	// DefaultBatchSize is the max jobs read per iteration.
	DefaultBatchSize = 10

	// DefaultBlockTimeout is how long to block waiting for jobs.
	DefaultBlockTimeout = 5 * time.Second

	// DefaultSendTimeout bounds a single provider call.
	DefaultSendTimeout = 10 * time.Second

	// DefaultClaimInterval is how often to scan pending jobs.
	DefaultClaimInterval = 30 * time.Second

	// DefaultClaimIdle is the idle time before reclaiming a pending job.
	DefaultClaimIdle = 2 * time.Minute

	// DefaultMetricsInterval is how often to refresh queue depth.
	DefaultMetricsInterval = 5 * time.Second
)

// Worker delivers queued email jobs.
type Worker struct {
	redis           *redis.Client
	mailer          Mailer
	logger          *slog.Logger
	metrics         metrics.Recorder
	consumerID      string
	batchSize       int
	blockTimeout    time.Duration
	sendTimeout     time.Duration
	maxAttempts     int
	claimInterval   time.Duration
	claimIdle       time.Duration
	metricsInterval time.Duration
	claimStartID    string
	lastClaim       time.Time
	lastMetrics     time.Time
	sleep           func(ctx context.Context, d time.Duration) error

	started  bool
	draining bool
	cancel   context.CancelFunc
	done     chan struct{}
	mu       sync.Mutex
}

// NewWorker creates an email worker.
func NewWorker(client *redis.Client, mailer Mailer, logger *slog.Logger, consumerID string, recorder metrics.Recorder) *Worker {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Worker{
		redis:           client,
		mailer:          mailer,
		logger:          logger.With("component", "mail.worker", "consumer_id", consumerID),
		metrics:         recorder,
		consumerID:      consumerID,
		batchSize:       DefaultBatchSize,
		blockTimeout:    DefaultBlockTimeout,
		sendTimeout:     DefaultSendTimeout,
		maxAttempts:     DefaultMaxAttempts,
		claimInterval:   DefaultClaimInterval,
		claimIdle:       DefaultClaimIdle,
		metricsInterval: DefaultMetricsInterval,
		claimStartID:    "0-0",
		sleep:           sleepContext,
	}
}

// SetBlockTimeout overrides the default blocking timeout.
func (w *Worker) SetBlockTimeout(timeout time.Duration) {
	if timeout > 0 {
		w.blockTimeout = timeout
	}
}

// SetMaxAttempts overrides the number of send attempts per job.
func (w *Worker) SetMaxAttempts(n int) {
	if n > 0 {
		w.maxAttempts = n
	}
}

// SetClaimIdle overrides the pending idle threshold.
func (w *Worker) SetClaimIdle(idle time.Duration) {
	if idle > 0 {
		w.claimIdle = idle
	}
}

// Run starts the worker loop. Blocks until ctx is cancelled or Shutdown is called.
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("worker already started")
	}
	w.started = true
	w.done = make(chan struct{})
	ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	defer close(w.done)

	if err := w.ensureConsumerGroup(ctx); err != nil {
		return fmt.Errorf("ensure consumer group: %w", err)
	}

	w.logger.Info("email worker started")

	for {
		w.mu.Lock()
		draining := w.draining
		w.mu.Unlock()

		if draining {
			w.logger.Info("email worker draining, stopping")
			return nil
		}

		select {
		case <-ctx.Done():
			w.logger.Info("email worker stopping")
			return ctx.Err()
		default:
			if err := w.processOnce(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				w.logger.Error("process error", "error", err)
				_ = w.sleep(ctx, time.Second)
			}
		}
	}
}

// Shutdown stops the worker. Jobs not yet acknowledged stay pending
// and are reclaimed by the next worker.
func (w *Worker) Shutdown(ctx context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return nil
	}
	w.draining = true
	cancel := w.cancel
	done := w.done
	w.mu.Unlock()

	w.logger.Info("email worker shutdown initiated")

	if cancel != nil {
		cancel()
	}

	select {
	case <-done:
		w.logger.Info("email worker shutdown complete")
		return nil
	case <-ctx.Done():
		w.logger.Warn("email worker shutdown timed out")
		return ctx.Err()
	}
}

func (w *Worker) ensureConsumerGroup(ctx context.Context) error {
	err := w.redis.XGroupCreateMkStream(ctx, StreamKey, ConsumerGroup, "0").Err()
	if err != nil && !isConsumerGroupExistsError(err) {
		return err
	}
	return nil
}

func (w *Worker) processOnce(ctx context.Context) error {
	w.maybeUpdateQueueDepth(ctx)

	messages, err := w.maybeClaimPending(ctx)
	if err != nil {
		w.logger.Warn("failed to claim pending jobs", "error", err)
	}
	if len(messages) == 0 {
		messages, err = w.readBatch(ctx)
		if err != nil {
			return err
		}
	}

	for _, msg := range messages {
		if err := w.handle(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// handle delivers one job and acknowledges it once it was sent or dead-lettered.
// A cancelled context leaves the job pending.
func (w *Worker) handle(ctx context.Context, msg redis.XMessage) error {
	job, err := parseJob(msg)
	if err != nil {
		w.deadLetter(ctx, msg, "invalid_payload", err.Error())
		return w.ack(ctx, msg.ID)
	}

	var lastErr error
	for attempt := 0; attempt < w.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := NextRetryDelay(attempt - 1)
			w.logger.Warn("email send failed, retrying",
				"kind", job.Kind,
				"attempt", attempt,
				"backoff_seconds", delay.Seconds(),
				"error", lastErr,
			)
			if err := w.sleep(ctx, delay); err != nil {
				return err
			}
		}

		lastErr = w.send(ctx, job)
		if lastErr == nil {
			w.metrics.IncEmail(metrics.EmailSent)
			w.logger.Info("email sent", "kind", job.Kind, "message_id", msg.ID)
			return w.ack(ctx, msg.ID)
		}
		if errors.Is(lastErr, ErrUnknownTemplate) || ctx.Err() != nil {
			break
		}
		w.metrics.IncEmail(metrics.EmailFailed)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	w.deadLetter(ctx, msg, "send_failed", lastErr.Error())
	return w.ack(ctx, msg.ID)
}

func (w *Worker) send(ctx context.Context, job Job) error {
	msg, err := Render(job.Kind, job.ToName, job.ToEmail, job.Data)
	if err != nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(ctx, w.sendTimeout)
	defer cancel()

	start := time.Now()
	err = w.mailer.Send(sendCtx, msg)
	w.metrics.ObserveEmailSendDuration(time.Since(start))
	return err
}

func parseJob(msg redis.XMessage) (Job, error) {
	payload, ok := msg.Values["payload"].(string)
	if !ok {
		return Job{}, errors.New("payload field missing or not a string")
	}
	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return Job{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := job.Validate(); err != nil {
		return Job{}, err
	}
	return job, nil
}

func (w *Worker) maybeClaimPending(ctx context.Context) ([]redis.XMessage, error) {
	if w.claimInterval <= 0 || w.claimIdle <= 0 {
		return nil, nil
	}
	if !w.lastClaim.IsZero() && time.Since(w.lastClaim) < w.claimInterval {
		return nil, nil
	}

	w.lastClaim = time.Now()
	messages, start, err := w.redis.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   StreamKey,
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		MinIdle:  w.claimIdle,
		Start:    w.claimStartID,
		Count:    int64(w.batchSize),
	}).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if start != "" {
		w.claimStartID = start
	}
	return messages, nil
}

func (w *Worker) maybeUpdateQueueDepth(ctx context.Context) {
	if w.metricsInterval <= 0 {
		return
	}
	if !w.lastMetrics.IsZero() && time.Since(w.lastMetrics) < w.metricsInterval {
		return
	}
	w.lastMetrics = time.Now()

	groups, err := w.redis.XInfoGroups(ctx, StreamKey).Result()
	if err != nil && err != redis.Nil {
		w.logger.Warn("failed to read stream group info", "error", err)
		return
	}
	for _, group := range groups {
		if group.Name == ConsumerGroup {
			w.metrics.SetEmailQueueDepth(group.Pending + group.Lag)
			return
		}
	}
}

func (w *Worker) readBatch(ctx context.Context) ([]redis.XMessage, error) {
	streams, err := w.redis.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    ConsumerGroup,
		Consumer: w.consumerID,
		Streams:  []string{StreamKey, ">"},
		Count:    int64(w.batchSize),
		Block:    w.blockTimeout,
	}).Result()

	if err == redis.Nil || len(streams) == 0 {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}
	return streams[0].Messages, nil
}

func (w *Worker) deadLetter(ctx context.Context, msg redis.XMessage, reason, detail string) {
	w.logger.Warn("dead-lettering email job",
		"message_id", msg.ID,
		"reason", reason,
		"detail", detail,
	)

	_, err := w.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: DeadLetterStreamKey,
		MaxLen: 10000,
		Approx: true,
		ID:     "*",
		Values: map[string]interface{}{
			"original_id":      msg.ID,
			"reason":           reason,
			"detail":           detail,
			"payload":          msg.Values["payload"],
			"dead_lettered_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Result()
	if err != nil {
		w.logger.Error("failed to write to dead-letter stream",
			"message_id", msg.ID,
			"error", err,
		)
	}

	w.metrics.IncEmail(metrics.EmailDeadLettered)
}

func (w *Worker) ack(ctx context.Context, id string) error {
	if err := w.redis.XAck(ctx, StreamKey, ConsumerGroup, id).Err(); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

func isConsumerGroupExistsError(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
