package mail

import (
	"fmt"
	"math/rand"
	"os"
	"time"
)

// Delays between send attempts for a single job.
var retryDelays = [...]time.Duration{
	1 * time.Second,
	5 * time.Second,
	15 * time.Second,
}

const (
	// DefaultMaxAttempts is the number of send attempts before dead-lettering.
	DefaultMaxAttempts = len(retryDelays) + 1

	// JitterFactor is the ±percentage of jitter applied to delays.
	JitterFactor = 0.2
)

// NextRetryDelay returns the jittered delay after the given failed attempt.
// attempt is 0-indexed.
func NextRetryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= len(retryDelays) {
		attempt = len(retryDelays) - 1
	}

	base := retryDelays[attempt]
	jitterRange := float64(base) * JitterFactor
	jitter := (rand.Float64()*2 - 1) * jitterRange

	return time.Duration(float64(base) + jitter)
}

// NewConsumerID creates a stable-ish consumer id for the outbox consumer group.
func NewConsumerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "mailer"
	}
	return fmt.Sprintf("%s-%d-%d", host, os.Getpid(), time.Now().UnixNano())
}
