package mail

import (
	"strings"
	"testing"
	"time"
)

func TestNextRetryDelay_WithinJitter(t *testing.T) {
	t.Parallel()

	for attempt, base := range retryDelays {
		low := time.Duration(float64(base) * (1 - JitterFactor))
		high := time.Duration(float64(base) * (1 + JitterFactor))
		for i := 0; i < 50; i++ {
			got := NextRetryDelay(attempt)
			if got < low || got > high {
				t.Fatalf("NextRetryDelay(%d) = %v, want within [%v, %v]", attempt, got, low, high)
			}
		}
	}
}

func TestNextRetryDelay_Clamps(t *testing.T) {
	t.Parallel()

	last := retryDelays[len(retryDelays)-1]
	if got := NextRetryDelay(100); got > time.Duration(float64(last)*(1+JitterFactor)) {
		t.Errorf("NextRetryDelay(100) = %v, want clamped to last delay", got)
	}
	first := retryDelays[0]
	if got := NextRetryDelay(-1); got > time.Duration(float64(first)*(1+JitterFactor)) {
		t.Errorf("NextRetryDelay(-1) = %v, want clamped to first delay", got)
	}
}

func TestDefaultMaxAttempts_OneMoreThanDelays(t *testing.T) {
	t.Parallel()

	if DefaultMaxAttempts != len(retryDelays)+1 {
		t.Errorf("DefaultMaxAttempts = %d, want %d", DefaultMaxAttempts, len(retryDelays)+1)
	}
	if DefaultMaxAttempts != 4 {
		t.Errorf("DefaultMaxAttempts = %d, want 4", DefaultMaxAttempts)
	}
}

func TestNewConsumerID_Unique(t *testing.T) {
	t.Parallel()

	a, b := NewConsumerID(), NewConsumerID()
	if a == b {
		t.Errorf("consumer ids should differ, both %q", a)
	}
	if strings.Count(a, "-") < 2 {
		t.Errorf("consumer id %q should be host-pid-nanos", a)
	}
}
