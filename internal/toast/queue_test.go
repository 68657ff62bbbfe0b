package toast

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_EnqueuePreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	q := New(WithTTL(time.Minute))
	defer q.Close()

	first := q.Enqueue(Notification{Title: "one"})
	second := q.Enqueue(Notification{Title: "two"})
	third := q.Enqueue(Notification{Title: "three", Link: "/dashboard/messages"})

	list := q.List()
	require.Len(t, list, 3)
	assert.Equal(t, []string{first, second, third}, []string{list[0].ID, list[1].ID, list[2].ID})
	assert.Equal(t, "three", list[2].Title)
	assert.Equal(t, "/dashboard/messages", list[2].Link)
	assert.False(t, list[0].CreatedAt.IsZero())
}

func TestQueue_IDsAreUnique(t *testing.T) {
	t.Parallel()

	q := New(WithTTL(time.Minute))
	defer q.Close()

	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		id := q.Enqueue(Notification{Title: "x"})
		require.NotEmpty(t, id)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestQueue_DismissIsIdempotent(t *testing.T) {
	t.Parallel()

	q := New(WithTTL(time.Minute))
	defer q.Close()

	keep := q.Enqueue(Notification{Title: "keep"})
	gone := q.Enqueue(Notification{Title: "gone"})

	assert.True(t, q.Dismiss(gone))
	assert.False(t, q.Dismiss(gone))
	assert.False(t, q.Dismiss("never-existed"))

	list := q.List()
	require.Len(t, list, 1)
	assert.Equal(t, keep, list[0].ID)
}

func TestQueue_EntriesExpireAfterTTL(t *testing.T) {
	t.Parallel()

	var expired atomic.Int32
	ttl := 50 * time.Millisecond
	q := New(WithTTL(ttl), WithOnRemove(func(reason string) {
		if reason == ReasonExpired {
			expired.Add(1)
		}
	}))
	defer q.Close()

	start := time.Now()
	q.Enqueue(Notification{Title: "soon gone"})
	require.Equal(t, 1, q.Len())

	assert.Eventually(t, func() bool { return q.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), ttl)
	assert.Equal(t, int32(1), expired.Load())

	// Stays gone.
	time.Sleep(2 * ttl)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_EachEntryHasItsOwnTimer(t *testing.T) {
	t.Parallel()

	q := New(WithTTL(120 * time.Millisecond))
	defer q.Close()

	early := q.Enqueue(Notification{Title: "early"})
	time.Sleep(60 * time.Millisecond)
	late := q.Enqueue(Notification{Title: "late"})

	assert.Eventually(t, func() bool {
		list := q.List()
		return len(list) == 1 && list[0].ID == late
	}, 2*time.Second, 5*time.Millisecond, "early entry %s should expire first", early)

	assert.Eventually(t, func() bool { return q.Len() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestQueue_ManualDismissStopsTimer(t *testing.T) {
	t.Parallel()

	var reasons []string
	var mu sync.Mutex
	q := New(WithTTL(30*time.Millisecond), WithOnRemove(func(reason string) {
		mu.Lock()
		reasons = append(reasons, reason)
		mu.Unlock()
	}))
	defer q.Close()

	id := q.Enqueue(Notification{Title: "x"})
	require.True(t, q.Dismiss(id))

	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{ReasonDismissed}, reasons)
}

func TestQueue_DefaultTTL(t *testing.T) {
	t.Parallel()

	q := New()
	defer q.Close()
	assert.Equal(t, 5*time.Second, q.ttl)

	q2 := New(WithTTL(0))
	defer q2.Close()
	assert.Equal(t, DefaultTTL, q2.ttl)
}

func TestQueue_MaxEntriesEvictsOldest(t *testing.T) {
	t.Parallel()

	q := New(WithTTL(time.Minute), WithMaxEntries(2))
	defer q.Close()

	q.Enqueue(Notification{Title: "a"})
	b := q.Enqueue(Notification{Title: "b"})
	c := q.Enqueue(Notification{Title: "c"})

	list := q.List()
	require.Len(t, list, 2)
	assert.Equal(t, b, list[0].ID)
	assert.Equal(t, c, list[1].ID)
}

func TestQueue_ChangesSignalsAndCoalesces(t *testing.T) {
	t.Parallel()

	q := New(WithTTL(time.Minute))
	defer q.Close()

	id := q.Enqueue(Notification{Title: "a"})
	q.Dismiss(id)
	q.Enqueue(Notification{Title: "b"})

	select {
	case <-q.Changes():
	default:
		t.Fatal("expected a change signal")
	}

	select {
	case <-q.Changes():
		t.Fatal("signals should coalesce into one")
	default:
	}
}

func TestQueue_CloseDropsEntriesAndIgnoresLaterEnqueues(t *testing.T) {
	t.Parallel()

	q := New(WithTTL(time.Minute))
	q.Enqueue(Notification{Title: "a"})
	q.Close()
	q.Close()

	assert.Equal(t, 0, q.Len())

	id := q.Enqueue(Notification{Title: "after close"})
	assert.NotEmpty(t, id)
	assert.Equal(t, 0, q.Len())
	assert.False(t, q.Dismiss(id))
}

func TestQueue_ConcurrentEnqueueAndDismiss(t *testing.T) {
	t.Parallel()

	q := New(WithTTL(time.Minute))
	defer q.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := q.Enqueue(Notification{Title: "x"})
				if j%2 == 0 {
					q.Dismiss(id)
				}
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 20*25, q.Len())
}
