package jobs

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedQueueRunsSubmittedTasks(t *testing.T) {
	q := NewKeyedQueue(KeyedQueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	var count int32
	done := make(chan struct{})
	q.Submit(Task{Key: "a", Run: func(context.Context) error {
		atomic.AddInt32(&count, 1)
		close(done)
		return nil
	}})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&count))
}

func TestKeyedQueueCoalescesQueuedKeys(t *testing.T) {
	q := NewKeyedQueue(KeyedQueueConfig{Workers: 1})

	release := make(chan struct{})
	started := make(chan struct{})
	var ran []string
	var mu sync.Mutex
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			ran = append(ran, name)
			mu.Unlock()
			return nil
		}
	}

	q.Start(context.Background())
	defer q.Stop()

	q.Submit(Task{Key: "block", Run: func(context.Context) error {
		close(started)
		<-release
		return nil
	}})
	<-started

	// Both target the same key while the worker is busy: the second
	// submission must supersede the first.
	q.Submit(Task{Key: "section:9a", Run: record("stale")})
	q.Submit(Task{Key: "section:9a", Run: record("fresh")})
	require.Equal(t, 1, q.Len())

	close(release)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ran) == 1 && ran[0] == "fresh"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestKeyedQueueNeverRunsSameKeyConcurrently(t *testing.T) {
	q := NewKeyedQueue(KeyedQueueConfig{Workers: 4})
	q.Start(context.Background())
	defer q.Stop()

	var inFlight int32
	var maxInFlight int32
	var runs int32
	var wg sync.WaitGroup
	wg.Add(1)

	total := 20
	var seen int32
	for i := 0; i < total; i++ {
		q.Submit(Task{Key: "owner", Run: func(context.Context) error {
			current := atomic.AddInt32(&inFlight, 1)
			for {
				prev := atomic.LoadInt32(&maxInFlight)
				if current <= prev || atomic.CompareAndSwapInt32(&maxInFlight, prev, current) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			atomic.AddInt32(&runs, 1)
			if atomic.AddInt32(&seen, 1) == 1 {
				wg.Done()
			}
			return nil
		}})
	}

	wg.Wait()
	assert.Eventually(t, func() bool { return q.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(&maxInFlight))
	// Coalescing means not every submission runs, but at least one must.
	assert.GreaterOrEqual(t, atomic.LoadInt32(&runs), int32(1))
}

func TestKeyedQueueIgnoresInvalidTasks(t *testing.T) {
	q := NewKeyedQueue(KeyedQueueConfig{})
	q.Start(context.Background())
	defer q.Stop()

	q.Submit(Task{})
	q.Submit(Task{Key: "k"})
	assert.Equal(t, 0, q.Len())
}
