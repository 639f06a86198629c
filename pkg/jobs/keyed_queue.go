package jobs

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Task is a unit of deferred work identified by a key. Submitting a second
// task with the same key while the first is still queued replaces it; tasks
// with the same key never run concurrently.
type Task struct {
	Key string
	Run func(context.Context) error
}

// KeyedQueueConfig configures worker behaviour.
type KeyedQueueConfig struct {
	Workers int
	Logger  *zap.Logger
}

// KeyedQueue dispatches tasks to a worker pool while enforcing at-most-one
// in-flight task per key. Later submissions for a queued key supersede the
// earlier one instead of both running.
type KeyedQueue struct {
	workers int
	logger  *zap.Logger

	mu      sync.Mutex
	cond    *sync.Cond
	pending map[string]Task
	order   []string
	running map[string]struct{}
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewKeyedQueue builds a queue; Start must be called before Submit has any
// effect.
func NewKeyedQueue(cfg KeyedQueueConfig) *KeyedQueue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	q := &KeyedQueue{
		workers: cfg.Workers,
		logger:  cfg.Logger,
		pending: make(map[string]Task),
		running: make(map[string]struct{}),
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Start launches the worker pool.
func (q *KeyedQueue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	go func() {
		<-q.ctx.Done()
		q.mu.Lock()
		q.closed = true
		q.cond.Broadcast()
		q.mu.Unlock()
	}()
}

// Stop drains the workers. Pending tasks that have not started are dropped.
func (q *KeyedQueue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
}

// Submit enqueues a task, coalescing with any queued task under the same key.
func (q *KeyedQueue) Submit(task Task) {
	if task.Key == "" || task.Run == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	if _, queued := q.pending[task.Key]; !queued {
		q.order = append(q.order, task.Key)
	}
	q.pending[task.Key] = task
	q.cond.Signal()
}

// Len reports the number of distinct queued keys.
func (q *KeyedQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

func (q *KeyedQueue) worker() {
	defer q.wg.Done()
	for {
		task, ok := q.next()
		if !ok {
			return
		}
		if err := task.Run(q.ctx); err != nil {
			q.logger.Warn("queued task failed",
				zap.String("key", task.Key),
				zap.Error(err),
			)
		}
		q.finish(task.Key)
	}
}

// next blocks until a task whose key is not currently running becomes
// available, marking the key as in-flight.
func (q *KeyedQueue) next() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.closed {
			return Task{}, false
		}
		for i, key := range q.order {
			if _, busy := q.running[key]; busy {
				continue
			}
			task := q.pending[key]
			delete(q.pending, key)
			q.order = append(q.order[:i], q.order[i+1:]...)
			q.running[key] = struct{}{}
			return task, true
		}
		q.cond.Wait()
	}
}

func (q *KeyedQueue) finish(key string) {
	q.mu.Lock()
	delete(q.running, key)
	// A task resubmitted while this key was in flight is now eligible.
	if _, queued := q.pending[key]; queued {
		q.cond.Signal()
	}
	q.mu.Unlock()
}
