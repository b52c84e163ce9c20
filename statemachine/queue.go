package statemachine

import (
	"context"
	"fmt"
	"sync"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/stateful/future"
)

type job struct {
	ctx     context.Context //nolint:containedctx
	run     func(ctx context.Context) error
	promise *future.Promise[struct{}]
}

// Queue runs jobs one at a time in submission order. A job's future settles
// before the next job starts. Jobs are drained by a single task on a pond
// pool, so an idle queue holds no goroutine.
type Queue struct {
	mu      sync.Mutex
	pool    pond.Pool
	pending []*job
	running bool
	onDepth func(delta int)
}

func newQueue(pool pond.Pool, onDepth func(delta int)) *Queue {
	if onDepth == nil {
		onDepth = func(int) {}
	}

	return &Queue{pool: pool, onDepth: onDepth}
}

// Enqueue appends run to the queue. The job runs with a context that keeps
// the values of ctx but not its cancellation: once queued, a transition
// always runs to completion.
func (q *Queue) Enqueue(ctx context.Context, run func(ctx context.Context) error) *future.Future[struct{}] {
	fut, promise := future.New[struct{}]()

	q.mu.Lock()
	q.pending = append(q.pending, &job{
		ctx:     context.WithoutCancel(ctx),
		run:     run,
		promise: promise,
	})

	start := !q.running
	q.running = true
	q.mu.Unlock()

	q.onDepth(1)

	if start {
		if err := q.pool.Go(q.drain); err != nil {
			q.abort(fmt.Errorf("worker pool unavailable: %w", err))
		}
	}

	return fut
}

// Len returns the number of jobs waiting or running.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.pending)
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.running = false
			q.mu.Unlock()

			return
		}

		next := q.pending[0]
		q.mu.Unlock()

		err := runJob(next)

		q.mu.Lock()
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.onDepth(-1)

		next.promise.Complete(struct{}{}, err)
	}
}

func (q *Queue) abort(err error) {
	q.mu.Lock()
	failed := q.pending
	q.pending = nil
	q.running = false
	q.mu.Unlock()

	for _, j := range failed {
		q.onDepth(-1)
		j.promise.Failure(err)
	}
}

func runJob(j *job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCallbackPanic, r)
		}
	}()

	return j.run(j.ctx)
}
