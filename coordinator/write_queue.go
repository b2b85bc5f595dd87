package coordinator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/maxpert/serverconfig/telemetry"
	"github.com/rs/zerolog/log"
)

// queueWaiter is one writer holding or waiting for the token
type queueWaiter struct {
	granted  chan struct{} // buffered, receives once when the token is handed over
	enqueued time.Time
}

// WriteQueue hands out a single write token in arrival order. holder and
// waiting are only read or written on the home loop.
type WriteQueue struct {
	loop *HomeLoop

	holder  *queueWaiter
	waiting []*queueWaiter

	depth atomic.Int64
}

// NewWriteQueue creates a queue whose bookkeeping runs on loop
func NewWriteQueue(loop *HomeLoop) *WriteQueue {
	return &WriteQueue{loop: loop}
}

// WriteToken grants exclusive write access until released
type WriteToken struct {
	queue   *WriteQueue
	waiter  *queueWaiter
	release sync.Once
}

// Acquire waits for the token. If ctx is cancelled first, the caller leaves
// the queue and ctx.Err() is returned.
func (q *WriteQueue) Acquire(ctx context.Context) (*WriteToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := &queueWaiter{
		granted:  make(chan struct{}, 1),
		enqueued: time.Now(),
	}
	if err := q.loop.Do(func() { q.enqueue(w) }); err != nil {
		return nil, err
	}

	select {
	case <-w.granted:
		telemetry.WriteQueueWaitSeconds.Observe(time.Since(w.enqueued).Seconds())
		return &WriteToken{queue: q, waiter: w}, nil
	case <-ctx.Done():
		// The grant may have raced with cancellation; abandon passes the
		// token on in that case
		if err := q.loop.Do(func() { q.abandon(w) }); err != nil {
			log.Warn().Err(err).Msg("Failed to leave write queue")
		}
		return nil, ctx.Err()
	}
}

// Depth returns the number of writers holding or waiting for the token
func (q *WriteQueue) Depth() int {
	return int(q.depth.Load())
}

// Release returns the token to the queue. Calling it again has no effect.
func (t *WriteToken) Release() {
	t.release.Do(func() {
		q := t.queue
		if err := q.loop.Do(func() { q.handOff(t.waiter) }); err != nil {
			log.Warn().Err(err).Msg("Failed to release write token")
		}
	})
}

// Runs on the home loop.
func (q *WriteQueue) enqueue(w *queueWaiter) {
	if q.holder == nil {
		q.holder = w
		w.granted <- struct{}{}
	} else {
		q.waiting = append(q.waiting, w)
	}
	q.updateDepth()
}

// Runs on the home loop.
func (q *WriteQueue) handOff(w *queueWaiter) {
	if q.holder != w {
		return
	}
	q.holder = nil
	if len(q.waiting) > 0 {
		next := q.waiting[0]
		q.waiting[0] = nil
		q.waiting = q.waiting[1:]
		q.holder = next
		next.granted <- struct{}{}
	}
	q.updateDepth()
}

// Runs on the home loop.
func (q *WriteQueue) abandon(w *queueWaiter) {
	if q.holder == w {
		q.handOff(w)
		return
	}
	for i, other := range q.waiting {
		if other == w {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			break
		}
	}
	q.updateDepth()
}

func (q *WriteQueue) updateDepth() {
	depth := len(q.waiting)
	if q.holder != nil {
		depth++
	}
	q.depth.Store(int64(depth))
	telemetry.WriteQueueDepth.Set(float64(depth))
}
