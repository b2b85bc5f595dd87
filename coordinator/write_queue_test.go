package coordinator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) *WriteQueue {
	t.Helper()
	loop := NewHomeLoop(16)
	t.Cleanup(loop.Stop)
	return NewWriteQueue(loop)
}

func TestWriteQueue_AcquireRelease(t *testing.T) {
	q := newTestQueue(t)

	token, err := q.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, q.Depth())

	token.Release()
	assert.Equal(t, 0, q.Depth())

	// Second release is ignored
	token.Release()
	assert.Equal(t, 0, q.Depth())

	again, err := q.Acquire(context.Background())
	require.NoError(t, err)
	again.Release()
}

func TestWriteQueue_FIFO(t *testing.T) {
	q := newTestQueue(t)

	first, err := q.Acquire(context.Background())
	require.NoError(t, err)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	for i := 1; i <= 5; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			token, err := q.Acquire(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			order = append(order, n)
			mu.Unlock()
			token.Release()
		}(i)
		// Wait for each waiter to join before starting the next
		want := i + 1
		require.Eventually(t, func() bool { return q.Depth() == want }, time.Second, time.Millisecond)
	}

	first.Release()
	wg.Wait()

	assert.Equal(t, []int{1, 2, 3, 4, 5}, order)
	assert.Equal(t, 0, q.Depth())
}

func TestWriteQueue_OneHolderAtATime(t *testing.T) {
	q := newTestQueue(t)

	var active, maxActive int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token, err := q.Acquire(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
			token.Release()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxActive)
}

func TestWriteQueue_CancelWhileWaiting(t *testing.T) {
	q := newTestQueue(t)

	holder, err := q.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		token, err := q.Acquire(ctx)
		if token != nil {
			token.Release()
		}
		done <- err
	}()
	require.Eventually(t, func() bool { return q.Depth() == 2 }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 1, q.Depth())

	// The abandoned waiter must not receive the token
	holder.Release()
	assert.Equal(t, 0, q.Depth())

	next, err := q.Acquire(context.Background())
	require.NoError(t, err)
	next.Release()
}

func TestWriteQueue_DeadlineWhileWaiting(t *testing.T) {
	q := newTestQueue(t)

	holder, err := q.Acquire(context.Background())
	require.NoError(t, err)
	defer holder.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err = q.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, q.Depth())
}

func TestWriteQueue_AbandonAfterGrantPassesToken(t *testing.T) {
	q := newTestQueue(t)
	w := &queueWaiter{granted: make(chan struct{}, 1)}
	next := &queueWaiter{granted: make(chan struct{}, 1)}

	require.NoError(t, q.loop.Do(func() {
		q.enqueue(w)
		q.enqueue(next)
	}))
	<-w.granted

	// w was granted but its caller gave up before noticing
	require.NoError(t, q.loop.Do(func() { q.abandon(w) }))

	select {
	case <-next.granted:
	case <-time.After(time.Second):
		t.Fatal("token was not passed on")
	}
	assert.Equal(t, 1, q.Depth())
}

func TestWriteQueue_StoppedLoop(t *testing.T) {
	loop := NewHomeLoop(1)
	q := NewWriteQueue(loop)
	loop.Stop()

	_, err := q.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrHomeLoopStopped)
}
