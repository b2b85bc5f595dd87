package coordinator

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jizhuozhi/go-future"
	"github.com/rs/zerolog/log"
)

// ErrHomeLoopStopped is returned for work submitted after Stop
var ErrHomeLoopStopped = errors.New("home loop stopped")

type homeTask struct {
	fn      func()
	promise *future.Promise[struct{}]
}

// HomeLoop is the single goroutine that owns a table's write bookkeeping.
// Code that mutates that state is handed to it with Submit instead of
// taking a lock, so the state is only ever touched from one goroutine.
type HomeLoop struct {
	mu      sync.RWMutex
	stopped bool
	tasks   chan homeTask
	wg      sync.WaitGroup
}

// NewHomeLoop starts a home loop with room for buffer pending tasks
func NewHomeLoop(buffer int) *HomeLoop {
	h := &HomeLoop{
		tasks: make(chan homeTask, buffer),
	}
	h.wg.Add(1)
	go h.run()
	return h
}

func (h *HomeLoop) run() {
	defer h.wg.Done()
	for t := range h.tasks {
		t.promise.Set(struct{}{}, runTask(t.fn))
	}
}

// runTask runs fn, turning a panic into an error so the loop keeps serving
func runTask(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Home loop task panicked")
			err = fmt.Errorf("home loop task panicked: %v", r)
		}
	}()
	fn()
	return nil
}

// Submit schedules fn on the loop. The returned future completes once fn
// has run, or with ErrHomeLoopStopped if the loop no longer accepts work.
func (h *HomeLoop) Submit(fn func()) *future.Future[struct{}] {
	p := future.NewPromise[struct{}]()

	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.stopped {
		p.Set(struct{}{}, ErrHomeLoopStopped)
		return p.Future()
	}
	h.tasks <- homeTask{fn: fn, promise: p}
	return p.Future()
}

// Do runs fn on the loop and waits for it to finish
func (h *HomeLoop) Do(fn func()) error {
	_, err := h.Submit(fn).Get()
	return err
}

// Stop runs the tasks already submitted and then ends the loop
func (h *HomeLoop) Stop() {
	h.mu.Lock()
	if !h.stopped {
		h.stopped = true
		close(h.tasks)
	}
	h.mu.Unlock()
	h.wg.Wait()
}
