package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestHub_BasicSubscribeSignal(t *testing.T) {
	hub := NewHub()

	signals, cancel := hub.Subscribe(Filter{})
	defer cancel()

	id := uuid.New()
	hub.Signal("servers", []uuid.UUID{id})

	select {
	case sig := <-signals:
		if sig.Collection != "servers" || len(sig.IDs) != 1 || sig.IDs[0] != id {
			t.Errorf("unexpected signal %+v", sig)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for signal")
	}
}

func TestHub_FilterSpecificCollection(t *testing.T) {
	hub := NewHub()

	signals, cancel := hub.Subscribe(Filter{Collections: []string{"servers"}})
	defer cancel()

	hub.Signal("databases", nil)

	select {
	case sig := <-signals:
		t.Errorf("should not receive signal for databases, got %+v", sig)
	case <-time.After(50 * time.Millisecond):
	}

	hub.Signal("servers", nil)

	select {
	case sig := <-signals:
		if sig.Collection != "servers" {
			t.Errorf("expected servers, got %s", sig.Collection)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("timeout waiting for signal")
	}
}

func TestHub_SignalCopiesIDs(t *testing.T) {
	hub := NewHub()
	signals, cancel := hub.Subscribe(Filter{})
	defer cancel()

	ids := []uuid.UUID{uuid.New()}
	original := ids[0]
	hub.Signal("servers", ids)
	ids[0] = uuid.New()

	sig := <-signals
	if sig.IDs[0] != original {
		t.Error("signal should not alias caller's slice")
	}
}

func TestHub_CancelIsIdempotent(t *testing.T) {
	hub := NewHub()
	signals, cancel := hub.Subscribe(Filter{})

	if hub.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.Subscribers())
	}

	cancel()
	cancel()

	if _, ok := <-signals; ok {
		t.Error("channel should be closed after cancel")
	}
	if hub.Subscribers() != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.Subscribers())
	}

	// Signalling with no subscribers must not panic
	hub.Signal("servers", nil)
}

func TestHub_DropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	signals, cancel := hub.Subscribe(Filter{})
	defer cancel()

	for i := 0; i < defaultSignalBufferSize*2; i++ {
		hub.Signal("servers", nil)
	}

	if len(signals) != defaultSignalBufferSize {
		t.Errorf("expected %d buffered signals, got %d", defaultSignalBufferSize, len(signals))
	}
}

func TestHub_ConcurrentSignalAndSubscribe(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch, cancel := hub.Subscribe(Filter{})
			for j := 0; j < 5; j++ {
				select {
				case <-ch:
				default:
				}
			}
			cancel()
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				hub.Signal("servers", nil)
			}
		}()
	}
	wg.Wait()
}
