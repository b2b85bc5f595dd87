package hlc

import (
	"sync"
	"testing"
	"time"
)

func TestClock_Now(t *testing.T) {
	clock := NewClock(1)

	ts1 := clock.Now()
	if ts1.NodeID != 1 {
		t.Errorf("Expected node ID 1, got %d", ts1.NodeID)
	}
	if ts1.WallTime == 0 {
		t.Error("Wall time should not be zero")
	}
	if clock.NodeID() != 1 {
		t.Errorf("Expected clock node ID 1, got %d", clock.NodeID())
	}
}

func TestClock_MonotonicIncrement(t *testing.T) {
	clock := NewClock(1)

	timestamps := make([]Timestamp, 1000)
	for i := range timestamps {
		timestamps[i] = clock.Now()
	}

	for i := 1; i < len(timestamps); i++ {
		if !After(timestamps[i], timestamps[i-1]) {
			t.Fatalf("Timestamp %d not after %d", i, i-1)
		}
	}
}

func TestClock_Update(t *testing.T) {
	clock1 := NewClock(1)
	clock2 := NewClock(2)

	ts1 := clock1.Now()
	ts2 := clock2.Update(ts1)

	if !After(ts2, ts1) {
		t.Error("Updated timestamp should be after received timestamp")
	}
	if ts2.NodeID != 2 {
		t.Errorf("Expected node ID 2, got %d", ts2.NodeID)
	}
}

func TestClock_UpdateWithFutureRemote(t *testing.T) {
	clock := NewClock(1)

	future := Timestamp{
		WallTime: time.Now().Add(time.Hour).UnixNano(),
		Logical:  7,
		NodeID:   9,
	}

	got := clock.Update(future)
	if !After(got, future) {
		t.Errorf("Expected %v to be after %v", got, future)
	}
	if got.WallTime != future.WallTime || got.Logical != 8 {
		t.Errorf("Expected wall=%d logical=8, got wall=%d logical=%d", future.WallTime, got.WallTime, got.Logical)
	}

	// Later local events keep ordering after the adopted remote time
	next := clock.Now()
	if !After(next, got) {
		t.Error("Now() after Update() must not go backwards")
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Timestamp
		expected int
	}{
		{"wall less", Timestamp{WallTime: 1}, Timestamp{WallTime: 2}, -1},
		{"wall greater", Timestamp{WallTime: 3}, Timestamp{WallTime: 2}, 1},
		{"logical less", Timestamp{WallTime: 1, Logical: 1}, Timestamp{WallTime: 1, Logical: 2}, -1},
		{"node tiebreak", Timestamp{WallTime: 1, Logical: 1, NodeID: 2}, Timestamp{WallTime: 1, Logical: 1, NodeID: 1}, 1},
		{"equal", Timestamp{WallTime: 1, Logical: 1, NodeID: 1}, Timestamp{WallTime: 1, Logical: 1, NodeID: 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.expected {
				t.Errorf("Compare() = %d, expected %d", got, tt.expected)
			}
		})
	}
}

func TestTimestamp_IsZero(t *testing.T) {
	if !(Timestamp{}).IsZero() {
		t.Error("zero timestamp should report IsZero")
	}
	if NewClock(1).Now().IsZero() {
		t.Error("stamped timestamp should not be zero")
	}
}

func TestClock_Concurrent(t *testing.T) {
	clock := NewClock(1)

	var mu sync.Mutex
	seen := make(map[Timestamp]struct{})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				ts := clock.Now()
				mu.Lock()
				seen[ts] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != 8*500 {
		t.Errorf("Expected %d unique timestamps, got %d", 8*500, len(seen))
	}
}
