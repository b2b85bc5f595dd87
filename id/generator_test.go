package id

import (
	"sync"
	"testing"

	"github.com/google/uuid"
)

func TestRandomGenerator_Uniqueness(t *testing.T) {
	var gen Generator = RandomGenerator{}

	seen := make(map[uuid.UUID]bool)
	const iterations = 10000

	for i := 0; i < iterations; i++ {
		id := gen.NextID()
		if seen[id] {
			t.Fatalf("duplicate ID generated at iteration %d: %s", i, id)
		}
		seen[id] = true
	}
}

func TestRandomGenerator_Version(t *testing.T) {
	id := RandomGenerator{}.NextID()
	if id.Version() != 4 {
		t.Errorf("expected version 4 UUID, got version %d", id.Version())
	}
}

func TestFromSeed_Stable(t *testing.T) {
	a := FromSeed("machine-a")
	b := FromSeed("machine-a")
	c := FromSeed("machine-b")

	if a != b {
		t.Errorf("same seed produced different IDs: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different seeds produced the same ID")
	}
	if a.Version() != 5 {
		t.Errorf("expected version 5 UUID, got version %d", a.Version())
	}
}

func TestRandomGenerator_Concurrent(t *testing.T) {
	gen := RandomGenerator{}

	var mu sync.Mutex
	seen := make(map[uuid.UUID]bool)

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := gen.NextID()
				mu.Lock()
				if seen[id] {
					t.Errorf("duplicate ID: %s", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}
