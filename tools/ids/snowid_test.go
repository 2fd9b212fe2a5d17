package ids

import (
	"sync"
	"testing"
)

func TestGenerateMonotonicUnique(t *testing.T) {
	prev := Generate()
	for i := 0; i < 1000; i++ {
		id := Generate()
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		prev = id
	}
}

func TestGenerateConcurrentUnique(t *testing.T) {
	const workers, per = 8, 500
	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*per)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < per; i++ {
				id := Generate()
				mu.Lock()
				if _, dup := seen[id]; dup {
					t.Errorf("duplicate id %d", id)
				}
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
}

func TestSetNodeIDBounds(t *testing.T) {
	SetNodeID(2048) // out of range, falls back
	if defaultGen.nodeID != 1 {
		t.Errorf("nodeID = %d, want fallback 1", defaultGen.nodeID)
	}
	SetNodeID(42)
	if defaultGen.nodeID != 42 {
		t.Errorf("nodeID = %d, want 42", defaultGen.nodeID)
	}
}
