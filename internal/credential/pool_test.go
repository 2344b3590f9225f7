package credential

import (
	"sync"
	"testing"
)

func TestPool_AcquireInConfigOrder(t *testing.T) {
	pool := NewPool([]string{"key-a", "key-b", "key-c"})

	first := pool.Acquire()
	if first == nil || first.ID != "key-a" {
		t.Fatalf("Expected first acquire to return key-a, got %+v", first)
	}

	second := pool.Acquire()
	if second == nil || second.ID != "key-b" {
		t.Fatalf("Expected second acquire to return key-b, got %+v", second)
	}
}

func TestPool_Exhaustion(t *testing.T) {
	pool := NewPool([]string{"key-a"})

	if pool.Acquire() == nil {
		t.Fatal("Expected first acquire to succeed")
	}
	if pool.Acquire() != nil {
		t.Error("Expected acquire on exhausted pool to return nil")
	}
	if pool.Busy() != 1 {
		t.Errorf("Expected 1 busy credential, got %d", pool.Busy())
	}
}

func TestPool_ReleaseMakesCredentialReusable(t *testing.T) {
	pool := NewPool([]string{"key-a"})

	cred := pool.Acquire()
	pool.Release(cred)

	again := pool.Acquire()
	if again == nil || again.ID != "key-a" {
		t.Fatal("Expected released credential to be acquirable again")
	}
}

func TestPool_ReleaseIdempotent(t *testing.T) {
	pool := NewPool([]string{"key-a"})

	cred := pool.Acquire()
	pool.Release(cred)
	pool.Release(cred) // double release must be a no-op

	if pool.Busy() != 0 {
		t.Errorf("Expected 0 busy credentials, got %d", pool.Busy())
	}
	if pool.Acquire() == nil {
		t.Error("Expected credential to be usable after double release")
	}
}

func TestPool_ReleaseNil(t *testing.T) {
	pool := NewPool([]string{"key-a"})
	pool.Release(nil) // must not panic
}

func TestPool_ConcurrentAcquireNeverOversubscribes(t *testing.T) {
	pool := NewPool([]string{"key-a", "key-b", "key-c"})

	var wg sync.WaitGroup
	var mu sync.Mutex
	acquired := make([]*Credential, 0)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cred := pool.Acquire(); cred != nil {
				mu.Lock()
				acquired = append(acquired, cred)
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(acquired) != 3 {
		t.Errorf("Expected exactly 3 successful acquires, got %d", len(acquired))
	}

	seen := make(map[string]bool)
	for _, cred := range acquired {
		if seen[cred.ID] {
			t.Errorf("Credential %s handed out twice", cred.ID)
		}
		seen[cred.ID] = true
	}
}
