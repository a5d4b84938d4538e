package asyncsync

import (
	"sync"
	"testing"
	"time"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	g := NewKeyedMutex[string](false)

	r1, err := g.Lock("a", nil)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}

	otherKeyGranted := make(chan struct{})
	go func() {
		r, err := g.Lock("b", nil)
		if err != nil {
			t.Error(err)
			return
		}
		close(otherKeyGranted)
		r.Dispose()
	}()

	select {
	case <-otherKeyGranted:
	case <-time.After(time.Second):
		t.Fatal("a distinct key must not be blocked by another key's holder")
	}

	sameKeyGranted := make(chan struct{})
	go func() {
		r, err := g.Lock("a", nil)
		if err != nil {
			t.Error(err)
			return
		}
		close(sameKeyGranted)
		r.Dispose()
	}()

	time.Sleep(10 * time.Millisecond)
	select {
	case <-sameKeyGranted:
		t.Fatal("same key must be serialized")
	default:
	}

	r1.Dispose()

	select {
	case <-sameKeyGranted:
	case <-time.After(time.Second):
		t.Fatal("same-key waiter never granted after release")
	}
}

func TestKeyedMutex_EntryCleanedUpAfterRelease(t *testing.T) {
	g := NewKeyedMutex[int](false)

	r, err := g.Lock(1, nil)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	r.Dispose()

	if _, ok := g.m.Load(1); ok {
		t.Fatal("entry should be removed once its refcount returns to zero")
	}
}

func TestKeyedMutex_ConcurrentKeysFuzz(t *testing.T) {
	g := NewKeyedMutex[int](false)
	const keys = 8
	const perKey = 50

	counters := make([]int, keys)
	var wg sync.WaitGroup
	wg.Add(keys * perKey)
	for k := range keys {
		for range perKey {
			go func(k int) {
				defer wg.Done()
				r, err := g.Lock(k, nil)
				if err != nil {
					t.Error(err)
					return
				}
				counters[k]++
				r.Dispose()
			}(k)
		}
	}
	wg.Wait()

	for k, c := range counters {
		if c != perKey {
			t.Fatalf("counters[%d] = %d, want %d", k, c, perKey)
		}
	}
}

func TestKeyedSemaphore_LimitsConcurrencyPerKey(t *testing.T) {
	g := NewKeyedSemaphore[string](2, false)

	r1, err := g.Acquire("x", nil)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	r2, err := g.Acquire("x", nil)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	thirdGranted := make(chan struct{})
	go func() {
		r, err := g.Acquire("x", nil)
		if err != nil {
			t.Error(err)
			return
		}
		close(thirdGranted)
		r.Dispose()
	}()

	time.Sleep(10 * time.Millisecond)
	select {
	case <-thirdGranted:
		t.Fatal("third acquire must block until a permit is freed")
	default:
	}

	r1.Dispose()

	select {
	case <-thirdGranted:
	case <-time.After(time.Second):
		t.Fatal("third acquire never granted after a permit freed")
	}

	r2.Dispose()
}
