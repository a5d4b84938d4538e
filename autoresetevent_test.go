package asyncsync

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestAutoResetEvent_WakesExactlyOne(t *testing.T) {
	e := NewAutoResetEvent(false, false)

	const n = 5
	var woken atomic.Int64
	var wg sync.WaitGroup
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			if err := e.Wait(nil); err == nil {
				woken.Add(1)
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	if err := e.Set(); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	if got := woken.Load(); got != 1 {
		t.Fatalf("woken = %d, want 1", got)
	}

	// Drain the rest with one Set apiece.
	for range n - 1 {
		if err := e.Set(); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}
	wg.Wait()
	if got := woken.Load(); got != n {
		t.Fatalf("woken = %d, want %d", got, n)
	}
}

func TestAutoResetEvent_StoresSignalWhenNoWaiter(t *testing.T) {
	e := NewAutoResetEvent(false, false)
	if err := e.Set(); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !e.IsSet() {
		t.Fatal("expected signaled with no waiters present")
	}

	if err := e.Wait(nil); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if e.IsSet() {
		t.Fatal("Wait must consume the stored signal")
	}
}

func TestAutoResetEvent_InitialState(t *testing.T) {
	e := NewAutoResetEvent(true, false)
	if err := e.Wait(nil); err != nil {
		t.Fatalf("Wait on initially-signaled event: %v", err)
	}
	if e.IsSet() {
		t.Fatal("Wait must consume the initial signal")
	}
}
