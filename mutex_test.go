package asyncsync

import (
	"context"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func TestMutex_Simple(t *testing.T) {
	m := NewMutex(false)

	r, err := m.Enter(nil)
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	r.Dispose()

	r, err = m.Enter(nil)
	if err != nil {
		t.Fatalf("Enter after release: %v", err)
	}
	r.Dispose()
}

func TestMutex_DoubleDisposePanics(t *testing.T) {
	m := NewMutex(false)
	r, err := m.Enter(nil)
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}
	r.Dispose()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double Dispose")
		}
	}()
	r.Dispose()
}

func TestMutex_FIFOOrdering(t *testing.T) {
	m := NewMutex(false)
	first, err := m.Enter(nil)
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}

	const n = 20
	order := make(chan int, n)

	for i := range n {
		go func(i int) {
			r, err := m.Enter(nil)
			if err != nil {
				t.Error(err)
				return
			}
			order <- i
			r.Dispose()
		}(i)
		// Wait until goroutine i has queued before starting i+1, so the
		// queue holds 0..n-1 in exactly that order.
		for {
			m.mu.Lock()
			queued := m.waiters.Len()
			m.mu.Unlock()
			if queued == i+1 {
				break
			}
			time.Sleep(time.Millisecond)
		}
	}

	first.Dispose()

	for i := range n {
		got := <-order
		if got != i {
			t.Fatalf("waiter %d granted out of FIFO order (got %d)", i, got)
		}
	}
}

func TestMutex_CancellationReleasesQueueSlot(t *testing.T) {
	m := NewMutex(false)
	holder, err := m.Enter(nil)
	if err != nil {
		t.Fatalf("Enter: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	waitDone := make(chan error, 1)
	go func() {
		_, err := m.Enter(FromContext(ctx))
		waitDone <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-waitDone:
		if err == nil {
			t.Fatal("expected cancellation error")
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled Enter never returned")
	}

	holder.Dispose()

	// The mutex must still be acquirable: cancellation must never strand
	// the lock in a permanently-held state.
	r, err := m.Enter(nil)
	if err != nil {
		t.Fatalf("Enter after cancellation+release: %v", err)
	}
	r.Dispose()
}

func TestMutex_ConcurrentFuzz(t *testing.T) {
	m := NewMutex(false)
	var counter int

	var g errgroup.Group
	for range 200 {
		g.Go(func() error {
			r, err := m.Enter(nil)
			if err != nil {
				return err
			}
			counter++
			r.Dispose()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}
	if counter != 200 {
		t.Fatalf("counter = %d, want 200", counter)
	}
}
