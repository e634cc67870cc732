package logbook

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestOwnerLocks_SerializesOwner(t *testing.T) {
	locks := newOwnerLocks()
	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.Lock("owner-1")
			defer release()
			n := active.Add(1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
		}()
	}
	wg.Wait()

	if got := maxActive.Load(); got != 1 {
		t.Errorf("max concurrent holders = %d, want 1", got)
	}
	if len(locks.locks) != 0 {
		t.Errorf("lock table holds %d entries after release, want 0", len(locks.locks))
	}
}

func TestOwnerLocks_OwnersIndependent(t *testing.T) {
	locks := newOwnerLocks()
	release := locks.Lock("owner-1")
	defer release()

	done := make(chan struct{})
	go func() {
		locks.Lock("owner-2")()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock of owner-2 blocked by owner-1")
	}
}
