package kpi

import (
	"sync"
	"testing"
)

func TestKeyedLockSerializesSameKey(t *testing.T) {
	locks := newKeyedLock()

	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("k")
			defer unlock()
			v := counter
			counter = v + 1
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("counter = %d, want 50", counter)
	}
	if got := locks.size(); got != 0 {
		t.Fatalf("idle keys retained = %d", got)
	}
}

func TestKeyedLockIndependentKeys(t *testing.T) {
	locks := newKeyedLock()

	unlockA := locks.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("b")
		unlockB()
		close(done)
	}()
	<-done

	if got := locks.size(); got != 1 {
		t.Fatalf("size() = %d, want 1", got)
	}
	unlockA()
	if got := locks.size(); got != 0 {
		t.Fatalf("size() after unlock = %d", got)
	}
}
