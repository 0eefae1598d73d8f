package locking

import (
	"sync"
	"testing"
)

func TestKeyed_SerializesSameKey(t *testing.T) {
	t.Parallel()

	k := NewKeyed()
	const workers = 32
	const iters = 200

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iters; j++ {
				k.Lock("a")
				counter++
				k.Unlock("a")
			}
		}()
	}
	wg.Wait()

	if counter != workers*iters {
		t.Fatalf("counter=%d want %d", counter, workers*iters)
	}
}

func TestKeyed_IndependentKeysDoNotBlock(t *testing.T) {
	t.Parallel()

	k := NewKeyed()
	k.Lock("a")

	done := make(chan struct{})
	go func() {
		k.Lock("b")
		k.Unlock("b")
		close(done)
	}()
	<-done

	k.Unlock("a")
}

func TestKeyed_ReleasesEntries(t *testing.T) {
	t.Parallel()

	k := NewKeyed()
	k.Lock("a")
	k.Unlock("a")
	k.Lock("b")
	k.Unlock("b")

	k.mu.Lock()
	n := len(k.entries)
	k.mu.Unlock()
	if n != 0 {
		t.Fatalf("entries=%d want 0", n)
	}
}
