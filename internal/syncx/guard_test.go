package syncx

import (
	"sync"
	"testing"
)

func TestGetSet(t *testing.T) {
	g := NewGuard(10)
	if g.Get() != 10 {
		t.Errorf("expected 10, got %d", g.Get())
	}
	g.Set(20)
	if g.Get() != 20 {
		t.Errorf("expected 20, got %d", g.Get())
	}
}

func TestUpdateReturnsNewValue(t *testing.T) {
	g := NewGuard(1)
	got := g.Update(func(v int) int { return v + 5 })
	if got != 6 || g.Get() != 6 {
		t.Errorf("expected 6, got update=%d get=%d", got, g.Get())
	}
}

func TestSwap(t *testing.T) {
	g := NewGuard("old")
	if prev := g.Swap("new"); prev != "old" {
		t.Errorf("expected previous value, got %q", prev)
	}
	if g.Get() != "new" {
		t.Errorf("expected new value, got %q", g.Get())
	}
}

func TestConcurrentUpdates(t *testing.T) {
	g := NewGuard(0)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			g.Update(func(v int) int { return v + 1 })
		}()
	}
	wg.Wait()

	if g.Get() != 100 {
		t.Errorf("expected 100 after concurrent updates, got %d", g.Get())
	}
}
