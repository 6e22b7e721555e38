package refresh

import (
	"context"
	"testing"
	"time"
)

func TestGate_SpacesCalls(t *testing.T) {
	// 6000/min means one call every 10ms.
	g := NewGate(6000)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 4; i++ {
		if err := g.Wait(ctx); err != nil {
			t.Fatalf("Expected Wait to succeed, got %v", err)
		}
	}
	elapsed := time.Since(start)

	// Three gaps of 10ms each; allow generous slack for slow machines.
	if elapsed < 25*time.Millisecond {
		t.Errorf("Expected at least ~30ms across 4 calls, got %s", elapsed)
	}
}

func TestGate_ContextCancellation(t *testing.T) {
	// One call per minute, so the second Wait must block.
	g := NewGate(1)

	if err := g.Wait(context.Background()); err != nil {
		t.Fatalf("Expected first Wait to succeed, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := g.Wait(ctx)
	if err == nil {
		t.Fatal("Expected Wait to fail once the context expires")
	}
}

func TestGate_ZeroBudgetDefaults(t *testing.T) {
	// A non-positive budget must not panic or divide by zero.
	g := NewGate(0)
	if err := g.Wait(context.Background()); err != nil {
		t.Errorf("Expected first Wait to succeed on defaulted gate, got %v", err)
	}
}
