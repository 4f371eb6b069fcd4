package rate

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterAllowAndReset(t *testing.T) {
	lim := NewMemory(2, time.Second)
	now := time.Now()

	allowed, retry, err := lim.Allow(context.Background(), "ip", now)
	if err != nil || !allowed || retry != 0 {
		t.Fatalf("expected allow on first call")
	}

	allowed, retry, err = lim.Allow(context.Background(), "ip", now)
	if err != nil || !allowed || retry != 0 {
		t.Fatalf("expected allow on second call")
	}

	allowed, retry, err = lim.Allow(context.Background(), "ip", now)
	if err != nil || allowed {
		t.Fatalf("expected rate limit on third call")
	}
	if retry <= 0 {
		t.Fatalf("expected retryAfter > 0")
	}

	allowed, _, err = lim.Allow(context.Background(), "ip", now.Add(2*time.Second))
	if err != nil || !allowed {
		t.Fatalf("expected allow after window reset")
	}
}

func TestMemoryLimiterSweepsIdleKeys(t *testing.T) {
	lim := NewMemory(1, time.Second)
	now := time.Now()

	lim.Allow(context.Background(), "idle", now)
	lim.Allow(context.Background(), "busy", now.Add(3*time.Second))

	lim.mu.Lock()
	_, idleKept := lim.buckets["idle"]
	lim.mu.Unlock()
	if idleKept {
		t.Fatalf("expected idle bucket dropped after its window expired")
	}
}

func TestMemoryLimiterIsolatesKeys(t *testing.T) {
	lim := NewMemory(1, time.Minute)
	now := time.Now()

	if allowed, _, _ := lim.Allow(context.Background(), "a", now); !allowed {
		t.Fatalf("expected key a allowed")
	}
	if allowed, _, _ := lim.Allow(context.Background(), "a", now); allowed {
		t.Fatalf("expected key a limited")
	}
	if allowed, _, _ := lim.Allow(context.Background(), "b", now); !allowed {
		t.Fatalf("expected key b unaffected")
	}
}
