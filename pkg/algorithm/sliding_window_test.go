package algorithm

import (
	"context"
	"testing"
	"time"

	"github.com/axiomwire/ratelimitd/pkg/rules"
	"github.com/axiomwire/ratelimitd/pkg/store"
)

func TestSlidingWindow_DeniesBoundaryBurst(t *testing.T) {
	// The classic fixed-window boundary attack (2*rate requests clustered
	// around a window edge) must be denied by the sliding log, unlike fixed
	// window which permits it by design.
	ctx := context.Background()
	sw, err := NewSlidingWindow(ctx, store.NewMemoryStore())
	if err != nil {
		t.Fatalf("NewSlidingWindow: %v", err)
	}

	rule := rules.Rule{Rate: 5, Window: time.Second}

	for i := 0; i < 5; i++ {
		dec, err := sw.Check(ctx, "client_e", "default", 1, rule)
		if err != nil || !dec.Allowed {
			t.Fatalf("request %d: expected allowed, got %+v err=%v", i, dec, err)
		}
	}

	dec, err := sw.Check(ctx, "client_e", "default", 1, rule)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if dec.Allowed {
		t.Fatal("expected 6th request within the same rolling window to be denied")
	}
	if dec.RetryAfterMs <= 0 {
		t.Error("expected positive retry_after_ms on denial")
	}
}

func TestSlidingWindow_AdmitsAgainAfterEntriesAgeOut(t *testing.T) {
	ctx := context.Background()
	sw, err := NewSlidingWindow(ctx, store.NewMemoryStore())
	if err != nil {
		t.Fatalf("NewSlidingWindow: %v", err)
	}

	rule := rules.Rule{Rate: 2, Window: time.Second}

	for i := 0; i < 2; i++ {
		dec, err := sw.Check(ctx, "client_f", "default", 1, rule)
		if err != nil || !dec.Allowed {
			t.Fatalf("expected allowed, got %+v err=%v", dec, err)
		}
	}

	if dec, err := sw.Check(ctx, "client_f", "default", 1, rule); err != nil || dec.Allowed {
		t.Fatalf("expected window exhausted, got %+v err=%v", dec, err)
	}

	time.Sleep(1100 * time.Millisecond)

	dec, err := sw.Check(ctx, "client_f", "default", 1, rule)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !dec.Allowed {
		t.Fatal("expected admission once the oldest entries rolled out of the window")
	}
}

func TestSlidingWindow_RedisIntegration(t *testing.T) {
	client := newTestRedisClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sw, err := NewSlidingWindow(ctx, store.NewRedisStore(client))
	if err != nil {
		t.Fatalf("NewSlidingWindow: %v", err)
	}

	rule := rules.Rule{Rate: 3, Window: time.Second}
	key := uniqueClientID("sw_it")

	for i := 0; i < 3; i++ {
		dec, err := sw.Check(ctx, key, "default", 1, rule)
		if err != nil || !dec.Allowed {
			t.Fatalf("request %d: expected allowed, got %+v err=%v", i, dec, err)
		}
	}

	dec, err := sw.Check(ctx, key, "default", 1, rule)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if dec.Allowed {
		t.Error("expected rolling window exhausted against a live Redis instance")
	}
}
