package algorithm

import (
	"context"
	"testing"
	"time"

	"github.com/axiomwire/ratelimitd/pkg/rules"
	"github.com/axiomwire/ratelimitd/pkg/store"
)

func TestTokenBucket_BurstThenDeny(t *testing.T) {
	ctx := context.Background()
	tb, err := NewTokenBucket(ctx, store.NewMemoryStore())
	if err != nil {
		t.Fatalf("NewTokenBucket: %v", err)
	}

	rule := rules.Rule{Rate: 5, Window: time.Second}

	for i := 0; i < 5; i++ {
		dec, err := tb.Check(ctx, "client_a", "default", 1, rule)
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if !dec.Allowed {
			t.Fatalf("request %d: expected allowed, got denied", i)
		}
	}

	dec, err := tb.Check(ctx, "client_a", "default", 1, rule)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if dec.Allowed {
		t.Fatal("expected 6th request over a burst of 5 to be denied")
	}
	if dec.RetryAfterMs <= 0 {
		t.Error("expected positive retry_after_ms on denial")
	}
}

func TestTokenBucket_RefillsOverTime(t *testing.T) {
	ctx := context.Background()
	ms := store.NewMemoryStore()
	tb, err := NewTokenBucket(ctx, ms)
	if err != nil {
		t.Fatalf("NewTokenBucket: %v", err)
	}

	rule := rules.Rule{Rate: 2, Window: time.Second}

	for i := 0; i < 2; i++ {
		dec, err := tb.Check(ctx, "client_b", "default", 1, rule)
		if err != nil || !dec.Allowed {
			t.Fatalf("expected allowed, got %+v err=%v", dec, err)
		}
	}

	dec, err := tb.Check(ctx, "client_b", "default", 1, rule)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if dec.Allowed {
		t.Fatal("expected bucket exhausted before refill")
	}

	time.Sleep(1100 * time.Millisecond)

	dec, err = tb.Check(ctx, "client_b", "default", 1, rule)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !dec.Allowed {
		t.Fatal("expected refill to admit a request after a full window elapsed")
	}
}

func TestTokenBucket_RedisIntegration(t *testing.T) {
	client := newTestRedisClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisStore := store.NewRedisStore(client)
	tb, err := NewTokenBucket(ctx, redisStore)
	if err != nil {
		t.Fatalf("NewTokenBucket: %v", err)
	}

	rule := rules.Rule{Rate: 3, Window: time.Second}
	key := uniqueClientID("tb_it")

	for i := 0; i < 3; i++ {
		dec, err := tb.Check(ctx, key, "default", 1, rule)
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if !dec.Allowed {
			t.Fatalf("request %d: expected allowed", i)
		}
	}

	dec, err := tb.Check(ctx, key, "default", 1, rule)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if dec.Allowed {
		t.Error("expected burst to be exhausted against a live Redis instance")
	}
}
