package store

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// MemoryStore is a single-process Store, mirroring the teacher's
// MemoryLimiter: useful for unit tests and local development, but its state
// is local to the process and gives none of the cross-replica linearizable
// guarantees RedisStore provides. Production wiring always uses RedisStore.
//
// EvalScript recognizes exactly the three script IDs pkg/algorithm
// registers (TokenBucketScript, FixedWindowScript, SlidingWindowScript) and
// reimplements their logic natively in Go rather than interpreting Lua,
// since this store has no Lua engine.
type MemoryStore struct {
	mu sync.Mutex

	hashes   map[string]map[string]string
	strings  map[string]stringEntry
	zsets    map[string][]ZEntry
	expireAt map[string]time.Time

	now func() time.Time
}

type stringEntry struct {
	value string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		hashes:   make(map[string]map[string]string),
		strings:  make(map[string]stringEntry),
		zsets:    make(map[string][]ZEntry),
		expireAt: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (m *MemoryStore) Register(ctx context.Context, id ScriptID, source string) error {
	switch id {
	case TokenBucketScript, FixedWindowScript, SlidingWindowScript:
		return nil
	default:
		return errors.Errorf("memory store: unknown script %q", id)
	}
}

func (m *MemoryStore) EvalScript(ctx context.Context, id ScriptID, keys []string, args ...interface{}) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch id {
	case TokenBucketScript:
		return m.evalTokenBucket(keys, args)
	case FixedWindowScript:
		return m.evalFixedWindow(keys, args)
	case SlidingWindowScript:
		return m.evalSlidingWindow(keys, args)
	default:
		return nil, errors.Errorf("memory store: unknown script %q", id)
	}
}

func (m *MemoryStore) evalTokenBucket(keys []string, args []interface{}) (interface{}, error) {
	key := keys[0]
	rate := toFloat(args[0])
	window := toFloat(args[1])
	cost := toFloat(args[2])
	now := float64(m.now().UnixNano()) / 1e9

	capacity := rate
	refillRate := rate / window

	fields := m.hashes[key]
	var tokens, lastRefill float64
	if fields == nil {
		tokens = capacity
		lastRefill = now
	} else {
		tokens = parseFloat(fields["tokens"])
		lastRefill = parseFloat(fields["last_refill"])
	}

	elapsed := now - lastRefill
	if elapsed < 0 {
		elapsed = 0
	}
	tokens = math.Min(capacity, tokens+elapsed*refillRate)

	var allowed int64
	var retryAfterMs int64
	var resetAt float64

	if tokens >= cost {
		allowed = 1
		tokens -= cost
		resetAt = now + (capacity-tokens)/refillRate
	} else {
		deficit := cost - tokens
		retryAfterMs = int64(math.Ceil((deficit / refillRate) * 1000))
		resetAt = now + deficit/refillRate
	}

	m.hashes[key] = map[string]string{
		"tokens":      formatFloat(tokens),
		"last_refill": formatFloat(now),
	}
	m.expireAt[key] = m.now().Add(time.Duration(window*2) * time.Second)

	return []interface{}{allowed, int64(math.Floor(tokens)), retryAfterMs, resetAt}, nil
}

func (m *MemoryStore) evalFixedWindow(keys []string, args []interface{}) (interface{}, error) {
	prefix := keys[0]
	rate := toFloat(args[0])
	window := toFloat(args[1])
	cost := toFloat(args[2])
	now := float64(m.now().UnixNano()) / 1e9

	w := math.Floor(now / window)
	key := fmt.Sprintf("%s%d", prefix, int64(w))

	n := parseFloat(m.strings[key].value) + cost
	m.strings[key] = stringEntry{value: formatFloat(n)}
	if _, hasTTL := m.expireAt[key]; !hasTTL {
		m.expireAt[key] = m.now().Add(time.Duration(window) * time.Second)
	}

	var allowed int64
	var remaining int64
	var retryAfterMs int64

	if n <= rate {
		allowed = 1
		remaining = int64(rate - n)
	} else {
		n -= cost
		m.strings[key] = stringEntry{value: formatFloat(n)}
		remaining = int64(math.Max(0, rate-n))
		retryAfterMs = int64(math.Ceil((window*(w+1) - now) * 1000))
	}

	resetAt := window * (w + 1)
	return []interface{}{allowed, remaining, retryAfterMs, resetAt}, nil
}

func (m *MemoryStore) evalSlidingWindow(keys []string, args []interface{}) (interface{}, error) {
	key := keys[0]
	rate := toFloat(args[0])
	window := toFloat(args[1])
	cost := toFloat(args[2])
	now := float64(m.now().UnixNano()) / 1e9
	cutoff := now - window

	entries := m.zsets[key]
	trimmed := entries[:0:0]
	for _, e := range entries {
		if e.Score > cutoff {
			trimmed = append(trimmed, e)
		}
	}
	entries = trimmed
	used := float64(len(entries))

	var allowed int64
	var remaining int64
	var retryAfterMs int64
	resetAt := now + window

	if used+cost <= rate {
		allowed = 1
		for i := 0; i < int(cost); i++ {
			entries = append(entries, ZEntry{Member: fmt.Sprintf("%f:%d:%d", now, i, m.nonce()), Score: now})
		}
		remaining = int64(rate - (used + cost))
	} else {
		remaining = int64(math.Max(0, rate-used))
		if len(entries) > 0 {
			oldest := entries[0].Score
			for _, e := range entries {
				if e.Score < oldest {
					oldest = e.Score
				}
			}
			retryAfterMs = int64(math.Ceil((oldest + window - now) * 1000))
			resetAt = oldest + window
		} else {
			retryAfterMs = int64(math.Ceil((window / rate) * 1000))
		}
	}

	m.zsets[key] = entries
	m.expireAt[key] = m.now().Add(time.Duration(window*2) * time.Second)

	return []interface{}{allowed, remaining, retryAfterMs, resetAt}, nil
}

var nonceCounter int64

func (m *MemoryStore) nonce() int64 {
	nonceCounter++
	return nonceCounter
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.strings[key].value, nil
}

func (m *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strings[key] = stringEntry{value: value}
	if ttl > 0 {
		m.expireAt[key] = m.now().Add(ttl)
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.strings, key)
	delete(m.hashes, key)
	delete(m.zsets, key)
	delete(m.expireAt, key)
	return nil
}

func (m *MemoryStore) ZRangeByScore(ctx context.Context, key string, min, max float64) ([]ZEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ZEntry
	for _, e := range m.zsets[key] {
		if e.Score >= min && e.Score <= max {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MemoryStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.zsets[key] = append(m.zsets[key], ZEntry{Member: member, Score: score})
	return nil
}

func (m *MemoryStore) ZRemRangeByScore(ctx context.Context, key string, min, max float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []ZEntry
	for _, e := range m.zsets[key] {
		if e.Score < min || e.Score > max {
			kept = append(kept, e)
		}
	}
	m.zsets[key] = kept
	return nil
}

func (m *MemoryStore) ZCard(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.zsets[key])), nil
}

func (m *MemoryStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expireAt[key] = m.now().Add(ttl)
	return nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func toFloat(v interface{}) float64 {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case float64:
		return t
	default:
		return 0
	}
}

func parseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	var f float64
	_, err := fmt.Sscanf(s, "%g", &f)
	if err != nil {
		return 0
	}
	return f
}

func formatFloat(f float64) string {
	return fmt.Sprintf("%g", f)
}
