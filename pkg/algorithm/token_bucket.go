package algorithm

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/axiomwire/ratelimitd/pkg/rules"
	"github.com/axiomwire/ratelimitd/pkg/store"
)

//go:embed token_bucket.lua
var tokenBucketScript string

// TokenBucket implements the token bucket admission algorithm
// (spec.md section 4.4.1) over a pkg/store.Store, grounded on the teacher's
// pkg/limiter/redis.go embedding + EvalSha pattern.
type TokenBucket struct {
	store store.Store
}

// NewTokenBucket registers the token bucket script and returns a ready
// Algorithm. Call once at startup; Register is idempotent to retry against.
func NewTokenBucket(ctx context.Context, s store.Store) (*TokenBucket, error) {
	if err := s.Register(ctx, store.TokenBucketScript, tokenBucketScript); err != nil {
		return nil, err
	}
	return &TokenBucket{store: s}, nil
}

func (t *TokenBucket) Check(ctx context.Context, clientID, limitKey string, cost int64, rule rules.Rule) (Decision, error) {
	key := fmt.Sprintf("rl:tb:%s:%s", clientID, limitKey)
	result, err := t.store.EvalScript(ctx, store.TokenBucketScript, []string{key},
		rule.Rate, rule.WindowSeconds(), cost)
	if err != nil {
		return Decision{}, err
	}
	return decodeDecision(result)
}
