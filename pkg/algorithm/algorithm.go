// Package algorithm implements the three interchangeable admission
// algorithms from spec.md section 4.4: token bucket, fixed window, and
// sliding window. Each executes as a single atomic script against a
// pkg/store.Store, so two concurrent checks for the same (client, limit_key)
// on distinct replicas serialize through the backing store rather than
// racing in process memory.
package algorithm

import (
	"context"

	"github.com/axiomwire/ratelimitd/pkg/rules"
)

// Decision is the outcome of a single admission check (spec.md section 3).
type Decision struct {
	Allowed      bool
	Remaining    int64
	RetryAfterMs int64
	ResetAt      float64
}

// Algorithm is the narrow contract every admission strategy implements.
// Errors come from the store's EvalScript (a *store.Error for RedisStore
// backing-store failures) or from decoding an unexpected script reply; they
// are returned as is, and only the Check Coordinator catches them
// (spec.md section 7).
type Algorithm interface {
	Check(ctx context.Context, clientID, limitKey string, cost int64, rule rules.Rule) (Decision, error)
}
