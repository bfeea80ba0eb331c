package algorithm

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/axiomwire/ratelimitd/pkg/rules"
	"github.com/axiomwire/ratelimitd/pkg/store"
)

//go:embed sliding_window.lua
var slidingWindowScript string

// SlidingWindow implements the sliding-window-log admission algorithm
// (spec.md section 4.4.3): an ordered set of request timestamps, trimmed on
// every call regardless of outcome.
type SlidingWindow struct {
	store store.Store
}

func NewSlidingWindow(ctx context.Context, s store.Store) (*SlidingWindow, error) {
	if err := s.Register(ctx, store.SlidingWindowScript, slidingWindowScript); err != nil {
		return nil, err
	}
	return &SlidingWindow{store: s}, nil
}

func (sw *SlidingWindow) Check(ctx context.Context, clientID, limitKey string, cost int64, rule rules.Rule) (Decision, error) {
	key := fmt.Sprintf("rl:sw:%s:%s", clientID, limitKey)
	result, err := sw.store.EvalScript(ctx, store.SlidingWindowScript, []string{key},
		rule.Rate, rule.WindowSeconds(), cost)
	if err != nil {
		return Decision{}, err
	}
	return decodeDecision(result)
}
