package algorithm

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/axiomwire/ratelimitd/pkg/rules"
	"github.com/axiomwire/ratelimitd/pkg/store"
)

//go:embed fixed_window.lua
var fixedWindowScript string

// FixedWindow implements the fixed window admission algorithm
// (spec.md section 4.4.2). Up to 2*rate requests can pass in any adjacent
// window-length span straddling a boundary -- documented in spec.md, not a
// bug fixed here.
type FixedWindow struct {
	store store.Store
}

func NewFixedWindow(ctx context.Context, s store.Store) (*FixedWindow, error) {
	if err := s.Register(ctx, store.FixedWindowScript, fixedWindowScript); err != nil {
		return nil, err
	}
	return &FixedWindow{store: s}, nil
}

func (f *FixedWindow) Check(ctx context.Context, clientID, limitKey string, cost int64, rule rules.Rule) (Decision, error) {
	prefix := fmt.Sprintf("rl:fw:%s:%s:", clientID, limitKey)
	result, err := f.store.EvalScript(ctx, store.FixedWindowScript, []string{prefix},
		rule.Rate, rule.WindowSeconds(), cost)
	if err != nil {
		return Decision{}, err
	}
	return decodeDecision(result)
}
