// Package ratelimit orchestrates a single admission check: resolve the
// applicable rule, invoke the configured algorithm through the circuit
// breaker, and apply fail-mode policy on store failure (spec.md section 4.5).
package ratelimit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/axiomwire/ratelimitd/pkg/algorithm"
	"github.com/axiomwire/ratelimitd/pkg/breaker"
	"github.com/axiomwire/ratelimitd/pkg/correlation"
	"github.com/axiomwire/ratelimitd/pkg/metrics"
	"github.com/axiomwire/ratelimitd/pkg/rules"
)

const defaultLimitKey = "global"
const defaultStoreTimeout = 100 * time.Millisecond

// Checker is the Check Coordinator: the single entry point application code
// calls to admit or reject a request.
type Checker struct {
	algorithm     algorithm.Algorithm
	algorithmName string
	breaker       *breaker.Breaker
	resolver      *rules.Resolver

	failMode     FailMode
	recorder     metrics.Recorder
	logger       *zap.Logger
	now          func() time.Time
	storeTimeout time.Duration
}

// NewChecker builds a Checker. algorithmName is a short label (e.g.
// "token_bucket") used to tag telemetry.
func NewChecker(algo algorithm.Algorithm, algorithmName string, br *breaker.Breaker, resolver *rules.Resolver, opts ...Option) *Checker {
	c := &Checker{
		algorithm:     algo,
		algorithmName: algorithmName,
		breaker:       br,
		resolver:      resolver,
		failMode:      FailOpen,
		recorder:      metrics.NoOpRecorder{},
		logger:        zap.NewNop(),
		now:           time.Now,
		storeTimeout:  defaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check resolves req against the active rules and returns an admission
// decision, or an *Error describing why it could not.
func (c *Checker) Check(ctx context.Context, req CheckRequest) (CheckResponse, error) {
	if req.ClientID == "" {
		return CheckResponse{}, newError(CodeBadRequest, "client_id is required", nil)
	}
	if req.Cost <= 0 {
		return CheckResponse{}, newError(CodeBadRequest, "cost must be positive", nil)
	}

	limitKey := req.LimitKey
	if limitKey == "" {
		limitKey = defaultLimitKey
	}

	rule := c.resolver.Resolve(req.ClientID, limitKey)

	if req.Cost > rule.Rate {
		return CheckResponse{}, newError(CodeBadRequest, "cost exceeds the rule's rate and can never be admitted", nil)
	}

	start := c.now()
	var decision algorithm.Decision
	callErr := c.breaker.Call(func() error {
		storeCtx, cancel := context.WithTimeout(ctx, c.storeTimeout)
		defer cancel()
		d, err := c.algorithm.Check(storeCtx, req.ClientID, limitKey, req.Cost, rule)
		if err != nil {
			return err
		}
		decision = d
		return nil
	})
	c.safeRecordDuration(c.algorithmName, c.now().Sub(start).Seconds())

	if callErr != nil {
		return c.handleFailure(ctx, req, rule, callErr)
	}

	resp := CheckResponse{
		Allowed:      decision.Allowed,
		Remaining:    decision.Remaining,
		RetryAfterMs: decision.RetryAfterMs,
		Limit:        rule.Rate,
		Window:       rule.WindowSeconds(),
		ResetAt:      decision.ResetAt,
	}

	outcome := "blocked"
	if resp.Allowed {
		outcome = "allowed"
	}
	c.safeRecordResult(req.ClientID, c.algorithmName, outcome)

	return resp, nil
}

// handleFailure applies fail-mode policy (spec.md section 4.5 step 4): any
// store/breaker failure is either synthesized into an allow or surfaced as
// ServiceUnavailable. Algorithms never catch these errors themselves; this
// is the sole catch point.
func (c *Checker) handleFailure(ctx context.Context, req CheckRequest, rule rules.Rule, callErr error) (CheckResponse, error) {
	if _, isOpen := callErr.(breaker.ErrOpen); !isOpen {
		c.safeRecordStoreError("check")
	}
	c.logger.Warn("rate limit check failed, applying fail-mode policy",
		zap.String("correlation_id", correlation.FromContext(ctx)),
		zap.String("client_id", req.ClientID),
		zap.String("algorithm", c.algorithmName),
		zap.Error(callErr),
		zap.String("fail_mode", string(c.failMode)),
	)

	if c.failMode == FailClosed {
		return CheckResponse{}, newError(CodeServiceUnavailable, "rate limiter temporarily unavailable", callErr)
	}

	limitKey := req.LimitKey
	if limitKey == "" {
		limitKey = defaultLimitKey
	}
	return CheckResponse{
		Allowed:      true,
		Remaining:    rule.Rate,
		RetryAfterMs: 0,
		Limit:        rule.Rate,
		Window:       rule.WindowSeconds(),
		ResetAt:      float64(c.now().Unix()) + float64(rule.WindowSeconds()),
	}, nil
}

// Telemetry hooks must never throw (spec.md section 7); recover guards
// against a misbehaving Recorder implementation taking down a request.
func (c *Checker) safeRecordResult(clientID, algorithmName, outcome string) {
	defer c.recoverTelemetry("CheckResult")
	c.recorder.CheckResult(clientID, algorithmName, outcome)
}

func (c *Checker) safeRecordDuration(algorithmName string, seconds float64) {
	defer c.recoverTelemetry("CheckDuration")
	c.recorder.CheckDuration(algorithmName, seconds)
}

func (c *Checker) safeRecordStoreError(op string) {
	defer c.recoverTelemetry("StoreError")
	c.recorder.StoreError(op)
}

func (c *Checker) recoverTelemetry(hook string) {
	if r := recover(); r != nil {
		c.logger.Error("telemetry hook panicked, discarding", zap.String("hook", hook), zap.Any("recover", r))
	}
}
