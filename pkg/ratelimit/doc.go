// Package ratelimit ties together pkg/rules, pkg/breaker, and pkg/algorithm
// into the Check Coordinator: the one call application code makes to decide
// whether to admit a request.
//
// # Usage
//
//	checker := ratelimit.NewChecker(algo, "token_bucket", br, resolver,
//		ratelimit.WithFailMode(ratelimit.FailOpen),
//		ratelimit.WithRecorder(recorder),
//	)
//	resp, err := checker.Check(ctx, ratelimit.CheckRequest{ClientID: "acme", Cost: 1})
//
// # Fail-mode policy
//
// When the backing store or the circuit breaker refuses a call, Checker
// applies the configured FailMode: FailOpen synthesizes an allow using the
// resolved rule's rate as the remaining budget; FailClosed returns an
// *Error with CodeServiceUnavailable. Validation failures (empty client_id,
// non-positive cost, cost exceeding the rule's rate) are rejected before any
// store interaction and are never affected by fail-mode.
package ratelimit
