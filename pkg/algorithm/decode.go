package algorithm

import (
	"strconv"

	"github.com/pkg/errors"
)

// decodeDecision parses the {allowed, remaining, retry_after_ms, reset_at}
// array every script in this package returns, the way the teacher's
// pkg/limiter/redis.go parses its script's four-element reply.
func decodeDecision(result interface{}) (Decision, error) {
	values, ok := result.([]interface{})
	if !ok || len(values) != 4 {
		return Decision{}, errors.New("ratelimit: unexpected script reply shape")
	}

	return Decision{
		Allowed:      toInt64(values[0]) == 1,
		Remaining:    toInt64(values[1]),
		RetryAfterMs: toInt64(values[2]),
		ResetAt:      toFloat64(values[3]),
	}, nil
}

func toInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case float64:
		return int64(t)
	case string:
		n, _ := strconv.ParseInt(t, 10, 64)
		return n
	default:
		return 0
	}
}

func toFloat64(v interface{}) float64 {
	switch t := v.(type) {
	case int64:
		return float64(t)
	case float64:
		return t
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	default:
		return 0
	}
}
