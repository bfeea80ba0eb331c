package store

// Well-known script IDs registered by pkg/algorithm at startup. Declared
// here (rather than in pkg/algorithm) so MemoryStore, a dependency-free test
// double, can recognize them without importing pkg/algorithm.
const (
	TokenBucketScript   ScriptID = "token_bucket"
	FixedWindowScript   ScriptID = "fixed_window"
	SlidingWindowScript ScriptID = "sliding_window"
)
