// Package breaker implements a three-state circuit breaker guarding calls to
// an unreliable backing store (spec.md section 4.2).
package breaker

import (
	"sync"
	"time"
)

// State is one of the three breaker states.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// ErrOpen is returned by Call when the breaker refuses to invoke the thunk
// because it is OPEN (or a HALF_OPEN probe is already in flight).
type ErrOpen struct{}

func (ErrOpen) Error() string { return "circuit breaker is open" }

// StateChangeFunc is notified on every transition, after the mutex has been
// released. It must not block or call back into the breaker.
type StateChangeFunc func(from, to State)

// Options configures breaker thresholds. Zero values take the defaults from
// spec.md section 4.2.
type Options struct {
	FailureThreshold int
	CooldownPeriod   time.Duration
	OnStateChange    StateChangeFunc
	Now              func() time.Time
}

const (
	defaultFailureThreshold = 5
	defaultCooldownPeriod   = 60 * time.Second
)

// Breaker is a mutex-guarded three-state circuit breaker. All operations are
// safe for concurrent use; critical sections are short (no network call is
// ever made while the mutex is held).
type Breaker struct {
	mu sync.Mutex

	state            State
	failureThreshold int
	cooldown         time.Duration
	consecutiveFails int
	openedAt         time.Time
	probeInFlight    bool
	onStateChange    StateChangeFunc
	now              func() time.Time
}

// New constructs a Breaker in the CLOSED state.
func New(opts Options) *Breaker {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = defaultFailureThreshold
	}
	if opts.CooldownPeriod <= 0 {
		opts.CooldownPeriod = defaultCooldownPeriod
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Breaker{
		state:            Closed,
		failureThreshold: opts.FailureThreshold,
		cooldown:         opts.CooldownPeriod,
		onStateChange:    opts.OnStateChange,
		now:              opts.Now,
	}
}

// Status reports the observable surface from spec.md section 4.2:
// (state, failure_count, seconds_until_retry).
func (b *Breaker) Status() (state State, failureCount int, secondsUntilRetry float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	retry := 0.0
	if b.state == Open {
		remaining := b.cooldown - b.now().Sub(b.openedAt)
		if remaining > 0 {
			retry = remaining.Seconds()
		}
	}
	return b.state, b.consecutiveFails, retry
}

// admit decides, under lock, whether a call may proceed, transitioning OPEN
// -> HALF_OPEN when the cooldown has elapsed.
func (b *Breaker) admit() (ok bool, from, to State, changed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Closed:
		return true, Closed, Closed, false
	case Open:
		if b.now().Sub(b.openedAt) >= b.cooldown {
			from := b.state
			b.state = HalfOpen
			b.probeInFlight = true
			return true, from, HalfOpen, true
		}
		return false, Open, Open, false
	case HalfOpen:
		if b.probeInFlight {
			return false, HalfOpen, HalfOpen, false
		}
		b.probeInFlight = true
		return true, HalfOpen, HalfOpen, false
	default:
		return true, b.state, b.state, false
	}
}

// Call executes f if the breaker admits the call, otherwise returns ErrOpen
// immediately without invoking f.
func (b *Breaker) Call(f func() error) error {
	ok, from, to, changed := b.admit()
	if changed {
		b.notify(from, to)
	}
	if !ok {
		return ErrOpen{}
	}
	err := f()
	if err != nil {
		if from, to, changed := b.recordFailure(); changed {
			b.notify(from, to)
		}
		return err
	}
	if from, to, changed := b.recordSuccess(); changed {
		b.notify(from, to)
	}
	return nil
}

func (b *Breaker) recordSuccess() (from, to State, changed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.probeInFlight = false
		b.consecutiveFails = 0
		from := b.state
		b.state = Closed
		return from, Closed, true
	case Closed:
		b.consecutiveFails = 0
	}
	return b.state, b.state, false
}

func (b *Breaker) recordFailure() (from, to State, changed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case HalfOpen:
		b.probeInFlight = false
		b.openedAt = b.now()
		from := b.state
		b.state = Open
		return from, Open, true
	case Closed:
		b.consecutiveFails++
		if b.consecutiveFails >= b.failureThreshold {
			b.openedAt = b.now()
			from := b.state
			b.state = Open
			return from, Open, true
		}
	}
	return b.state, b.state, false
}

func (b *Breaker) notify(from, to State) {
	if b.onStateChange != nil {
		b.onStateChange(from, to)
	}
}
