package breaker

import (
	"errors"
	"testing"
	"time"
)

var errStore = errors.New("store unavailable")

func TestBreaker_TripsAfterThreshold(t *testing.T) {
	b := New(Options{FailureThreshold: 3, CooldownPeriod: time.Minute})

	for i := 0; i < 3; i++ {
		err := b.Call(func() error { return errStore })
		if err != errStore {
			t.Fatalf("call %d: expected store error, got %v", i, err)
		}
	}

	// The 4th call must short-circuit without invoking the thunk.
	called := false
	err := b.Call(func() error { called = true; return nil })
	if _, ok := err.(ErrOpen); !ok {
		t.Fatalf("expected ErrOpen, got %v", err)
	}
	if called {
		t.Fatal("breaker invoked the thunk while OPEN")
	}

	state, failures, _ := b.Status()
	if state != Open {
		t.Errorf("expected state Open, got %v", state)
	}
	if failures != 3 {
		t.Errorf("expected failure_count 3, got %d", failures)
	}
}

func TestBreaker_RecoversAfterCooldown(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }

	b := New(Options{FailureThreshold: 1, CooldownPeriod: 10 * time.Second, Now: clock})

	if err := b.Call(func() error { return errStore }); err != errStore {
		t.Fatalf("expected trip, got %v", err)
	}
	if state, _, _ := b.Status(); state != Open {
		t.Fatalf("expected Open, got %v", state)
	}

	// Before cooldown elapses, no call reaches the store.
	if err := b.Call(func() error { t.Fatal("should not be invoked"); return nil }); err == nil {
		t.Fatal("expected ErrOpen before cooldown elapses")
	}

	now = now.Add(11 * time.Second)

	// First call after cooldown is the probe; it succeeds and closes the breaker.
	if err := b.Call(func() error { return nil }); err != nil {
		t.Fatalf("expected probe to succeed, got %v", err)
	}

	state, failures, _ := b.Status()
	if state != Closed {
		t.Errorf("expected Closed after successful probe, got %v", state)
	}
	if failures != 0 {
		t.Errorf("expected failure_count reset to 0, got %d", failures)
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	b := New(Options{FailureThreshold: 1, CooldownPeriod: 5 * time.Second, Now: clock})

	_ = b.Call(func() error { return errStore })
	now = now.Add(6 * time.Second)

	if err := b.Call(func() error { return errStore }); err != errStore {
		t.Fatalf("expected probe failure to propagate, got %v", err)
	}

	state, _, retry := b.Status()
	if state != Open {
		t.Fatalf("expected Open after failed probe, got %v", state)
	}
	if retry <= 0 {
		t.Errorf("expected positive seconds_until_retry, got %v", retry)
	}
}

func TestBreaker_OnlyOneProbeInFlight(t *testing.T) {
	now := time.Now()
	clock := func() time.Time { return now }
	b := New(Options{FailureThreshold: 1, CooldownPeriod: time.Second, Now: clock})

	_ = b.Call(func() error { return errStore })
	now = now.Add(2 * time.Second)

	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = b.Call(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	// A second call arriving while the probe is in flight must see ErrOpen.
	if err := b.Call(func() error { t.Fatal("second probe must not run"); return nil }); err == nil {
		t.Fatal("expected ErrOpen while probe is in flight")
	}
	close(release)
}

func TestBreaker_StateChangeNotifications(t *testing.T) {
	var transitions [][2]State
	b := New(Options{
		FailureThreshold: 1,
		CooldownPeriod:   time.Millisecond,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, [2]State{from, to})
		},
	})

	_ = b.Call(func() error { return errStore })
	time.Sleep(2 * time.Millisecond)
	_ = b.Call(func() error { return nil })

	if len(transitions) != 3 {
		t.Fatalf("expected 3 transitions, got %d: %v", len(transitions), transitions)
	}
	if transitions[0] != [2]State{Closed, Open} {
		t.Errorf("expected Closed->Open first, got %v", transitions[0])
	}
	if transitions[1] != [2]State{Open, HalfOpen} {
		t.Errorf("expected Open->HalfOpen second, got %v", transitions[1])
	}
	if transitions[2] != [2]State{HalfOpen, Closed} {
		t.Errorf("expected HalfOpen->Closed third, got %v", transitions[2])
	}
}
