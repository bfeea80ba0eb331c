package rules

import (
	"testing"
	"time"
)

func TestResolver_Precedence(t *testing.T) {
	def := Rule{Rate: 100, Window: 60 * time.Second}
	byClient := map[string]Rule{
		"client_a": {
			Rate:   100,
			Window: 60 * time.Second,
			Endpoints: map[string]EndpointRule{
				"login": {Rate: 20, Window: 60 * time.Second},
			},
		},
	}
	r := NewResolver(def, byClient)

	t.Run("endpoint override wins", func(t *testing.T) {
		got := r.Resolve("client_a", "login")
		if got.Rate != 20 {
			t.Errorf("expected rate 20, got %d", got.Rate)
		}
	})

	t.Run("client rule wins over default", func(t *testing.T) {
		got := r.Resolve("client_a", "other")
		if got.Rate != 100 {
			t.Errorf("expected rate 100, got %d", got.Rate)
		}
	})

	t.Run("unknown client falls back to default", func(t *testing.T) {
		got := r.Resolve("client_z", "login")
		if got.Rate != def.Rate || got.Window != def.Window {
			t.Errorf("expected default rule, got %+v", got)
		}
	})
}

func TestResolver_ReplaceIsAtomic(t *testing.T) {
	r := NewResolver(Rule{Rate: 1, Window: time.Second}, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			r.Replace(Rule{Rate: int64(i + 1), Window: time.Second}, nil)
		}
		close(done)
	}()

	for i := 0; i < 1000; i++ {
		got := r.Resolve("anyone", "global")
		if got.Rate < 1 {
			t.Fatalf("saw invalid rate %d mid-swap", got.Rate)
		}
	}
	<-done
}
