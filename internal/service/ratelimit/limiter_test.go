package ratelimit

import (
	"testing"
	"time"
)

func TestLimiterBurstAndRefill(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(2, 3)
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		if !l.Allow("a") {
			t.Fatalf("request %d within burst must pass", i)
		}
	}
	if l.Allow("a") {
		t.Fatalf("burst exhausted")
	}
	if !l.Allow("b") {
		t.Fatalf("keys are independent")
	}

	now = now.Add(500 * time.Millisecond)
	if !l.Allow("a") {
		t.Fatalf("one token refilled after 0.5s at 2 rps")
	}
	if l.Allow("a") {
		t.Fatalf("only one token refilled")
	}
}

func TestLimiterDisabledAndSweep(t *testing.T) {
	if l := New(0, 1); !l.Allow("x") || !l.Allow("x") {
		t.Fatalf("rps 0 disables limiting")
	}

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(1, 1)
	l.now = func() time.Time { return now }
	l.maxKeys = 2
	l.Allow("a")
	l.Allow("b")
	now = now.Add(2 * time.Second)
	l.Allow("c")
	if l.Len() != 1 {
		t.Fatalf("idle keys must be swept, have %d", l.Len())
	}
}
