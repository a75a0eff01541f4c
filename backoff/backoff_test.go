package backoff

import (
	"testing"
	"time"
)

func TestConstant_SameDelayEveryAttempt(t *testing.T) {
	b := NewConstant(2 * time.Second)
	for _, attempt := range []int{1, 2, 10} {
		if got := b.Delay(attempt); got != 2*time.Second {
			t.Fatalf("attempt %d: got %s", attempt, got)
		}
	}
}

func TestLinear_GrowsAndCaps(t *testing.T) {
	b := NewLinear(time.Second, 3*time.Second)

	if got := b.Delay(1); got != time.Second {
		t.Fatalf("attempt 1: got %s", got)
	}
	if got := b.Delay(2); got != 2*time.Second {
		t.Fatalf("attempt 2: got %s", got)
	}
	if got := b.Delay(10); got != 3*time.Second {
		t.Fatalf("attempt 10 should cap at max: got %s", got)
	}
}

func TestExponential_DoublesAndCaps(t *testing.T) {
	b := NewExponential(time.Second, 5*time.Second)

	if got := b.Delay(1); got != time.Second {
		t.Fatalf("attempt 1: got %s", got)
	}
	if got := b.Delay(2); got != 2*time.Second {
		t.Fatalf("attempt 2: got %s", got)
	}
	if got := b.Delay(3); got != 4*time.Second {
		t.Fatalf("attempt 3: got %s", got)
	}
	if got := b.Delay(10); got != 5*time.Second {
		t.Fatalf("attempt 10 should cap at max: got %s", got)
	}
}

func TestExponentialWithJitter_WithinBounds(t *testing.T) {
	b := NewExponentialWithJitter(time.Second, 8*time.Second)

	for attempt := 1; attempt <= 5; attempt++ {
		for range 50 {
			d := b.Delay(attempt)
			if d < 0 {
				t.Fatalf("attempt %d: negative delay %s", attempt, d)
			}
			ceiling := time.Duration(1<<uint(attempt-1)) * time.Second
			if ceiling > 8*time.Second {
				ceiling = 8 * time.Second
			}
			if d > ceiling {
				t.Fatalf("attempt %d: delay %s exceeds ceiling %s", attempt, d, ceiling)
			}
		}
	}
}

func TestDefaultStrategy_BoundedByMax(t *testing.T) {
	b := DefaultStrategy()
	for range 100 {
		if d := b.Delay(20); d > 30*time.Second {
			t.Fatalf("delay %s exceeds the 30s cap", d)
		}
	}
}
