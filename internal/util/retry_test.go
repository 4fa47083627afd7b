// ABOUTME: Tests for the exponential backoff helper
// ABOUTME: Verifies growth, the 30 second cap, and the jitter band
package util

import (
	"testing"
	"time"
)

func TestCalculateBackoff_FirstAttemptImmediate(t *testing.T) {
	if got := CalculateBackoff(time.Second, 0); got != 0 {
		t.Errorf("attempt 0 backoff = %v, want 0", got)
	}
	if got := CalculateBackoff(time.Second, -1); got != 0 {
		t.Errorf("negative attempt backoff = %v, want 0", got)
	}
}

func TestCalculateBackoff_JitterBand(t *testing.T) {
	base := 100 * time.Millisecond
	for attempt := 1; attempt <= 4; attempt++ {
		expected := base * time.Duration(1<<uint(attempt))
		for i := 0; i < 50; i++ {
			got := CalculateBackoff(base, attempt)
			if got < expected*3/4 || got > expected*5/4 {
				t.Fatalf("attempt %d backoff %v outside ±25%% of %v", attempt, got, expected)
			}
		}
	}
}

func TestCalculateBackoff_Capped(t *testing.T) {
	for _, attempt := range []int{10, 30, 100} {
		got := CalculateBackoff(2*time.Second, attempt)
		if got > 30*time.Second+30*time.Second/4 {
			t.Errorf("attempt %d backoff = %v, exceeds the cap plus jitter", attempt, got)
		}
		if got <= 0 {
			t.Errorf("attempt %d backoff = %v, want positive", attempt, got)
		}
	}
}
