package chat

import (
	"testing"
	"time"
)

func TestRateLimiterExhaustsBurst(t *testing.T) {
	rl := newRateLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		if !rl.allow() {
			t.Fatalf("frame %d within burst must pass", i)
		}
	}
	if rl.allow() {
		t.Error("frame beyond burst must be throttled")
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl := newRateLimiter(2, 20*time.Millisecond)

	rl.allow()
	rl.allow()
	if rl.allow() {
		t.Fatal("bucket should be empty")
	}

	time.Sleep(30 * time.Millisecond)
	if !rl.allow() {
		t.Error("bucket must refill over time")
	}
}

func TestRateLimiterClampsInvalidParams(t *testing.T) {
	rl := newRateLimiter(0, 0)
	if !rl.allow() {
		t.Error("clamped limiter must still admit one frame")
	}
}
