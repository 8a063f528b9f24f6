package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{name: "burst allows initial requests", rps: 1, burst: 3, calls: 3, wantPass: 3},
		{name: "exceeding burst blocks", rps: 1, burst: 2, calls: 5, wantPass: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst)

			passed := 0
			for range tt.calls {
				if rl.Allow("danbooru") {
					passed++
				}
			}

			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestKeyedRateLimiter_Configure(t *testing.T) {
	rl := New(1, 1)
	rl.Configure("gelbooru", Limits{RPS: 1, Burst: 4})

	passed := 0
	for range 6 {
		if rl.Allow("gelbooru") {
			passed++
		}
	}
	if passed != 4 {
		t.Errorf("configured key passed %d, want 4", passed)
	}

	if !rl.Allow("safebooru") {
		t.Error("unconfigured key should use defaults")
	}
	if rl.Allow("safebooru") {
		t.Error("unconfigured key should be limited to default burst")
	}
}

func TestKeyedRateLimiter_Wait(t *testing.T) {
	rl := New(10, 1) // 10 rps, burst of 1

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := rl.Wait(ctx, "danbooru"); err != nil {
		t.Errorf("first Wait() failed: %v", err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Error("first Wait() should be immediate")
	}

	// Second call should wait ~100ms (1/10 rps)
	start = time.Now()
	if err := rl.Wait(ctx, "danbooru"); err != nil {
		t.Errorf("second Wait() failed: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 80*time.Millisecond || elapsed > 250*time.Millisecond {
		t.Errorf("second Wait() took %v, want ~100ms", elapsed)
	}
}

func TestKeyedRateLimiter_WaitContextCancelled(t *testing.T) {
	rl := New(0.1, 1) // 1 request per 10 seconds

	rl.Allow("danbooru")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := rl.Wait(ctx, "danbooru"); err == nil {
		t.Error("Wait() should fail when context canceled")
	}
}

func TestKeyedRateLimiter_Penalize(t *testing.T) {
	rl := New(100, 10)

	rl.Penalize("gelbooru", 80*time.Millisecond)

	if rl.Allow("gelbooru") {
		t.Error("Allow() should refuse a key in cooldown")
	}
	if !rl.Allow("danbooru") {
		t.Error("cooldown must not leak into other keys")
	}

	start := time.Now()
	if err := rl.Wait(context.Background(), "gelbooru"); err != nil {
		t.Fatalf("Wait() failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("Wait() returned after %v, want it to serve the cooldown", elapsed)
	}
	if d := rl.CooldownRemaining("gelbooru"); d != 0 {
		t.Errorf("CooldownRemaining() = %v after cooldown served", d)
	}
}

func TestKeyedRateLimiter_PenalizeKeepsLongerCooldown(t *testing.T) {
	rl := New(100, 10)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return base }

	rl.Penalize("danbooru", 10*time.Second)
	rl.Penalize("danbooru", 2*time.Second)

	if d := rl.CooldownRemaining("danbooru"); d != 10*time.Second {
		t.Errorf("CooldownRemaining() = %v, want 10s", d)
	}
}

func TestKeyedRateLimiter_EvictIdle(t *testing.T) {
	rl := New(100, 10)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }
	rl.EvictIdle(time.Minute)

	rl.Configure("danbooru", Limits{RPS: 1, Burst: 1})
	rl.Allow("10.0.0.1")
	rl.Allow("10.0.0.2")
	rl.Penalize("10.0.0.3", time.Hour)

	clock = clock.Add(30 * time.Second)
	rl.Allow("10.0.0.1")

	clock = clock.Add(45 * time.Second)
	rl.Allow("10.0.0.4")

	if n := rl.Len(); n != 4 {
		t.Errorf("Len() = %d, want 4", n)
	}
	rl.mu.RLock()
	_, stale := rl.limiters["10.0.0.2"]
	rl.mu.RUnlock()
	if stale {
		t.Error("idle key 10.0.0.2 was not evicted")
	}
	if d := rl.CooldownRemaining("10.0.0.3"); d <= 0 {
		t.Errorf("CooldownRemaining(10.0.0.3) = %v, want cooldown kept", d)
	}
}

func TestKeyedRateLimiter_NoEvictionByDefault(t *testing.T) {
	rl := New(100, 10)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	rl.Allow("10.0.0.1")
	clock = clock.Add(24 * time.Hour)
	rl.Allow("10.0.0.2")

	if n := rl.Len(); n != 2 {
		t.Errorf("Len() = %d, want 2", n)
	}
}
