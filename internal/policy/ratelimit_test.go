package policy

import (
	"context"
	"testing"
	"time"
)

func TestHostLimiterSpacesSameHost(t *testing.T) {
	t.Parallel()

	limiter := NewHostLimiter(40 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for range 3 {
		if err := limiter.Wait(ctx, "docs.example.com"); err != nil {
			t.Fatalf("Wait error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 70*time.Millisecond {
		t.Errorf("three requests to one host took %v, want at least ~80ms", elapsed)
	}
}

func TestHostLimiterIndependentHosts(t *testing.T) {
	t.Parallel()

	limiter := NewHostLimiter(time.Second)
	ctx := context.Background()

	start := time.Now()
	for _, host := range []string{"a.example.com", "b.example.com", "c.example.com"} {
		if err := limiter.Wait(ctx, host); err != nil {
			t.Fatalf("Wait error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("first requests to different hosts took %v, want no waiting", elapsed)
	}
}

func TestHostLimiterHostIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	limiter := NewHostLimiter(time.Hour)
	ctx := context.Background()
	if err := limiter.Wait(ctx, "Docs.Example.com"); err != nil {
		t.Fatalf("Wait error: %v", err)
	}

	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(cctx, "docs.example.com"); err == nil {
		t.Error("expected the second request to the same host to wait past the deadline")
	}
}

func TestHostLimiterZeroDelay(t *testing.T) {
	t.Parallel()

	limiter := NewHostLimiter(0)
	ctx := context.Background()

	start := time.Now()
	for range 100 {
		if err := limiter.Wait(ctx, "docs.example.com"); err != nil {
			t.Fatalf("Wait error: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("zero delay limiter waited %v", elapsed)
	}
}

func TestHostLimiterCancelled(t *testing.T) {
	t.Parallel()

	limiter := NewHostLimiter(time.Hour)
	if err := limiter.Wait(context.Background(), "docs.example.com"); err != nil {
		t.Fatalf("Wait error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limiter.Wait(ctx, "docs.example.com"); err == nil {
		t.Error("expected error for cancelled context")
	}
}
