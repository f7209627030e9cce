package reliability

import (
	"context"
	"testing"
	"time"
)

func TestComputeBackoffWithRandGrowsExponentially(t *testing.T) {
	policy := backoffPolicy{initialMs: 100, maxMs: 30000, factor: 2, jitter: 0}

	d1 := computeBackoffWithRand(policy, 1, 0.5)
	d2 := computeBackoffWithRand(policy, 2, 0.5)
	d3 := computeBackoffWithRand(policy, 3, 0.5)

	if d1 != 100*time.Millisecond {
		t.Errorf("attempt 1 = %v, want 100ms", d1)
	}
	if d2 != 200*time.Millisecond {
		t.Errorf("attempt 2 = %v, want 200ms", d2)
	}
	if d3 != 400*time.Millisecond {
		t.Errorf("attempt 3 = %v, want 400ms", d3)
	}
}

func TestComputeBackoffWithRandClampsToMax(t *testing.T) {
	policy := backoffPolicy{initialMs: 100, maxMs: 500, factor: 10, jitter: 0}
	d := computeBackoffWithRand(policy, 5, 0.5)
	if d != 500*time.Millisecond {
		t.Errorf("got %v, want clamped 500ms", d)
	}
}

func TestComputeBackoffWithRandJitterStaysWithinEnvelope(t *testing.T) {
	policy := backoffPolicy{initialMs: 1000, maxMs: 30000, factor: 2, jitter: 0.2}
	base := 1000.0

	for _, r := range []float64{0, 0.5, 1} {
		d := computeBackoffWithRand(policy, 1, r)
		ms := float64(d.Milliseconds())
		if ms < base*0.8-1 || ms > base*1.2+1 {
			t.Errorf("random=%v: delay %v ms out of ±20%% envelope around %v", r, ms, base)
		}
	}
}

func TestSleepWithContextRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sleepWithContext(ctx, time.Second)
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSleepWithContextZeroDurationReturnsImmediately(t *testing.T) {
	if err := sleepWithContext(context.Background(), 0); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}
