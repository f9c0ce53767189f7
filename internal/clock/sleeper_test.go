package clock_test

import (
	"context"
	"testing"
	"time"

	"github.com/ianferguson/leasekeeper/internal/clock"
)

func TestClockSleeperReturnsWhenClockAdvances(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(time.Unix(0, 0))
	sleeper := clock.NewSleeper(clk)

	done := make(chan error, 1)
	go func() {
		done <- sleeper.Sleep(context.Background(), 5*time.Second)
	}()

	// Give the goroutine a chance to register its timer before advancing.
	for clk.Pending() == 0 {
		time.Sleep(time.Millisecond)
	}
	clk.Advance(5 * time.Second)

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("sleeper did not return after clock advanced")
	}
}

func TestClockSleeperInterruptedByContext(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(time.Unix(0, 0))
	sleeper := clock.NewSleeper(clk)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- sleeper.Sleep(ctx, time.Hour)
	}()
	cancel()

	select {
	case err := <-done:
		if err != clock.ErrInterrupted {
			t.Fatalf("expected ErrInterrupted, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("sleeper did not return after cancellation")
	}
}

func TestClockSleeperZeroDurationNoOp(t *testing.T) {
	t.Parallel()

	sleeper := clock.NewSleeper(clock.NewManual(time.Unix(0, 0)))
	if err := sleeper.Sleep(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
