package lifecycle

import "time"

const (
	// graceFactor is the lower bound of the grace window as a fraction of
	// the lease TTL; the upper bound is double this.
	graceFactor = 0.10
	// renewWaitProportion is the fraction of the remaining time-to-deadline
	// the scheduler sleeps before waking to renew again.
	renewWaitProportion = 2.0 / 3.0
)

// RenewalScheduler derives grace windows, renewal deadlines, and sleep
// durations from a lease's total TTL. It is a pure value type: every method
// is a deterministic function of its inputs and an injected RandomSource, so
// the same TTL and the same random draw always produce the same schedule.
type RenewalScheduler struct {
	Random RandomSource
}

// NewRenewalScheduler returns a scheduler drawing jitter from random. A nil
// random defaults to a zero-valued FixedRandom, which always yields the
// minimum of the grace window.
func NewRenewalScheduler(random RandomSource) RenewalScheduler {
	if random == nil {
		random = FixedRandom{Value: 0}
	}
	return RenewalScheduler{Random: random}
}

// Grace returns a duration uniformly distributed in [0.10*ttl, 0.20*ttl).
func (s RenewalScheduler) Grace(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return 0
	}
	lower := time.Duration(float64(ttl) * graceFactor)
	span := lower // upper bound is 2x lower, so the span above lower is also lower
	return lower + time.Duration(float64(span)*s.Random.Float64())
}

// RenewalDeadline returns the latest instant at which a renewal may still be
// issued: expiration minus the grace window.
func (s RenewalScheduler) RenewalDeadline(expiration time.Time, grace time.Duration) time.Time {
	return expiration.Add(-grace)
}

// SleepDuration computes how long to sleep before the next renewal attempt,
// given how much time remains until the renewal deadline. It never returns a
// negative duration.
func (s RenewalScheduler) SleepDuration(remaining, grace time.Duration) time.Duration {
	if remaining <= 0 {
		return 0
	}
	sleep := time.Duration(float64(remaining)*renewWaitProportion) + grace/4
	if sleep < 0 {
		return 0
	}
	return sleep
}

// ShouldExitRenewLoop reports whether the renew loop should give up on
// scheduling another renewal and fall back to a fresh login: true when
// waking up after sleep would land at or past the renewal deadline.
func (s RenewalScheduler) ShouldExitRenewLoop(now time.Time, sleep time.Duration, deadline time.Time) bool {
	return !now.Add(sleep).Before(deadline)
}
