package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ianferguson/leasekeeper/internal/clock"

	"pkt.systems/pslog"
)

// State is one of the five states the Runner's loop can occupy.
type State int32

const (
	StateStarting State = iota
	StateAcquiring
	StateRenewLoop
	StateBackoff
	StateTerminated
)

// String implements fmt.Stringer, giving each state a readable name.
func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateAcquiring:
		return "acquiring"
	case StateRenewLoop:
		return "renew_loop"
	case StateBackoff:
		return "backoff"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Runner is the top-level credential-lifecycle state machine. It owns a
// TokenCell, cycling between acquiring a fresh lease via Login, renewing it
// on a jittered schedule, and falling back to backoff-gated re-acquisition
// whenever the renew loop can no longer fit another attempt inside the
// lease's grace window. Run drives the whole cycle from a single goroutine;
// every suspension happens inside Sleeper.Sleep, which is the only point a
// cancelled context can interrupt the runner.
type Runner struct {
	id     string
	login  Login
	renew  Renew
	clock  clock.Clock
	sleep  clock.Sleeper
	random RandomSource
	logger pslog.Logger

	cell      *TokenCell
	scheduler RenewalScheduler
	metrics   *runnerMetrics
	tracer    trace.Tracer

	state atomic.Int32
}

// NewRunner validates cfg and constructs a Runner. If cfg.InitialToken is
// set, it is stored into the TokenCell before Run is ever called, so the
// runner enters S2 (RenewLoop) directly without an initial Login.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	r := &Runner{
		id:        cfg.RunnerID,
		login:     cfg.Login,
		renew:     cfg.Renew,
		clock:     cfg.Clock,
		sleep:     clock.NewSleeper(cfg.Clock),
		random:    cfg.Random,
		logger:    cfg.Logger,
		cell:      NewTokenCell(),
		scheduler: NewRenewalScheduler(cfg.Random),
		tracer:    otel.Tracer("github.com/ianferguson/leasekeeper"),
	}
	r.metrics = newRunnerMetrics(cfg.Logger, r)
	r.setState(StateStarting)

	if cfg.InitialToken != nil {
		now := r.clock.Now()
		r.cell.Store(NewTokenWithExpiration(now, *cfg.InitialToken))
	}
	return r, nil
}

// Cell exposes the TokenCell backing this runner, for the public facade to
// read from.
func (r *Runner) Cell() *TokenCell {
	return r.cell
}

// ID returns the runner's instance identifier, used to correlate log lines
// and traces when an application runs more than one Runner concurrently.
func (r *Runner) ID() string {
	return r.id
}

// State returns the runner's current state. Safe for concurrent reads.
func (r *Runner) State() State {
	return State(r.state.Load())
}

func (r *Runner) setState(s State) {
	r.state.Store(int32(s))
}

// Run executes the state machine until ctx is cancelled. It returns nil on
// clean cancellation and a non-nil error only if something other than
// cancellation caused the loop to unwind, which under this design never
// happens: the only fatal event is cancellation.
func (r *Runner) Run(ctx context.Context) error {
	if _, ok := r.cell.Load(); ok {
		r.setState(StateRenewLoop)
	} else {
		r.setState(StateAcquiring)
	}

	backoff := InitialBackoff()

	for {
		switch r.State() {
		case StateAcquiring:
			acquired, err := r.acquire(ctx)
			if err != nil {
				if errors.Is(err, clock.ErrInterrupted) {
					r.setState(StateTerminated)
					return nil
				}
				return fmt.Errorf("leasekeeper: unexpected acquire error: %w", err)
			}
			if acquired {
				backoff = InitialBackoff()
				r.setState(StateRenewLoop)
				continue
			}
			r.setState(StateBackoff)

		case StateBackoff:
			wait := backoff.Jittered(r.random)
			r.metrics.recordSleep(ctx, "backoff")
			if err := r.sleep.Sleep(ctx, wait); err != nil {
				r.setState(StateTerminated)
				return nil
			}
			backoff = backoff.Next()
			r.setState(StateAcquiring)

		case StateRenewLoop:
			interrupted, err := r.renewLoop(ctx)
			if err != nil {
				return fmt.Errorf("leasekeeper: unexpected renew-loop error: %w", err)
			}
			if interrupted {
				r.setState(StateTerminated)
				return nil
			}
			r.setState(StateAcquiring)

		case StateTerminated:
			return nil

		default:
			return fmt.Errorf("leasekeeper: unreachable state %v", r.State())
		}
	}
}

// acquire issues one Login attempt with a pessimistic "now" sample taken
// before the call. It returns acquired=true on success, after storing the
// new token and raising the initialized signal if this is the first store.
func (r *Runner) acquire(ctx context.Context) (acquired bool, err error) {
	ctx, span := r.tracer.Start(ctx, "leasekeeper.login", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("leasekeeper.runner_id", r.id))

	now := r.clock.Now()
	result, loginErr := r.login.Login(ctx)
	if loginErr != nil {
		r.metrics.recordLoginFailure(ctx)
		r.logger.Error("leasekeeper.login.failed", "error", loginErr)
		span.RecordError(loginErr)
		span.SetStatus(codes.Error, "login_failed")
		return false, nil
	}
	twe := NewTokenWithExpiration(now, result)
	r.cell.Store(twe)
	r.metrics.recordTokenCreated(ctx)
	r.logger.Info("leasekeeper.login.succeeded", "expiration", twe.Expiration)
	span.SetAttributes(attribute.Bool("leasekeeper.renewable", result.Renewable))
	span.SetStatus(codes.Ok, "")
	return true, nil
}

// renewLoop runs S2 until the grace window can no longer fit another
// renewal attempt. It returns interrupted=true only when the Sleeper
// reported cancellation, signaling the caller to move straight to S4
// instead of re-acquiring.
func (r *Runner) renewLoop(ctx context.Context) (interrupted bool, err error) {
	twe, ok := r.cell.Load()
	if !ok {
		return false, errors.New("renew loop entered with an empty token cell")
	}
	grace := r.scheduler.Grace(twe.Token.TTL())

	for {
		if twe.Token.Renewable {
			renewCtx, span := r.tracer.Start(ctx, "leasekeeper.renew", trace.WithSpanKind(trace.SpanKindClient))
			sampledBefore := r.clock.Now()
			result, renewErr := r.renew.Renew(renewCtx, twe.Token)
			if renewErr != nil {
				r.metrics.recordRenewFailure(ctx)
				r.logger.Warn("leasekeeper.renew.failed", "error", renewErr)
				span.RecordError(renewErr)
				span.SetStatus(codes.Error, "renew_failed")
			} else {
				twe = NewTokenWithExpiration(sampledBefore, result)
				r.cell.Store(twe)
				grace = r.scheduler.Grace(twe.Token.TTL())
				r.logger.Info("leasekeeper.renew.succeeded", "expiration", twe.Expiration)
				span.SetStatus(codes.Ok, "")
			}
			span.End()
		}

		now := r.clock.Now()
		deadline := r.scheduler.RenewalDeadline(twe.Expiration, grace)
		remaining := deadline.Sub(now)
		if remaining <= 0 {
			return false, nil
		}
		sleepDuration := r.scheduler.SleepDuration(remaining, grace)
		if r.scheduler.ShouldExitRenewLoop(now, sleepDuration, deadline) {
			return false, nil
		}

		r.metrics.recordSleep(ctx, "renew")
		if sleepErr := r.sleep.Sleep(ctx, sleepDuration); sleepErr != nil {
			if errors.Is(sleepErr, clock.ErrInterrupted) {
				return true, nil
			}
			return false, sleepErr
		}
	}
}
