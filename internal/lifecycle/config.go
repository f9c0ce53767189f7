package lifecycle

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/ianferguson/leasekeeper/internal/clock"
	"github.com/ianferguson/leasekeeper/internal/svcfields"

	"pkt.systems/pslog"
)

// Login obtains a fresh lease. Implementations must honor ctx cancellation
// where the underlying transport allows it.
type Login interface {
	Login(ctx context.Context) (AuthResult, error)
}

// Renew extends an existing lease described by current. Implementations
// must preserve or update Renewable and LeaseDuration to reflect the
// server's response.
type Renew interface {
	Renew(ctx context.Context, current AuthResult) (AuthResult, error)
}

// LoginFunc adapts a plain function to the Login interface.
type LoginFunc func(ctx context.Context) (AuthResult, error)

// Login implements Login.
func (f LoginFunc) Login(ctx context.Context) (AuthResult, error) { return f(ctx) }

// RenewFunc adapts a plain function to the Renew interface.
type RenewFunc func(ctx context.Context, current AuthResult) (AuthResult, error)

// Renew implements Renew.
func (f RenewFunc) Renew(ctx context.Context, current AuthResult) (AuthResult, error) {
	return f(ctx, current)
}

// UsageError is raised eagerly at construction time when the runner is
// misconfigured. The runner never starts when this is returned.
type UsageError struct {
	Field  string
	Detail string
}

func (e *UsageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("leasekeeper: invalid configuration for %s: %s", e.Field, e.Detail)
}

// RunnerConfig collects the dependencies a Runner needs to operate. Login
// and Renew are required; everything else has a documented default matching
// the scheduler and backoff constants described by the lifecycle's design.
type RunnerConfig struct {
	Login Login
	Renew Renew

	// InitialToken, when non-nil, is stored into the TokenCell before the
	// runner starts and causes S0 to transition directly to S2, skipping
	// the first Login call.
	InitialToken *AuthResult

	Clock  clock.Clock
	Random RandomSource
	Logger pslog.Logger

	// RunnerID identifies this runner instance in logs, useful when an
	// application runs more than one lifecycle manager side by side (e.g.
	// against two different Vault roles). Defaults to a random UUID.
	RunnerID string
}

func (c RunnerConfig) validate() error {
	if c.Login == nil {
		return &UsageError{Field: "Login", Detail: "must not be nil"}
	}
	if c.Renew == nil {
		return &UsageError{Field: "Renew", Detail: "must not be nil"}
	}
	return nil
}

func (c RunnerConfig) withDefaults() RunnerConfig {
	if c.Clock == nil {
		c.Clock = clock.Real{}
	}
	if c.Random == nil {
		c.Random = NewMathRandom(c.Clock.Now().UnixNano())
	}
	if c.Logger == nil {
		c.Logger = pslog.NoopLogger()
	}
	if c.RunnerID == "" {
		c.RunnerID = uuid.NewString()
	}
	c.Logger = svcfields.WithSubsystem(c.Logger, svcfields.Subsystem("leasekeeper", "lifecycle")).With("runner_id", c.RunnerID)
	return c
}
