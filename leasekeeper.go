package leasekeeper

import (
	"github.com/ianferguson/leasekeeper/internal/clock"
	"github.com/ianferguson/leasekeeper/internal/lifecycle"

	"pkt.systems/pslog"
)

// AuthResult is the response to a successful Login or Renew call: a bearer
// token, the lease duration the server granted in seconds, and whether the
// lease can be renewed at all.
type AuthResult = lifecycle.AuthResult

// Login obtains a fresh lease. See lifecycle.Login for the contract.
type Login = lifecycle.Login

// Renew extends an existing lease. See lifecycle.Renew for the contract.
type Renew = lifecycle.Renew

// LoginFunc adapts a plain function to the Login interface.
type LoginFunc = lifecycle.LoginFunc

// RenewFunc adapts a plain function to the Renew interface.
type RenewFunc = lifecycle.RenewFunc

// UsageError is returned by Start when Config is missing a required
// collaborator. The runner never starts when this is returned.
type UsageError = lifecycle.UsageError

// Clock abstracts wall-clock time; injectable for deterministic tests.
type Clock = clock.Clock

// RandomSource supplies the jitter used by the grace period and backoff
// calculations; injectable for deterministic tests.
type RandomSource = lifecycle.RandomSource

// Config collects the dependencies a background runner needs.
type Config struct {
	// Login obtains a fresh lease. Required.
	Login Login
	// Renew extends an existing lease. Required.
	Renew Renew

	// InitialToken, when set, is published before the runner starts and
	// lets the caller surface a login error synchronously by performing
	// that first Login itself, ahead of calling Start.
	InitialToken *AuthResult

	// Clock overrides the wall-clock source. Defaults to the real clock.
	Clock Clock
	// Random overrides the jitter source. Defaults to a source seeded
	// from the clock.
	Random RandomSource
	// Logger receives structured log lines from the runner. Defaults to a
	// no-op logger.
	Logger pslog.Logger

	// RunnerID identifies this runner instance in logs and traces. Defaults
	// to a random UUID; set it explicitly when running more than one
	// Handle in the same process so their log lines can be told apart.
	RunnerID string
}

func (c Config) toRunnerConfig() lifecycle.RunnerConfig {
	return lifecycle.RunnerConfig{
		Login:        c.Login,
		Renew:        c.Renew,
		InitialToken: c.InitialToken,
		Clock:        c.Clock,
		Random:       c.Random,
		Logger:       c.Logger,
		RunnerID:     c.RunnerID,
	}
}
