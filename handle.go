package leasekeeper

import (
	"context"
	"time"

	"github.com/ianferguson/leasekeeper/internal/lifecycle"
)

// Reader is a read-only capability returned by Handle.AwaitReady once the
// runner has stored its first lease. Get never blocks and is safe to call
// from any goroutine.
type Reader struct {
	cell *lifecycle.TokenCell
}

// Get returns the most recently published AuthResult.
func (r Reader) Get() AuthResult {
	twe, _ := r.cell.Load()
	return twe.Token
}

// Handle controls a background lifecycle runner started by Start.
type Handle struct {
	runner *lifecycle.Runner
	cancel context.CancelFunc
	done   chan struct{}
}

// Start validates cfg and spawns a lifecycle.Runner on its own goroutine. The
// goroutine runs until ctx is cancelled or Handle.Cancel is called,
// whichever happens first. Start returns a UsageError synchronously if
// Config is missing a required collaborator; it never blocks on Login.
func Start(ctx context.Context, cfg Config) (*Handle, error) {
	runner, err := lifecycle.NewRunner(cfg.toRunnerConfig())
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		runner: runner,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go func() {
		defer close(h.done)
		_ = runner.Run(runCtx)
	}()
	return h, nil
}

// Current returns the currently published AuthResult. Its value is
// undefined before the cell has been initialized; callers should call
// AwaitReady first.
func (h *Handle) Current() AuthResult {
	twe, _ := h.runner.Cell().Load()
	return twe.Token
}

// AwaitReady blocks until the runner's first successful Login or Renew has
// been stored, returning a Reader and true. A zero timeout waits forever;
// a positive timeout bounds the wait and returns ok=false if it elapses
// first.
func (h *Handle) AwaitReady(timeout time.Duration) (Reader, bool) {
	ctx := context.Background()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if !h.runner.Cell().AwaitInitialized(ctx) {
		return Reader{}, false
	}
	return Reader{cell: h.runner.Cell()}, true
}

// Cancel signals the runner to exit at its next suspension point. It does
// not block until the runner has actually stopped; use Done for that.
func (h *Handle) Cancel() {
	h.cancel()
}

// Done returns a channel that closes once the runner's goroutine has
// returned, whether due to Cancel or to the parent context's cancellation.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// State reports the runner's current lifecycle state, mainly useful for
// diagnostics and tests.
func (h *Handle) State() lifecycle.State {
	return h.runner.State()
}

// RunnerID returns the runner instance identifier assigned at Start, either
// the one supplied via Config.RunnerID or a generated one.
func (h *Handle) RunnerID() string {
	return h.runner.ID()
}
