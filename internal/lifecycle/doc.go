// Package lifecycle implements the credential acquire/renew state machine:
// it logs in to obtain a lease-backed AuthResult, renews it on a jittered
// schedule derived from the lease TTL, and falls back to a fresh login (with
// exponential backoff) whenever renewal can no longer be scheduled inside the
// grace window. The design mirrors the TC leader election run-loop in
// internal/tcleader from the sibling coordination service this package was
// adapted from: a single goroutine driven entirely by an injected Clock,
// selecting on ctx.Done() and a timer channel at every suspension point.
package lifecycle
