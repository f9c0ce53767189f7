// Package leasekeeper keeps a short-lived bearer credential continuously
// valid in the background: it logs in to obtain a lease, renews it on a
// jittered schedule derived from the lease TTL, and falls back to a fresh
// login with exponential backoff whenever renewal can no longer be scheduled
// inside the grace window before expiry.
//
// # Starting a runner
//
//	handle, err := leasekeeper.Start(ctx, leasekeeper.Config{
//	    Login: myLoginCollaborator,
//	    Renew: myRenewCollaborator,
//	})
//	if err != nil { log.Fatal(err) }
//	reader, ok := handle.AwaitReady(5 * time.Second)
//	if !ok { log.Fatal("leasekeeper: timed out waiting for first lease") }
//	token := reader.Get()
//
// Start spawns a single background goroutine per Handle. Handle.Cancel
// signals that goroutine to exit at its next suspension point; callers that
// only need the current token can poll Handle.Current from any goroutine
// without additional synchronization.
package leasekeeper
