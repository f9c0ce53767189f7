package leasekeeper_test

import (
	"context"
	"testing"
	"time"

	"github.com/ianferguson/leasekeeper"
)

func TestStartRejectsMissingCollaborators(t *testing.T) {
	_, err := leasekeeper.Start(context.Background(), leasekeeper.Config{})
	if err == nil {
		t.Fatal("expected a UsageError when Login and Renew are both missing")
	}
	if _, ok := err.(*leasekeeper.UsageError); !ok {
		t.Fatalf("expected *UsageError, got %T: %v", err, err)
	}
}

func TestStartAndAwaitReady(t *testing.T) {
	cfg := leasekeeper.Config{
		Login: leasekeeper.LoginFunc(func(ctx context.Context) (leasekeeper.AuthResult, error) {
			return leasekeeper.AuthResult{ClientToken: "tok", LeaseDuration: 3600, Renewable: true}, nil
		}),
		Renew: leasekeeper.RenewFunc(func(ctx context.Context, current leasekeeper.AuthResult) (leasekeeper.AuthResult, error) {
			return current, nil
		}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handle, err := leasekeeper.Start(ctx, cfg)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	reader, ok := handle.AwaitReady(2 * time.Second)
	if !ok {
		t.Fatal("expected AwaitReady to return within the timeout")
	}
	if reader.Get().ClientToken != "tok" {
		t.Fatalf("unexpected token: %+v", reader.Get())
	}
	if handle.Current().ClientToken != "tok" {
		t.Fatalf("unexpected current token: %+v", handle.Current())
	}

	handle.Cancel()
	select {
	case <-handle.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after Cancel")
	}
}

func TestAwaitReadyTimesOutWithoutALogin(t *testing.T) {
	block := make(chan struct{})
	cfg := leasekeeper.Config{
		Login: leasekeeper.LoginFunc(func(ctx context.Context) (leasekeeper.AuthResult, error) {
			<-block
			return leasekeeper.AuthResult{}, nil
		}),
		Renew: leasekeeper.RenewFunc(func(ctx context.Context, current leasekeeper.AuthResult) (leasekeeper.AuthResult, error) {
			return current, nil
		}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer func() {
		cancel()
		close(block)
	}()

	handle, err := leasekeeper.Start(ctx, cfg)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, ok := handle.AwaitReady(50 * time.Millisecond); ok {
		t.Fatal("expected AwaitReady to time out while Login is blocked")
	}
}
