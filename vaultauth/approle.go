// Package vaultauth adapts HashiCorp Vault's AppRole auth method to the
// leasekeeper.Login and leasekeeper.Renew collaborator contracts, so a
// Runner can keep a Vault-issued token alive without the lifecycle package
// ever depending on the Vault API directly.
package vaultauth

import (
	"context"
	"errors"
	"fmt"

	"github.com/hashicorp/vault/api"
	vaultApprole "github.com/hashicorp/vault/api/auth/approle"

	"github.com/ianferguson/leasekeeper"
)

// AppRoleSource implements leasekeeper.Login and leasekeeper.Renew against a
// Vault AppRole auth mount.
type AppRoleSource struct {
	client *api.Client
	auth   *vaultApprole.AppRoleAuth
}

// AppRoleOption configures NewAppRoleSource.
type AppRoleOption func(*approleOptions)

type approleOptions struct {
	mountPath string
}

// WithMountPath overrides the AppRole auth mount path; defaults to Vault's
// "approle".
func WithMountPath(path string) AppRoleOption {
	return func(o *approleOptions) { o.mountPath = path }
}

// NewAppRoleSource builds a source that logs in with roleID and the secret
// ID supplied by secretID (typically approle.SecretID{FromEnv: "..."} or
// approle.SecretID{FromString: "..."}, both re-exported from
// github.com/hashicorp/vault/api/auth/approle).
func NewAppRoleSource(client *api.Client, roleID string, secretID *vaultApprole.SecretID, opts ...AppRoleOption) (*AppRoleSource, error) {
	if client == nil {
		return nil, errors.New("vaultauth: client must not be nil")
	}
	if roleID == "" {
		return nil, errors.New("vaultauth: roleID must not be empty")
	}

	cfg := approleOptions{}
	for _, opt := range opts {
		opt(&cfg)
	}

	loginOpts := make([]vaultApprole.LoginOption, 0, 1)
	if cfg.mountPath != "" {
		loginOpts = append(loginOpts, vaultApprole.WithMountPath(cfg.mountPath))
	}

	auth, err := vaultApprole.NewAppRoleAuth(roleID, secretID, loginOpts...)
	if err != nil {
		return nil, fmt.Errorf("vaultauth: initialize approle auth: %w", err)
	}

	return &AppRoleSource{client: client, auth: auth}, nil
}

// Login implements leasekeeper.Login.
func (s *AppRoleSource) Login(ctx context.Context) (leasekeeper.AuthResult, error) {
	secret, err := s.client.Auth().Login(ctx, s.auth)
	if err != nil {
		return leasekeeper.AuthResult{}, fmt.Errorf("vaultauth: approle login: %w", err)
	}
	result, err := authResultFromSecret(secret)
	if err != nil {
		return leasekeeper.AuthResult{}, fmt.Errorf("vaultauth: approle login: %w", err)
	}
	return result, nil
}

// Renew implements leasekeeper.Renew by calling Vault's token self-renewal
// endpoint. It sets the client's token to current.ClientToken first, since
// the same *api.Client may be shared across Source instances.
func (s *AppRoleSource) Renew(ctx context.Context, current leasekeeper.AuthResult) (leasekeeper.AuthResult, error) {
	s.client.SetToken(current.ClientToken)
	secret, err := s.client.Auth().Token().RenewSelf(current.LeaseDuration)
	if err != nil {
		return leasekeeper.AuthResult{}, fmt.Errorf("vaultauth: renew-self: %w", err)
	}
	result, err := authResultFromSecret(secret)
	if err != nil {
		return leasekeeper.AuthResult{}, fmt.Errorf("vaultauth: renew-self: %w", err)
	}
	return result, nil
}

func authResultFromSecret(secret *api.Secret) (leasekeeper.AuthResult, error) {
	if secret == nil || secret.Auth == nil {
		return leasekeeper.AuthResult{}, errors.New("vault returned no auth info")
	}
	return leasekeeper.AuthResult{
		ClientToken:   secret.Auth.ClientToken,
		LeaseDuration: secret.Auth.LeaseDuration,
		Renewable:     secret.Auth.Renewable,
	}, nil
}
