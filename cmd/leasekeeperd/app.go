package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hashicorp/vault/api"
	vaultApprole "github.com/hashicorp/vault/api/auth/approle"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ianferguson/leasekeeper"
	"github.com/ianferguson/leasekeeper/internal/svcfields"
	"github.com/ianferguson/leasekeeper/internal/version"
	"github.com/ianferguson/leasekeeper/vaultauth"

	"pkt.systems/pslog"
)

func submain(ctx context.Context) int {
	baseLogger := pslog.LoggerFromEnv(
		pslog.WithEnvPrefix("LEASEKEEPERD_LOG_"),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeStructured, MinLevel: pslog.InfoLevel}),
		pslog.WithEnvWriter(os.Stderr),
	).With("app", "leasekeeperd")

	cmd := newRootCommand(baseLogger)
	ctx = withSignalCancel(ctx)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if err != context.Canceled {
			svcfields.WithSubsystem(baseLogger, "cli.root").Error("command failed", "error", err)
		}
		return 1
	}
	return 0
}

func withSignalCancel(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(signals)
	}()
	return ctx
}

func newRootCommand(baseLogger pslog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "leasekeeperd",
		Short:         "leasekeeperd keeps a Vault AppRole token alive in the background and reports its current lease",
		Version:       version.Current(),
		SilenceErrors: true,
		Example: `
  # Minimal invocation, everything from the environment
  VAULT_ADDR=https://vault.internal:8200 LEASEKEEPERD_ROLE_ID=ci-runner LEASEKEEPERD_SECRET_ID_FILE=/run/secrets/secret-id leasekeeperd

  # Credentials file instead of flags/env
  leasekeeperd --credentials /etc/leasekeeperd/credentials.yaml
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, baseLogger)
		},
	}

	flags := cmd.Flags()
	flags.String("vault-addr", "", "Vault server address (env VAULT_ADDR)")
	flags.String("role-id", "", "AppRole role_id (env LEASEKEEPERD_ROLE_ID)")
	flags.String("secret-id", "", "AppRole secret_id value (env LEASEKEEPERD_SECRET_ID)")
	flags.String("secret-id-file", "", "path to a file containing the AppRole secret_id (env LEASEKEEPERD_SECRET_ID_FILE)")
	flags.String("mount-path", "", "AppRole auth mount path (Vault's \"approle\" when unset here and in the credentials file)")
	flags.String("credentials", "", "path to a YAML credentials file (see config.go); merges under flags/env")
	flags.String("log-level", "info", "log level: trace, debug, info, warn, error")
	flags.Duration("ready-timeout", 30*time.Second, "how long to wait for the first successful login before exiting with an error")

	if err := viper.BindPFlags(flags); err != nil {
		svcfields.WithSubsystem(baseLogger, "cli.root").Error("bind flags", "error", err)
	}
	viper.SetEnvPrefix("LEASEKEEPERD")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	if err := viper.BindEnv("vault-addr", "VAULT_ADDR"); err != nil {
		svcfields.WithSubsystem(baseLogger, "cli.root").Error("bind VAULT_ADDR", "error", err)
	}

	return cmd
}

func runRoot(cmd *cobra.Command, baseLogger pslog.Logger) error {
	cmd.SilenceUsage = true
	ctx := cmd.Context()
	logger := baseLogger

	if level, ok := pslog.ParseLevel(strings.TrimSpace(viper.GetString("log-level"))); ok {
		logger = logger.LogLevel(level)
	}
	cliLogger := svcfields.WithSubsystem(logger, "cli.root")

	var fileCfg FileConfig
	if path := strings.TrimSpace(viper.GetString("credentials")); path != "" {
		loaded, err := loadCredentialsFile(path)
		if err != nil {
			return fmt.Errorf("load credentials file: %w", err)
		}
		fileCfg = loaded
		cliLogger.Info("loaded credentials file", "path", path)
	}

	addr := firstNonEmpty(viper.GetString("vault-addr"), fileCfg.Vault.Address)
	roleID := firstNonEmpty(viper.GetString("role-id"), fileCfg.Vault.RoleID)
	mountPath := firstNonEmpty(viper.GetString("mount-path"), fileCfg.Vault.MountPath)
	secretID, err := resolveSecretID(fileCfg)
	if err != nil {
		return err
	}

	if addr == "" {
		return fmt.Errorf("vault address is required: set --vault-addr, VAULT_ADDR, or credentials.vault.address")
	}
	if roleID == "" {
		return fmt.Errorf("role id is required: set --role-id, LEASEKEEPERD_ROLE_ID, or credentials.vault.role_id")
	}

	client, err := api.NewClient(&api.Config{Address: addr})
	if err != nil {
		return fmt.Errorf("create vault client: %w", err)
	}

	source, err := vaultauth.NewAppRoleSource(client, roleID, secretID, vaultauth.WithMountPath(mountPath))
	if err != nil {
		return fmt.Errorf("create approle source: %w", err)
	}

	runnerLogger := svcfields.WithSubsystem(logger, "lifecycle")
	handle, err := leasekeeper.Start(ctx, leasekeeper.Config{
		Login:  source,
		Renew:  source,
		Logger: runnerLogger,
	})
	if err != nil {
		return fmt.Errorf("start leasekeeper: %w", err)
	}

	readyTimeout := viper.GetDuration("ready-timeout")
	if _, ok := handle.AwaitReady(readyTimeout); !ok {
		handle.Cancel()
		return fmt.Errorf("timed out after %s waiting for the first successful login", readyTimeout)
	}
	cliLogger.Info("leasekeeperd ready", "role_id", roleID, "vault_addr", addr)

	<-ctx.Done()
	handle.Cancel()
	<-handle.Done()
	cliLogger.Info("leasekeeperd stopped")
	return nil
}

func resolveSecretID(fileCfg FileConfig) (*vaultApprole.SecretID, error) {
	if v := strings.TrimSpace(viper.GetString("secret-id")); v != "" {
		return &vaultApprole.SecretID{FromString: v}, nil
	}
	if v := strings.TrimSpace(viper.GetString("secret-id-file")); v != "" {
		return &vaultApprole.SecretID{FromFile: v}, nil
	}
	if fileCfg.Vault.SecretID != "" {
		return &vaultApprole.SecretID{FromString: fileCfg.Vault.SecretID}, nil
	}
	if fileCfg.Vault.SecretIDFile != "" {
		return &vaultApprole.SecretID{FromFile: fileCfg.Vault.SecretIDFile}, nil
	}
	return &vaultApprole.SecretID{FromEnv: "LEASEKEEPERD_SECRET_ID"}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
