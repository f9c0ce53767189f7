package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileConfig is the shape of the optional --credentials YAML file. It exists
// alongside the flag/env surface bound through viper so that AppRole secret
// material can be distributed as a single mounted file (a common pattern
// for sidecars) without forcing every other setting through the same file.
type FileConfig struct {
	Vault struct {
		Address      string `yaml:"address"`
		RoleID       string `yaml:"role_id"`
		SecretID     string `yaml:"secret_id"`
		SecretIDFile string `yaml:"secret_id_file"`
		MountPath    string `yaml:"mount_path"`
	} `yaml:"vault"`
}

// loadCredentialsFile reads and parses a YAML credentials file at path.
func loadCredentialsFile(path string) (FileConfig, error) {
	var cfg FileConfig

	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) // #nosec G304 - path is operator-supplied via flag/env
	if err != nil {
		return cfg, fmt.Errorf("read credentials file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse credentials file: %w", err)
	}
	return cfg, nil
}
