package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const AppName = "gogsa"

const (
	EnvSpreadsheetID  = "SPREADSHEET_ID"
	EnvCredentials    = "GOGSA_CREDENTIALS"
	EnvAccount        = "GOGSA_ACCOUNT"
	EnvKeyringBackend = "GOGSA_KEYRING_BACKEND"

	DefaultCredentialsFile = "credentials.json"
	DefaultEnvFile         = ".env"
)

func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, AppName), nil
}

func EnsureDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("ensure config dir: %w", err)
	}
	return dir, nil
}

// EnsureKeyringDir is where the file keyring backend keeps its items.
func EnsureKeyringDir() (string, error) {
	dir, err := EnsureDir()
	if err != nil {
		return "", err
	}
	keyringDir := filepath.Join(dir, "keyring")
	if err := os.MkdirAll(keyringDir, 0o700); err != nil {
		return "", fmt.Errorf("ensure keyring dir: %w", err)
	}
	return keyringDir, nil
}

// LoadEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnv(files ...string) error {
	for _, f := range files {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

// SpreadsheetID returns the explicit value when set, falling back to
// SPREADSHEET_ID from the environment.
func SpreadsheetID(explicit string) (string, error) {
	if v := strings.TrimSpace(explicit); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(os.Getenv(EnvSpreadsheetID)); v != "" {
		return v, nil
	}
	return "", &ConfigurationError{Key: EnvSpreadsheetID}
}

// CredentialsPath resolves the credential file: flag, then GOGSA_CREDENTIALS,
// then credentials.json in the working directory.
func CredentialsPath(explicit string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCredentials)); v != "" {
		return v
	}
	return DefaultCredentialsFile
}
