//go:build darwin

package secrets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/term"
)

// Security framework status for "User interaction is not allowed".
const errSecInteractionNotAllowed = "-25308"

var (
	errKeychainPathUnknown = errors.New("cannot determine login keychain path")
	errKeychainNoTTY       = errors.New("login keychain is locked and there is no TTY to ask for its password")
	errKeychainUnlock      = errors.New("unlock keychain: wrong password or keychain error")
)

func IsKeychainLockedError(errStr string) bool {
	return strings.Contains(errStr, errSecInteractionNotAllowed)
}

func loginKeychainPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, "Library", "Keychains", "login.keychain-db")
}

// CheckKeychainLocked reports whether the login keychain is locked. Errors
// while probing count as unlocked.
func CheckKeychainLocked() bool {
	path := loginKeychainPath()
	if path == "" {
		return false
	}
	return exec.CommandContext(context.Background(), "security", "show-keychain-info", path).Run() != nil //nolint:gosec // path from os.UserHomeDir
}

func UnlockKeychain() error {
	path := loginKeychainPath()
	if path == "" {
		return errKeychainPathUnknown
	}
	if !term.IsTerminal(int(syscall.Stdin)) {
		return fmt.Errorf("%w\n\nUnlock it first:\n  security unlock-keychain ~/Library/Keychains/login.keychain-db", errKeychainNoTTY)
	}

	fmt.Fprint(os.Stderr, "Login keychain is locked. macOS password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}

	// stdin keeps the password out of the process list.
	cmd := exec.CommandContext(context.Background(), "security", "unlock-keychain", path) //nolint:gosec // path from os.UserHomeDir
	cmd.Stdin = strings.NewReader(string(password) + "\n")
	if err := cmd.Run(); err != nil {
		return errKeychainUnlock
	}
	return nil
}

// EnsureKeychainAccess unlocks the login keychain when it is locked, so
// storing a service-account key does not fail with -25308.
func EnsureKeychainAccess() error {
	if !CheckKeychainLocked() {
		return nil
	}
	return UnlockKeychain()
}
