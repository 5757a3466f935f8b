//go:build !darwin

package secrets

func IsKeychainLockedError(_ string) bool { return false }

func CheckKeychainLocked() bool { return false }

func UnlockKeychain() error { return nil }

// EnsureKeychainAccess is a no-op outside macOS.
func EnsureKeychainAccess() error { return nil }
