package config

import "fmt"

// CredentialError reports a service-account credential that could not be
// loaded or failed validation.
type CredentialError struct {
	Path  string
	Cause error
}

func (e *CredentialError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("service account credentials: %v", e.Cause)
	}
	return fmt.Sprintf("service account credentials %s: %v", e.Path, e.Cause)
}

func (e *CredentialError) Unwrap() error { return e.Cause }

// ConfigurationError reports required external configuration that is unset.
type ConfigurationError struct {
	Key string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s must be set", e.Key)
}
