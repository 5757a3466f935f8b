package config

import (
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// ServiceAccount is the subset of a Google service-account key file needed
// for the JWT-bearer grant.
type ServiceAccount struct {
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri"`

	// Optional fields, kept for display.
	ProjectID    string `json:"project_id,omitempty"`
	PrivateKeyID string `json:"private_key_id,omitempty"`
}

var (
	errMissingClientEmail = errors.New("missing client_email")
	errMissingPrivateKey  = errors.New("missing private_key")
	errMissingTokenURI    = errors.New("missing token_uri")
	errNoPEMBlock         = errors.New("private_key is not PEM encoded")
)

func ReadServiceAccount(path string) (ServiceAccount, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ServiceAccount{}, &CredentialError{Path: path, Cause: err}
	}
	return ParseServiceAccount(data, path)
}

// ParseServiceAccount decodes and validates a key document. source only
// labels errors.
func ParseServiceAccount(data []byte, source string) (ServiceAccount, error) {
	var sa ServiceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return ServiceAccount{}, &CredentialError{Path: source, Cause: fmt.Errorf("decode json: %w", err)}
	}
	if err := sa.Validate(); err != nil {
		return ServiceAccount{}, &CredentialError{Path: source, Cause: err}
	}
	return sa, nil
}

func (sa ServiceAccount) Validate() error {
	if strings.TrimSpace(sa.ClientEmail) == "" {
		return errMissingClientEmail
	}
	if strings.TrimSpace(sa.PrivateKey) == "" {
		return errMissingPrivateKey
	}
	if strings.TrimSpace(sa.TokenURI) == "" {
		return errMissingTokenURI
	}
	u, err := url.Parse(sa.TokenURI)
	if err != nil {
		return fmt.Errorf("token_uri: %w", err)
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("token_uri %q is not an absolute URL", sa.TokenURI)
	}
	if block, _ := pem.Decode([]byte(sa.PrivateKey)); block == nil {
		return errNoPEMBlock
	}
	return nil
}
