package errfmt

import (
	"errors"
	"fmt"
	"os"

	"github.com/99designs/keyring"
	ggoogleapi "google.golang.org/api/googleapi"

	"github.com/steipete/gogsa/internal/config"
	"github.com/steipete/gogsa/internal/googleapi"
	"github.com/steipete/gogsa/internal/googleauth"
	"github.com/steipete/gogsa/internal/sheetops"
)

func Format(err error) string {
	if err == nil {
		return ""
	}

	var cfgErr *config.ConfigurationError
	if errors.As(err, &cfgErr) {
		return fmt.Sprintf("%s is not set. Export it, add it to .env, or pass --spreadsheet", cfgErr.Key)
	}

	var credErr *config.CredentialError
	if errors.As(err, &credErr) {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Sprintf("Service account credentials not found at %s. Pass --credentials <file> or set %s", credErr.Path, config.EnvCredentials)
		}
		return fmt.Sprintf("Invalid service account credentials (%s): %v", credErr.Path, credErr.Cause)
	}

	var signErr *googleauth.SigningError
	if errors.As(err, &signErr) {
		return fmt.Sprintf("Cannot sign the token request; private_key is not a usable RSA key: %v", signErr.Cause)
	}

	var exErr *googleauth.TokenExchangeError
	if errors.As(err, &exErr) {
		return "Access token request failed: " + exErr.Error()
	}

	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "Service account not found in keyring. Run: gogsa credentials set <credentials.json>"
	}

	var partial *sheetops.PartialUpdateError
	if errors.As(err, &partial) {
		return fmt.Sprintf("%s\n%d row(s) were already updated and were not rolled back", inner(partial.Err), partial.Applied)
	}

	return inner(err)
}

func inner(err error) string {
	var authErr *googleapi.AuthorizationError
	if errors.As(err, &authErr) {
		return fmt.Sprintf("Sheets API denied access (%d): %s. Check the token scope and that the spreadsheet is shared with the service account", authErr.Status, authErr.Message)
	}

	var apiErr *googleapi.APIError
	if errors.As(err, &apiErr) {
		var gerr *ggoogleapi.Error
		if errors.As(err, &gerr) && len(gerr.Errors) > 0 && gerr.Errors[0].Reason != "" {
			return fmt.Sprintf("Google API error (%d %s): %s", apiErr.Status, gerr.Errors[0].Reason, apiErr.Message)
		}
		return apiErr.Error()
	}

	return err.Error()
}
