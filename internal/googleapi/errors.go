package googleapi

import (
	"errors"
	"fmt"
	"net/http"

	ggoogleapi "google.golang.org/api/googleapi"
)

// AuthorizationError is a 401 or 403 from the Sheets API: the token expired
// or lacks the scope for the request.
type AuthorizationError struct {
	Status  int
	Message string
	Body    string
	Cause   error
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("sheets authorization failed (%d): %s", e.Status, e.Message)
}

func (e *AuthorizationError) Unwrap() error { return e.Cause }

// APIError is any other non-2xx response.
type APIError struct {
	Status  int
	Message string
	Body    string
	Cause   error
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("sheets api error (%d): %s", e.Status, e.Body)
	}
	return fmt.Sprintf("sheets api error (%d): %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Cause }

func wrapError(err error) error {
	var gerr *ggoogleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("sheets request: %w", err)
	}
	msg := gerr.Message
	if msg == "" {
		msg = http.StatusText(gerr.Code)
	}
	switch gerr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthorizationError{Status: gerr.Code, Message: msg, Body: gerr.Body, Cause: gerr}
	default:
		return &APIError{Status: gerr.Code, Message: gerr.Message, Body: gerr.Body, Cause: gerr}
	}
}
