package googleauth

import "fmt"

// SigningError means the assertion could not be signed, usually because the
// private key is not a usable RSA key. Retrying does not help.
type SigningError struct {
	Cause error
}

func (e *SigningError) Error() string {
	return fmt.Sprintf("sign jwt assertion: %v", e.Cause)
}

func (e *SigningError) Unwrap() error { return e.Cause }

// TokenExchangeError is any failure of the assertion-for-token exchange:
// transport, non-2xx status, unreadable body or a missing access_token.
type TokenExchangeError struct {
	Status      int
	Code        string
	Description string
	Cause       error
}

func (e *TokenExchangeError) Error() string {
	msg := "token exchange failed"
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Code)
		if e.Description != "" {
			msg = fmt.Sprintf("%s: %s", msg, e.Description)
		}
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *TokenExchangeError) Unwrap() error { return e.Cause }
