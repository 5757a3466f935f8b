package googleauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/steipete/gogsa/internal/config"
)

const GrantTypeJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"

const maxTokenResponse = 1 << 20

var errMissingAccessToken = errors.New("response has no access_token")

// Broker mints access tokens for service accounts. It keeps no state
// between calls.
type Broker struct {
	HTTPClient *http.Client
	Now        func() time.Time
}

func NewBroker(client *http.Client) *Broker {
	return &Broker{HTTPClient: client}
}

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	TokenType        string `json:"token_type"`
	ExpiresIn        int64  `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (b *Broker) now() time.Time {
	if b != nil && b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func (b *Broker) client() *http.Client {
	if b != nil && b.HTTPClient != nil {
		return b.HTTPClient
	}
	return http.DefaultClient
}

// Mint signs a fresh assertion for sa and exchanges it at sa.TokenURI.
func (b *Broker) Mint(ctx context.Context, sa config.ServiceAccount, scope string) (*oauth2.Token, error) {
	now := b.now()
	claims := NewClaims(sa, scope, now)

	assertion, err := SignAssertion(sa.PrivateKey, claims)
	if err != nil {
		return nil, err
	}

	slog.Debug("exchanging jwt assertion", "issuer", sa.ClientEmail, "token_uri", sa.TokenURI, "scope", scope)

	form := url.Values{
		"grant_type": {GrantTypeJWTBearer},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sa.TokenURI, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &TokenExchangeError{Cause: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := b.client().Do(req)
	if err != nil {
		return nil, &TokenExchangeError{Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponse))
	if err != nil {
		return nil, &TokenExchangeError{Status: resp.StatusCode, Cause: fmt.Errorf("read response: %w", err)}
	}

	var tr tokenResponse
	decodeErr := json.Unmarshal(body, &tr)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		exErr := &TokenExchangeError{Status: resp.StatusCode, Code: tr.Error, Description: tr.ErrorDescription}
		if decodeErr != nil || tr.Error == "" {
			exErr.Cause = errors.New(strings.TrimSpace(string(body)))
		}
		return nil, exErr
	}
	if decodeErr != nil {
		return nil, &TokenExchangeError{Status: resp.StatusCode, Cause: fmt.Errorf("decode response: %w", decodeErr)}
	}
	if strings.TrimSpace(tr.AccessToken) == "" {
		return nil, &TokenExchangeError{Status: resp.StatusCode, Cause: errMissingAccessToken}
	}

	tok := &oauth2.Token{
		AccessToken: tr.AccessToken,
		TokenType:   tr.TokenType,
		ExpiresIn:   tr.ExpiresIn,
	}
	if tok.TokenType == "" {
		tok.TokenType = "Bearer"
	}
	if tr.ExpiresIn > 0 {
		tok.Expiry = now.Add(time.Duration(tr.ExpiresIn) * time.Second)
	}

	slog.Debug("access token minted", "issuer", sa.ClientEmail, "expires_in", tr.ExpiresIn)
	return tok, nil
}
