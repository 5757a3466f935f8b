package googleauth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/steipete/gogsa/internal/config"
)

// AssertionLifetime is the maximum Google accepts for a JWT-bearer assertion.
const AssertionLifetime = time.Hour

// Claims is the JWT-bearer claim set. aud is a plain string rather than
// jwt.ClaimStrings, which would marshal as an array.
type Claims struct {
	Issuer    string `json:"iss"`
	Scope     string `json:"scope"`
	Audience  string `json:"aud"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

func NewClaims(sa config.ServiceAccount, scope string, now time.Time) Claims {
	return Claims{
		Issuer:    sa.ClientEmail,
		Scope:     scope,
		Audience:  sa.TokenURI,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(AssertionLifetime).Unix(),
	}
}

func (c Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.ExpiresAt, 0)), nil
}

func (c Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return jwt.NewNumericDate(time.Unix(c.IssuedAt, 0)), nil
}

func (c Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }

func (c Claims) GetIssuer() (string, error) { return c.Issuer, nil }

func (c Claims) GetSubject() (string, error) { return "", nil }

func (c Claims) GetAudience() (jwt.ClaimStrings, error) {
	return jwt.ClaimStrings{c.Audience}, nil
}

// SignAssertion signs claims with RS256. PKCS#1 and PKCS#8 keys are accepted.
func SignAssertion(privateKeyPEM string, claims Claims) (string, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return "", &SigningError{Cause: err}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	if err != nil {
		return "", &SigningError{Cause: err}
	}
	return signed, nil
}
