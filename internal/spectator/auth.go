package spectator

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"stickduel/arena/internal/auth"
)

// TokenHeader carries a spectator token when the query string cannot.
const TokenHeader = "X-Auth-Token"

// ErrMissingToken is returned when a protected hub receives no token.
var ErrMissingToken = errors.New("missing auth token")

// Authenticator resolves the subscriber id a request is allowed to use.
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// TokenAuthenticator admits spectators holding a signed token; the token subject names
// the resumable subscription.
type TokenAuthenticator struct {
	verifier *auth.HMACTokenVerifier
}

// NewTokenAuthenticator builds an authenticator over the shared secret.
func NewTokenAuthenticator(secret string) (*TokenAuthenticator, error) {
	verifier, err := auth.NewHMACTokenVerifier(secret, 2*time.Second)
	if err != nil {
		return nil, err
	}
	return &TokenAuthenticator{verifier: verifier}, nil
}

// Verifier exposes the underlying verifier so callers can issue tokens.
func (a *TokenAuthenticator) Verifier() *auth.HMACTokenVerifier {
	if a == nil {
		return nil
	}
	return a.verifier
}

// Authenticate validates the incoming token and returns the subscriber id it names.
func (a *TokenAuthenticator) Authenticate(r *http.Request) (string, error) {
	if a == nil || a.verifier == nil {
		return "", errors.New("verifier not configured")
	}
	token := strings.TrimSpace(r.URL.Query().Get("auth_token"))
	if token == "" {
		token = strings.TrimSpace(r.Header.Get(TokenHeader))
	}
	if token == "" {
		return "", ErrMissingToken
	}
	claims, err := a.verifier.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
