package gateway

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// ErrUnauthorized rejects a connection before any audio is accepted.
var ErrUnauthorized = errors.New("unauthorized")

// Authorizer is the identity gate in front of the gateway: given a
// connection request it yields a stable client identifier or rejects the
// connection. The real identity system lives outside this service.
type Authorizer interface {
	Authorize(r *http.Request) (clientID string, err error)
}

// TokenAuthorizer checks a shared token and mints one client identifier
// per connection. An empty token disables the check (development only).
type TokenAuthorizer struct {
	Token string
}

// Authorize validates the token from the query string or the Authorization
// header and returns a fresh client identifier.
func (a *TokenAuthorizer) Authorize(r *http.Request) (string, error) {
	if a.Token != "" {
		tok := r.URL.Query().Get("token")
		if tok == "" {
			tok = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		}
		if tok != a.Token {
			return "", ErrUnauthorized
		}
	}
	return "client-" + uuid.New().String(), nil
}
