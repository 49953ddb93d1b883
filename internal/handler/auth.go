package handler

import (
	"errors"
	"net/http"
)

// ErrUnauthenticated is returned when a request carries no usable
// member identity.
var ErrUnauthenticated = errors.New("missing member identity")

// Authenticator resolves the calling member from an incoming request.
// Identity itself lives in an external provider; this layer only needs
// the verified member id it hands over.
type Authenticator interface {
	MemberID(r *http.Request) (string, error)
}

// HeaderAuthenticator trusts a gateway-injected identity header. It is
// the default for deployments where an edge proxy has already verified
// the caller.
type HeaderAuthenticator struct {
	Header string
}

// NewHeaderAuthenticator reads identity from the X-Member-ID header.
func NewHeaderAuthenticator() *HeaderAuthenticator {
	return &HeaderAuthenticator{Header: "X-Member-ID"}
}

func (a *HeaderAuthenticator) MemberID(r *http.Request) (string, error) {
	id := r.Header.Get(a.Header)
	if id == "" {
		// Websocket clients cannot set headers from browsers, so the
		// query string is accepted as a fallback.
		id = r.URL.Query().Get("memberId")
	}
	if id == "" {
		return "", ErrUnauthenticated
	}
	return id, nil
}
