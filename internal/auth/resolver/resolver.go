package resolver

import (
	"errors"
	"net/http"

	"github.com/ishanbilolikar/pizza42-backend/internal/apperr"
	"github.com/ishanbilolikar/pizza42-backend/internal/auth"
)

// ErrNoCredential is returned by a Resolver when the request carries no
// credential of the kind it handles.
var ErrNoCredential = errors.New("resolver: no credential")

// Resolver determines who is calling from one kind of credential.
// It is the ONLY place where request-to-identity logic lives.
type Resolver interface {
	Resolve(r *http.Request) (*auth.Identity, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(r *http.Request) (*auth.Identity, error)

func (f ResolverFunc) Resolve(r *http.Request) (*auth.Identity, error) { return f(r) }

// Chain tries resolvers in order. A resolver that finds no credential yields
// to the next; the first one that finds a credential decides the outcome,
// so an invalid bearer token never falls through to the session.
type Chain struct {
	resolvers []Resolver
	missing   string
}

// NewChain builds a chain; missing is the message reported when no resolver
// finds a credential.
func NewChain(missing string, resolvers ...Resolver) *Chain {
	return &Chain{resolvers: resolvers, missing: missing}
}

func (c *Chain) Resolve(r *http.Request) (*auth.Identity, error) {
	for _, res := range c.resolvers {
		id, err := res.Resolve(r)
		if errors.Is(err, ErrNoCredential) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return id, nil
	}
	return nil, apperr.New(apperr.CodeUnauthenticated, c.missing)
}
