// Package auth authenticates requests through an ordered chain of
// voters. Each authenticator inspects the request's credentials and
// votes Allow, Deny, or Abstain; the first non-abstaining vote wins.
package auth

import (
	"context"
	"errors"
	"net/http"
)

// Sentinel errors surfaced by the chain and middleware.
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("access denied")
	ErrTooManyRequests = errors.New("rate limit exceeded")
)

// Decision is an authenticator's vote on a request.
type Decision int

const (
	// Allow accepts the credentials and ends the chain.
	Allow Decision = iota

	// Deny rejects credentials that were present but invalid, ending
	// the chain.
	Deny

	// Abstain passes on credentials this authenticator does not handle,
	// letting the next one vote.
	Abstain
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	case Abstain:
		return "abstain"
	}
	return "unknown"
}

// Result carries the outcome of an authentication attempt. Identity is
// set only on Allow, Err only on Deny.
type Result struct {
	Decision Decision
	Identity *Identity
	Err      error
}

// Identity describes an authenticated caller.
type Identity struct {
	// Subject uniquely identifies the caller. Never empty on Allow.
	Subject string

	// ServiceTier selects the caller's rate limits.
	ServiceTier string

	// Scopes lists granted authorization scopes.
	Scopes []string

	// Metadata holds provider-specific attributes. The "tenant_id" key
	// scopes storage reads and writes.
	Metadata map[string]string
}

// TenantID returns the tenant identifier from metadata, or "".
func (id *Identity) TenantID() string {
	if id == nil {
		return ""
	}
	return id.Metadata["tenant_id"]
}

// Authenticator votes on a request's credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) Result
}

// Chain runs authenticators left to right until one votes Allow or
// Deny. DefaultDecision settles the request when every voter abstains:
// Allow yields an anonymous identity, Deny rejects it.
type Chain struct {
	Authenticators  []Authenticator
	DefaultDecision Decision
}

// Authenticate runs the chain.
func (c *Chain) Authenticate(ctx context.Context, r *http.Request) Result {
	for _, voter := range c.Authenticators {
		if result := voter.Authenticate(ctx, r); result.Decision != Abstain {
			return result
		}
	}
	if c.DefaultDecision == Allow {
		return Result{
			Decision: Allow,
			Identity: &Identity{Subject: "anonymous", ServiceTier: "default"},
		}
	}
	return Result{Decision: Deny, Err: ErrUnauthenticated}
}
