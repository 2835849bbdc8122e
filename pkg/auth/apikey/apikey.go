// Package apikey votes on bearer tokens using a static key list. Keys
// are hashed with SHA-256 at construction and compared in constant
// time, so neither plaintext keys nor timing leaks survive startup.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/molmute/molmute/pkg/auth"
)

// RawKeyEntry pairs a plaintext key with the identity it grants. Used
// only while constructing the authenticator.
type RawKeyEntry struct {
	Key      string
	Identity auth.Identity
}

// KeyEntry is the stored form: key hash plus identity.
type KeyEntry struct {
	KeyHash  [32]byte
	Identity auth.Identity
}

// Authenticator matches bearer tokens against the configured keys.
type Authenticator struct {
	keys []KeyEntry
}

// New hashes the given keys and returns an authenticator over them.
func New(entries []RawKeyEntry) *Authenticator {
	keys := make([]KeyEntry, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, KeyEntry{
			KeyHash:  sha256.Sum256([]byte(e.Key)),
			Identity: e.Identity,
		})
	}
	return &Authenticator{keys: keys}
}

// Authenticate abstains without a Bearer Authorization header, denies
// an empty or unknown token, and allows a matching one.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.Result {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return auth.Result{Decision: auth.Abstain}
	}

	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return auth.Result{Decision: auth.Deny, Err: auth.ErrUnauthenticated}
	}

	hash := sha256.Sum256([]byte(token))
	for i := range a.keys {
		if subtle.ConstantTimeCompare(hash[:], a.keys[i].KeyHash[:]) == 1 {
			// Each caller gets its own identity value.
			identity := a.keys[i].Identity
			return auth.Result{Decision: auth.Allow, Identity: &identity}
		}
	}
	return auth.Result{Decision: auth.Deny, Err: auth.ErrUnauthenticated}
}
