// Package jwt authenticates bearer tokens against a JWKS endpoint.
//
// Tokens must be RSA-signed. Issuer and audience checks are optional,
// and the claims used for subject, tenant, and scopes are configurable.
package jwt

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/molmute/molmute/pkg/auth"
)

// Config holds the JWT authenticator configuration.
type Config struct {
	// Issuer is matched against the iss claim when non-empty.
	Issuer string

	// Audience is matched against the aud claim when non-empty.
	Audience string

	// JWKSURL is where signing keys are fetched from.
	JWKSURL string

	// UserClaim names the claim holding the identity subject. Default: "sub".
	UserClaim string

	// TenantClaim names the claim holding the tenant. Default: "tenant_id".
	TenantClaim string

	// ScopesClaim names the claim holding scopes, either a space-separated
	// string or a JSON array. Default: "scope".
	ScopesClaim string

	// CacheTTL bounds how long fetched signing keys are reused. Default: 1h.
	CacheTTL time.Duration

	// HTTPClient overrides the client used for JWKS fetches.
	HTTPClient *http.Client
}

// Authenticator validates JWT bearer tokens against a JWKS endpoint.
type Authenticator struct {
	cfg  Config
	keys *keySet
}

// New creates a JWT authenticator with the given configuration.
func New(cfg Config) *Authenticator {
	if cfg.UserClaim == "" {
		cfg.UserClaim = "sub"
	}
	if cfg.TenantClaim == "" {
		cfg.TenantClaim = "tenant_id"
	}
	if cfg.ScopesClaim == "" {
		cfg.ScopesClaim = "scope"
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return &Authenticator{
		cfg: cfg,
		keys: &keySet{
			url:    cfg.JWKSURL,
			ttl:    cfg.CacheTTL,
			client: cfg.HTTPClient,
			byKid:  make(map[string]*rsa.PublicKey),
		},
	}
}

// Authenticate votes on the request's bearer token. Requests without a
// Bearer Authorization header abstain so other authenticators can run;
// a present but invalid token denies.
func (a *Authenticator) Authenticate(ctx context.Context, r *http.Request) auth.Result {
	raw, ok := bearerToken(r)
	if !ok {
		return auth.Result{Decision: auth.Abstain}
	}
	if raw == "" {
		return auth.Result{Decision: auth.Deny, Err: fmt.Errorf("empty bearer token")}
	}

	identity, err := a.verify(ctx, raw)
	if err != nil {
		slog.Debug("JWT validation failed", "error", err)
		return auth.Result{Decision: auth.Deny, Err: err}
	}
	return auth.Result{Decision: auth.Allow, Identity: identity}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(header, "Bearer "), true
}

func (a *Authenticator) verify(ctx context.Context, raw string) (*auth.Identity, error) {
	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
	}
	if a.cfg.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(a.cfg.Issuer))
	}
	if a.cfg.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(a.cfg.Audience))
	}

	token, err := jwtlib.Parse(raw, func(t *jwtlib.Token) (any, error) {
		return a.signingKey(ctx, t)
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("invalid JWT: %w", err)
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid JWT claims")
	}

	subject := stringClaim(claims, a.cfg.UserClaim)
	if subject == "" {
		return nil, fmt.Errorf("JWT missing %q claim", a.cfg.UserClaim)
	}

	identity := &auth.Identity{
		Subject:  subject,
		Scopes:   scopeList(claims, a.cfg.ScopesClaim),
		Metadata: make(map[string]string),
	}
	if tenant := stringClaim(claims, a.cfg.TenantClaim); tenant != "" {
		identity.Metadata["tenant_id"] = tenant
	}
	return identity, nil
}

// signingKey resolves the token's kid header to a cached RSA public key.
func (a *Authenticator) signingKey(ctx context.Context, t *jwtlib.Token) (*rsa.PublicKey, error) {
	if _, ok := t.Method.(*jwtlib.SigningMethodRSA); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("token missing kid header")
	}
	key, err := a.keys.lookup(ctx, kid)
	if err != nil {
		return nil, fmt.Errorf("fetching JWKS key for kid %q: %w", kid, err)
	}
	return key, nil
}

func stringClaim(claims jwtlib.MapClaims, name string) string {
	s, _ := claims[name].(string)
	return s
}

// scopeList accepts the scope claim in either form issuers emit it:
// a space-separated string or a JSON array of strings.
func scopeList(claims jwtlib.MapClaims, name string) []string {
	switch v := claims[name].(type) {
	case string:
		parts := strings.Fields(v)
		if len(parts) == 0 {
			return nil
		}
		return parts
	case []any:
		var scopes []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				scopes = append(scopes, s)
			}
		}
		return scopes
	}
	return nil
}

// keySet caches RSA public keys from a JWKS endpoint, refetching the
// whole set when the TTL lapses or an unknown kid is requested.
type keySet struct {
	url    string
	ttl    time.Duration
	client *http.Client

	mu     sync.RWMutex
	byKid  map[string]*rsa.PublicKey
	loaded time.Time
}

func (ks *keySet) lookup(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	ks.mu.RLock()
	key, fresh := ks.byKid[kid], time.Since(ks.loaded) < ks.ttl
	ks.mu.RUnlock()
	if key != nil && fresh {
		return key, nil
	}

	ks.mu.Lock()
	defer ks.mu.Unlock()

	// Another request may have refreshed while we waited for the lock.
	if key := ks.byKid[kid]; key != nil && time.Since(ks.loaded) < ks.ttl {
		return key, nil
	}

	if err := ks.refresh(ctx); err != nil {
		return nil, err
	}
	key = ks.byKid[kid]
	if key == nil {
		return nil, fmt.Errorf("key %q not found in JWKS", kid)
	}
	return key, nil
}

// refresh replaces the cached key set. Caller holds the write lock.
func (ks *keySet) refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ks.url, nil)
	if err != nil {
		return fmt.Errorf("creating JWKS request: %w", err)
	}
	resp, err := ks.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching JWKS: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("JWKS endpoint returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading JWKS response: %w", err)
	}

	var doc struct {
		Keys []jwk `json:"keys"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("parsing JWKS: %w", err)
	}

	next := make(map[string]*rsa.PublicKey, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Kty != "RSA" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		pub, err := k.publicKey()
		if err != nil {
			slog.Warn("skipping JWKS key", "kid", k.Kid, "error", err)
			continue
		}
		next[k.Kid] = pub
	}

	ks.byKid = next
	ks.loaded = time.Now()
	slog.Debug("JWKS cache refreshed", "keys", len(next), "url", ks.url)
	return nil
}

// jwk is the subset of a JSON Web Key needed for RSA verification.
type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

func (k jwk) publicKey() (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decoding modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decoding exponent: %w", err)
	}

	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() > int64(^uint32(0)) {
		return nil, fmt.Errorf("RSA exponent out of range")
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: int(e.Int64()),
	}, nil
}
