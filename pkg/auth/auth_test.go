package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/molmute/molmute/pkg/storage"
)

// fixedAuthenticator always returns the same result.
type fixedAuthenticator struct {
	result Result
	calls  int
}

func (f *fixedAuthenticator) Authenticate(_ context.Context, _ *http.Request) Result {
	f.calls++
	return f.result
}

func request() *http.Request {
	return httptest.NewRequest(http.MethodPost, "/v1/analyses", nil)
}

func TestChainFirstNonAbstainWins(t *testing.T) {
	abstainer := &fixedAuthenticator{result: Result{Decision: Abstain}}
	allower := &fixedAuthenticator{result: Result{Decision: Allow, Identity: &Identity{Subject: "svc-a"}}}
	denier := &fixedAuthenticator{result: Result{Decision: Deny, Err: ErrUnauthenticated}}

	chain := &Chain{Authenticators: []Authenticator{abstainer, allower, denier}}
	result := chain.Authenticate(context.Background(), request())

	if result.Decision != Allow {
		t.Errorf("decision = %v, want Allow", result.Decision)
	}
	if result.Identity == nil || result.Identity.Subject != "svc-a" {
		t.Errorf("identity = %+v", result.Identity)
	}
	if denier.calls != 0 {
		t.Error("chain should stop at the first non-abstain vote")
	}
}

func TestChainDenyStops(t *testing.T) {
	denier := &fixedAuthenticator{result: Result{Decision: Deny, Err: ErrUnauthenticated}}
	allower := &fixedAuthenticator{result: Result{Decision: Allow, Identity: &Identity{Subject: "svc-a"}}}

	chain := &Chain{Authenticators: []Authenticator{denier, allower}}
	result := chain.Authenticate(context.Background(), request())

	if result.Decision != Deny {
		t.Errorf("decision = %v, want Deny", result.Decision)
	}
	if allower.calls != 0 {
		t.Error("deny should stop the chain")
	}
}

func TestChainAllAbstainUsesDefault(t *testing.T) {
	abstainer := &fixedAuthenticator{result: Result{Decision: Abstain}}

	open := &Chain{Authenticators: []Authenticator{abstainer}, DefaultDecision: Allow}
	result := open.Authenticate(context.Background(), request())
	if result.Decision != Allow {
		t.Errorf("open chain decision = %v, want Allow", result.Decision)
	}
	if result.Identity == nil || result.Identity.Subject != "anonymous" {
		t.Errorf("open chain identity = %+v", result.Identity)
	}

	closed := &Chain{Authenticators: []Authenticator{abstainer}, DefaultDecision: Deny}
	result = closed.Authenticate(context.Background(), request())
	if result.Decision != Deny {
		t.Errorf("closed chain decision = %v, want Deny", result.Decision)
	}
}

func TestTenantID(t *testing.T) {
	var nilIdentity *Identity
	if nilIdentity.TenantID() != "" {
		t.Error("nil identity should have empty tenant")
	}

	id := &Identity{Subject: "s", Metadata: map[string]string{"tenant_id": "acme"}}
	if id.TenantID() != "acme" {
		t.Errorf("tenant = %q", id.TenantID())
	}
}

func TestMiddlewareAllow(t *testing.T) {
	chain := &Chain{Authenticators: []Authenticator{
		&fixedAuthenticator{result: Result{Decision: Allow, Identity: &Identity{
			Subject:  "svc-a",
			Metadata: map[string]string{"tenant_id": "acme"},
		}}},
	}}

	var gotIdentity *Identity
	var gotTenant string
	handler := Middleware(chain, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIdentity = IdentityFromContext(r.Context())
		gotTenant = storage.GetTenant(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, request())

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gotIdentity == nil || gotIdentity.Subject != "svc-a" {
		t.Errorf("identity = %+v", gotIdentity)
	}
	if gotTenant != "acme" {
		t.Errorf("tenant = %q", gotTenant)
	}
}

func TestMiddlewareDeny(t *testing.T) {
	chain := &Chain{DefaultDecision: Deny}
	handler := Middleware(chain, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run on deny")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, request())

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMiddlewareBypass(t *testing.T) {
	chain := &Chain{DefaultDecision: Deny}
	var ran bool
	handler := Middleware(chain, nil, DefaultBypassEndpoints)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ran = true
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK || !ran {
		t.Errorf("bypass endpoint blocked: status %d ran %v", rec.Code, ran)
	}
}

func TestMiddlewareEmptySubject(t *testing.T) {
	chain := &Chain{Authenticators: []Authenticator{
		&fixedAuthenticator{result: Result{Decision: Allow, Identity: &Identity{}}},
	}}
	handler := Middleware(chain, nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not run for an empty subject")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, request())

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestMiddlewareRateLimited(t *testing.T) {
	chain := &Chain{Authenticators: []Authenticator{
		&fixedAuthenticator{result: Result{Decision: Allow, Identity: &Identity{Subject: "svc-a"}}},
	}}
	limiter := NewInProcessLimiter(nil, 1)
	handler := Middleware(chain, limiter, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, request())
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, request())
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
}

func TestInProcessLimiter(t *testing.T) {
	limiter := NewInProcessLimiter(map[string]TierConfig{
		"pro":       {RequestsPerMinute: 3},
		"unlimited": {RequestsPerMinute: 0},
	}, 1)
	ctx := context.Background()

	pro := &Identity{Subject: "a", ServiceTier: "pro"}
	for i := 0; i < 3; i++ {
		if err := limiter.Allow(ctx, pro); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}
	if err := limiter.Allow(ctx, pro); err != ErrTooManyRequests {
		t.Errorf("over-limit err = %v, want ErrTooManyRequests", err)
	}

	// Zero RPM means no limit for that tier.
	free := &Identity{Subject: "b", ServiceTier: "unlimited"}
	for i := 0; i < 10; i++ {
		if err := limiter.Allow(ctx, free); err != nil {
			t.Fatalf("unlimited tier rejected: %v", err)
		}
	}

	// Unknown tier falls back to the default RPM.
	other := &Identity{Subject: "c", ServiceTier: "basic"}
	if err := limiter.Allow(ctx, other); err != nil {
		t.Fatal(err)
	}
	if err := limiter.Allow(ctx, other); err != ErrTooManyRequests {
		t.Errorf("default tier over-limit err = %v", err)
	}

	// Counters are per subject.
	peer := &Identity{Subject: "d", ServiceTier: "basic"}
	if err := limiter.Allow(ctx, peer); err != nil {
		t.Errorf("separate subject should have its own window: %v", err)
	}
}

func TestIdentityContext(t *testing.T) {
	if IdentityFromContext(context.Background()) != nil {
		t.Error("empty context should have no identity")
	}

	id := &Identity{Subject: "svc-a"}
	ctx := SetIdentity(context.Background(), id)
	if got := IdentityFromContext(ctx); got != id {
		t.Errorf("got = %+v", got)
	}
}
