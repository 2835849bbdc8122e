package apikey

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/molmute/molmute/pkg/auth"
)

func newTestAuthenticator() *Authenticator {
	return New([]RawKeyEntry{
		{
			Key: "key-alpha",
			Identity: auth.Identity{
				Subject:     "svc-alpha",
				ServiceTier: "pro",
				Metadata:    map[string]string{"tenant_id": "acme"},
			},
		},
		{
			Key:      "key-beta",
			Identity: auth.Identity{Subject: "svc-beta"},
		},
	})
}

func requestWithAuth(header string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/v1/analyses", nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	return r
}

func TestAuthenticateValidKey(t *testing.T) {
	a := newTestAuthenticator()
	result := a.Authenticate(context.Background(), requestWithAuth("Bearer key-alpha"))

	if result.Decision != auth.Allow {
		t.Fatalf("decision = %v, want Allow", result.Decision)
	}
	if result.Identity.Subject != "svc-alpha" {
		t.Errorf("subject = %q", result.Identity.Subject)
	}
	if result.Identity.TenantID() != "acme" {
		t.Errorf("tenant = %q", result.Identity.TenantID())
	}
}

func TestAuthenticateInvalidKey(t *testing.T) {
	a := newTestAuthenticator()
	result := a.Authenticate(context.Background(), requestWithAuth("Bearer wrong-key"))

	if result.Decision != auth.Deny {
		t.Errorf("decision = %v, want Deny", result.Decision)
	}
	if result.Err == nil {
		t.Error("deny should carry an error")
	}
}

func TestAuthenticateEmptyToken(t *testing.T) {
	a := newTestAuthenticator()
	result := a.Authenticate(context.Background(), requestWithAuth("Bearer "))

	if result.Decision != auth.Deny {
		t.Errorf("decision = %v, want Deny", result.Decision)
	}
}

func TestAuthenticateAbstains(t *testing.T) {
	a := newTestAuthenticator()

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"basic auth", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := a.Authenticate(context.Background(), requestWithAuth(tt.header))
			if result.Decision != auth.Abstain {
				t.Errorf("decision = %v, want Abstain", result.Decision)
			}
		})
	}
}

func TestIdentityIsCopied(t *testing.T) {
	a := newTestAuthenticator()

	first := a.Authenticate(context.Background(), requestWithAuth("Bearer key-beta"))
	first.Identity.Subject = "mutated"

	second := a.Authenticate(context.Background(), requestWithAuth("Bearer key-beta"))
	if second.Identity.Subject != "svc-beta" {
		t.Errorf("subject = %q, identity leaked between calls", second.Identity.Subject)
	}
}
