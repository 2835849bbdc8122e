package validator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestValidateIdentifierBlankCandidate(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}

	for _, candidate := range []string{"", "   ", "\n\t"} {
		result := c.ValidateIdentifier(context.Background(), candidate)
		if result.Valid {
			t.Errorf("candidate %q: expected invalid", candidate)
		}
		if result.Error != ErrNoIdentifier {
			t.Errorf("candidate %q: error = %q, want %q", candidate, result.Error, ErrNoIdentifier)
		}
	}

	if n := calls.Load(); n != 0 {
		t.Errorf("blank candidates made %d network calls, want 0", n)
	}
}

func TestValidateIdentifierSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req validateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		if req.Identifier != "CCCl" {
			t.Errorf("identifier = %q, want CCCl", req.Identifier)
		}
		if r.URL.Path != "/v1/validate" {
			t.Errorf("path = %q, want /v1/validate", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"valid":true,"canonical_identifier":"CCCl"}`))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	result := c.ValidateIdentifier(context.Background(), "CCCl")

	if !result.Valid {
		t.Fatalf("expected valid, got error %q", result.Error)
	}
	if result.CanonicalIdentifier != "CCCl" {
		t.Errorf("canonical_identifier = %q", result.CanonicalIdentifier)
	}
}

func TestValidateIdentifierRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"valid":false,"error":"unbalanced brackets"}`))
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	result := c.ValidateIdentifier(context.Background(), "CC(Cl")

	if result.Valid {
		t.Fatal("expected invalid")
	}
	if result.Error != "unbalanced brackets" {
		t.Errorf("error = %q", result.Error)
	}
}

func TestValidateIdentifierServiceFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		close   bool
	}{
		{
			name:  "connection refused",
			close: true,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "undecodable body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := tt.handler
			if handler == nil {
				handler = func(w http.ResponseWriter, r *http.Request) {}
			}
			srv := httptest.NewServer(handler)
			if tt.close {
				srv.Close()
			} else {
				defer srv.Close()
			}

			c, _ := New(Config{BaseURL: srv.URL})
			result := c.ValidateIdentifier(context.Background(), "CCO")

			if result.Valid {
				t.Fatal("expected invalid")
			}
			if result.Error != ErrServiceError {
				t.Errorf("error = %q, want %q", result.Error, ErrServiceError)
			}
		})
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for missing BaseURL")
	}
}
