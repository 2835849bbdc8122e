package http

import (
	"context"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestServerRoutesAndMiddleware(t *testing.T) {
	srv := NewServer(completedAnalyzer(), nil,
		WithMaxBodySize(1<<20),
		WithShutdownTimeout(time.Second),
		WithRoute("GET /healthz", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ok\n"))
		})),
		WithOuterMiddleware(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("X-Outer", "applied")
				next.ServeHTTP(w, r)
			})
		}),
	)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.ServeOn(ln) }()

	base := "http://" + ln.Addr().String()

	resp, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatalf("health request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from /healthz, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Outer") != "applied" {
		t.Error("outer middleware did not wrap extra route")
	}

	resp, err = http.Post(base+"/v1/analyses", "application/json",
		strings.NewReader(`{"base_molecule":"ethanol","mutation":"replace hydroxyl with chlorine"}`))
	if err != nil {
		t.Fatalf("analysis request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from analysis, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Outer") != "applied" {
		t.Error("outer middleware did not wrap adapter routes")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after shutdown")
	}
}
