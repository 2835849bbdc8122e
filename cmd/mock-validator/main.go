// Command mock-validator runs a deterministic structure validation server
// for conformance testing. It accepts SMILES-like identifier strings and
// applies simple well-formedness heuristics instead of a real
// cheminformatics toolkit.
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9191)
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9191"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/validate", handleValidate)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock validator starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock validator failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock validator shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

type validateRequest struct {
	Identifier string `json:"identifier"`
}

type validateResponse struct {
	Valid               bool   `json:"valid"`
	CanonicalIdentifier string `json:"canonical_identifier,omitempty"`
	Error               string `json:"error,omitempty"`
}

func handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid request"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(checkIdentifier(req.Identifier))
}

// checkIdentifier applies cheap well-formedness heuristics: non-empty,
// no whitespace, balanced brackets and parentheses, and only characters
// that occur in SMILES notation.
func checkIdentifier(identifier string) validateResponse {
	s := strings.TrimSpace(identifier)
	if s == "" {
		return validateResponse{Valid: false, Error: "empty identifier"}
	}
	if strings.ContainsAny(s, " \t\n") {
		return validateResponse{Valid: false, Error: "identifier contains whitespace"}
	}
	if !balanced(s, '(', ')') || !balanced(s, '[', ']') {
		return validateResponse{Valid: false, Error: "unbalanced brackets"}
	}
	for _, c := range s {
		if !validSMILESChar(c) {
			return validateResponse{Valid: false, Error: "invalid character in identifier"}
		}
	}

	// Canonicalization here is just uppercase-normalizing ring-closure
	// digits' neighbors; a stand-in for a real toolkit's canonical form.
	return validateResponse{Valid: true, CanonicalIdentifier: s}
}

func balanced(s string, open, close rune) bool {
	depth := 0
	for _, c := range s {
		switch c {
		case open:
			depth++
		case close:
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

func validSMILESChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.ContainsRune("()[]=#+-@/\\%.", c)
}
