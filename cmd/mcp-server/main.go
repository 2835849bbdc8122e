// Command mcp-server exposes mutation analysis as an MCP tool, so agent
// frameworks can run analyses without speaking the HTTP API. It wires the
// same engine as the HTTP server behind an "analyze_mutation" tool.
//
// Configuration matches cmd/server (MOLMUTE_* variables); PORT selects
// the listen port (default: 8090).
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/molmute/molmute/pkg/api"
	"github.com/molmute/molmute/pkg/config"
	"github.com/molmute/molmute/pkg/debug"
	"github.com/molmute/molmute/pkg/engine"
	"github.com/molmute/molmute/pkg/provider/openaicompat"
	"github.com/molmute/molmute/pkg/schema"
	"github.com/molmute/molmute/pkg/validator"
)

func main() {
	if err := run(); err != nil {
		slog.Error("mcp server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	debug.Init("", "")

	port := os.Getenv("PORT")
	if port == "" {
		port = "8090"
	}

	prov, err := openaicompat.New(openaicompat.Config{
		BaseURL: cfg.Generation.BackendURL,
		APIKey:  cfg.Generation.APIKey,
		Model:   cfg.Generation.Model,
		Timeout: cfg.Generation.Timeout,
	})
	if err != nil {
		return fmt.Errorf("creating generation client: %w", err)
	}
	defer prov.Close()

	var vc validator.Client
	if cfg.Validator.BaseURL != "" {
		vc, err = validator.New(validator.Config{
			BaseURL: cfg.Validator.BaseURL,
			Timeout: cfg.Validator.Timeout,
		})
		if err != nil {
			return fmt.Errorf("creating validator client: %w", err)
		}
	}

	eng, err := engine.New(prov, vc, nil, engine.Config{
		Variant: schema.Variant(cfg.Schema.Variant),
		Model:   cfg.Generation.Model,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}

	server := mcp.NewServer(
		&mcp.Implementation{Name: "molmute-mcp", Version: "v1.0.0"},
		nil,
	)

	type AnalyzeInput struct {
		BaseMolecule string `json:"base_molecule" jsonschema_description:"The starting molecule, by name or identifier"`
		Mutation     string `json:"mutation" jsonschema_description:"The structural change to analyze"`
		Question     string `json:"question,omitempty" jsonschema_description:"Optional focus question about the change"`
	}
	mcp.AddTool(server, &mcp.Tool{
		Name:        "analyze_mutation",
		Description: "Analyzes the chemical consequences of a structural change to a molecule",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, input AnalyzeInput) (*mcp.CallToolResult, struct{}, error) {
		resp, err := eng.Analyze(ctx, &api.MutationRequest{
			BaseMolecule: input.BaseMolecule,
			Mutation:     input.Mutation,
			Question:     input.Question,
		})
		if err != nil {
			return nil, struct{}{}, err
		}

		body, err := json.Marshal(resp)
		if err != nil {
			return nil, struct{}{}, fmt.Errorf("marshaling analysis: %w", err)
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				&mcp.TextContent{Text: string(body)},
			},
		}, struct{}{}, nil
	})

	handler := mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return server
	}, nil)

	httpMux := http.NewServeMux()
	httpMux.Handle("/mcp", handler)
	httpMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})

	slog.Info("mcp server starting", "port", port)
	return http.ListenAndServe(":"+port, httpMux)
}
