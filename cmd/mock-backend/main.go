// Command mock-backend runs a deterministic Chat Completions server for
// conformance testing. It returns schema-conformant mutation analyses keyed
// off the request content, so the full pipeline can be exercised without a
// real model.
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
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
		port = "9090"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("GET /v1/models", handleModels)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// --- Request types ---

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat json.RawMessage `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// --- Response types ---

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int     `json:"index"`
	Message      chatMsg `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type chatMsg struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// --- Handler ---

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	resp := classifyAndRespond(&req)
	resp.Model = req.Model
	if resp.Model == "" {
		resp.Model = "mock-model"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// classifyAndRespond picks a canned analysis based on the user payload.
// Magic markers in the payload trigger failure modes so clients can test
// their error handling:
//
//	"return empty"   - content field present but empty
//	"return garbage" - non-JSON content
//	"drop summary"   - JSON missing a required field
func classifyAndRespond(req *chatRequest) chatResponse {
	payload := strings.ToLower(getLastUserMessage(req))

	switch {
	case strings.Contains(payload, "return empty"):
		return makeTextResponse("")
	case strings.Contains(payload, "return garbage"):
		return makeTextResponse("the backend had other plans")
	case strings.Contains(payload, "drop summary"):
		return makeTextResponse(analysisMissingSummary)
	case wantsExtendedSchema(req):
		return makeTextResponse(extendedAnalysis)
	default:
		return makeTextResponse(basicAnalysis)
	}
}

// wantsExtendedSchema checks whether the announced response schema requires
// the structures field.
func wantsExtendedSchema(req *chatRequest) bool {
	return strings.Contains(string(req.ResponseFormat), `"structures"`)
}

const basicAnalysis = `{
  "summary": "Replacing the hydroxyl group of ethanol with chlorine yields chloroethane, converting a polar protic alcohol into a haloalkane.",
  "key_changes": ["OH group replaced by Cl", "hydrogen bonding lost", "boiling point drops"],
  "mechanisms": ["Nucleophilic substitution (SN2) with a chlorinating agent such as SOCl2"],
  "example_reactions": ["CH3CH2OH + SOCl2 -> CH3CH2Cl + SO2 + HCl"],
  "explanation_levels": {
    "beginner": "We swap the OH part of the molecule for a chlorine atom.",
    "intermediate": "The C-O bond is broken and a C-Cl bond forms, changing the compound class from alcohol to alkyl halide.",
    "advanced": "Thionyl chloride activates the hydroxyl as a chlorosulfite leaving group, enabling backside attack by chloride."
  }
}`

const extendedAnalysis = `{
  "summary": "Replacing the hydroxyl group of ethanol with chlorine yields chloroethane, converting a polar protic alcohol into a haloalkane.",
  "key_changes": ["OH group replaced by Cl", "hydrogen bonding lost", "boiling point drops"],
  "mechanisms": ["Nucleophilic substitution (SN2) with a chlorinating agent such as SOCl2"],
  "example_reactions": ["CH3CH2OH + SOCl2 -> CH3CH2Cl + SO2 + HCl"],
  "explanation_levels": {
    "beginner": "We swap the OH part of the molecule for a chlorine atom.",
    "intermediate": "The C-O bond is broken and a C-Cl bond forms, changing the compound class from alcohol to alkyl halide.",
    "advanced": "Thionyl chloride activates the hydroxyl as a chlorosulfite leaving group, enabling backside attack by chloride."
  },
  "iupac_names": {
    "original": "ethanol",
    "mutated": "chloroethane"
  },
  "structures": {
    "original_identifier_guess": "CCO",
    "mutated_identifier_guess": "CCCl"
  }
}`

const analysisMissingSummary = `{
  "key_changes": ["OH group replaced by Cl"],
  "mechanisms": ["SN2 substitution"],
  "example_reactions": ["CH3CH2OH + SOCl2 -> CH3CH2Cl + SO2 + HCl"],
  "explanation_levels": {
    "beginner": "We swap the OH part for chlorine.",
    "intermediate": "C-O bond breaks, C-Cl bond forms.",
    "advanced": "Chlorosulfite leaving group, backside attack."
  }
}`

func makeTextResponse(text string) chatResponse {
	return chatResponse{
		ID:     "chatcmpl-mock-analysis",
		Object: "chat.completion",
		Choices: []chatChoice{
			{
				Index: 0,
				Message: chatMsg{
					Role:    "assistant",
					Content: &text,
				},
				FinishReason: "stop",
			},
		},
		Usage: chatUsage{PromptTokens: 120, CompletionTokens: 180, TotalTokens: 300},
	}
}

// --- Models endpoint ---

func handleModels(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"object": "list",
		"data": []map[string]any{
			{"id": "mock-model", "object": "model", "owned_by": "molmute-mock"},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// --- Helpers ---

func getLastUserMessage(req *chatRequest) string {
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content
		}
	}
	return ""
}
