package transport

import (
	"context"

	"github.com/molmute/molmute/pkg/api"
)

// Analyzer handles the core analyze-mutation operation. It is the primary
// handler contract: the implementation receives a validated-or-not request
// and runs the full reconciliation pipeline to one terminal outcome.
// A returned error is always a request-level failure (*api.APIError); a
// rejected structure validation is NOT an error, it is a response with
// status api.AnalysisStatusRejected.
type Analyzer interface {
	Analyze(ctx context.Context, req *api.MutationRequest) (*api.AnalysisResponse, error)
}

// AnalyzerFunc is an adapter that allows using an ordinary function as
// an Analyzer.
type AnalyzerFunc func(ctx context.Context, req *api.MutationRequest) (*api.AnalysisResponse, error)

// Analyze calls f(ctx, req).
func (f AnalyzerFunc) Analyze(ctx context.Context, req *api.MutationRequest) (*api.AnalysisResponse, error) {
	return f(ctx, req)
}

// ListOptions controls pagination and ordering for list operations.
type ListOptions struct {
	After  string // Cursor: return items after this ID.
	Before string // Cursor: return items before this ID.
	Limit  int    // Maximum number of items to return (default 20, max 100).
	Status string // Filter by analysis status ("completed" or "rejected").
	Order  string // Sort order: "asc" or "desc" (default "desc").
}

// AnalysisList holds a paginated list of stored analyses.
type AnalysisList struct {
	Object  string                  `json:"object"`
	Data    []*api.AnalysisResponse `json:"data"`
	HasMore bool                    `json:"has_more"`
	FirstID string                  `json:"first_id"`
	LastID  string                  `json:"last_id"`
}

// AnalysisStore handles persistence, retrieval, and deletion of completed
// analyses. It is optional: stateless deployments pass a nil store and the
// read endpoints report the capability as unavailable.
type AnalysisStore interface {
	// SaveAnalysis persists a completed or rejected analysis.
	SaveAnalysis(ctx context.Context, resp *api.AnalysisResponse) error

	// GetAnalysis retrieves an analysis by ID. Returns storage.ErrNotFound
	// if the analysis does not exist or has been soft-deleted.
	GetAnalysis(ctx context.Context, id string) (*api.AnalysisResponse, error)

	// DeleteAnalysis soft-deletes an analysis by ID.
	DeleteAnalysis(ctx context.Context, id string) error

	// ListAnalyses returns a paginated list of stored analyses, scoped by
	// tenant when one is present in the context.
	ListAnalyses(ctx context.Context, opts ListOptions) (*AnalysisList, error)

	// HealthCheck verifies the store connection is functional.
	HealthCheck(ctx context.Context) error

	// Close releases store resources.
	Close() error
}
