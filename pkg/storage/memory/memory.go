// Package memory implements transport.AnalysisStore without external
// dependencies. Analyses live in process memory and vanish on restart,
// which suits tests and single-instance deployments with no durability
// requirements.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/molmute/molmute/pkg/api"
	"github.com/molmute/molmute/pkg/storage"
	"github.com/molmute/molmute/pkg/transport"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type record struct {
	resp      *api.AnalysisResponse
	tenantID  string
	deletedAt *time.Time
}

// Store is an in-memory AnalysisStore. With a positive maxSize the
// oldest record is dropped when a save would exceed the limit.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record
	order   []string // insertion order, oldest first
	maxSize int      // 0 = unlimited
}

var _ transport.AnalysisStore = (*Store)(nil)

// New creates an in-memory store bounded to maxSize records, or
// unbounded when maxSize is 0.
func New(maxSize int) *Store {
	return &Store{
		records: make(map[string]*record),
		maxSize: maxSize,
	}
}

// SaveAnalysis stores an analysis outcome. Saving an ID that already
// exists returns ErrConflict.
func (s *Store) SaveAnalysis(ctx context.Context, resp *api.AnalysisResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[resp.ID]; exists {
		return storage.ErrConflict
	}

	for s.maxSize > 0 && len(s.records) >= s.maxSize && len(s.order) > 0 {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.records, oldest)
	}

	s.records[resp.ID] = &record{
		resp:     resp,
		tenantID: storage.GetTenant(ctx),
	}
	s.order = append(s.order, resp.ID)
	return nil
}

// GetAnalysis returns a stored analysis, or ErrNotFound when the ID is
// unknown, soft-deleted, or belongs to another tenant.
func (s *Store) GetAnalysis(ctx context.Context, id string) (*api.AnalysisResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec := s.records[id]
	if !visible(rec, storage.GetTenant(ctx)) {
		return nil, storage.ErrNotFound
	}
	return rec.resp, nil
}

// DeleteAnalysis marks an analysis deleted. The record stays in memory
// until eviction reclaims it, but no read path returns it.
func (s *Store) DeleteAnalysis(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.records[id]
	if !visible(rec, storage.GetTenant(ctx)) {
		return storage.ErrNotFound
	}
	now := time.Now()
	rec.deletedAt = &now
	return nil
}

// ListAnalyses returns analyses for the current tenant, optionally
// filtered by status, ordered by creation time with cursor pagination.
func (s *Store) ListAnalyses(ctx context.Context, opts transport.ListOptions) (*transport.AnalysisList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tenantID := storage.GetTenant(ctx)
	matches := make([]*api.AnalysisResponse, 0)
	for _, rec := range s.records {
		if !visible(rec, tenantID) {
			continue
		}
		if opts.Status != "" && string(rec.resp.Status) != opts.Status {
			continue
		}
		matches = append(matches, rec.resp)
	}

	sortByCreation(matches, opts.Order == "asc")

	switch {
	case opts.After != "":
		matches = sliceAfter(matches, opts.After)
	case opts.Before != "":
		matches = sliceBefore(matches, opts.Before)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	hasMore := len(matches) > limit
	if hasMore {
		matches = matches[:limit]
	}

	result := &transport.AnalysisList{
		Object:  "list",
		Data:    matches,
		HasMore: hasMore,
	}
	if len(matches) > 0 {
		result.FirstID = matches[0].ID
		result.LastID = matches[len(matches)-1].ID
	}
	return result, nil
}

// HealthCheck always succeeds for the in-memory store.
func (s *Store) HealthCheck(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

func visible(rec *record, tenantID string) bool {
	if rec == nil || rec.deletedAt != nil {
		return false
	}
	return tenantID == "" || rec.tenantID == tenantID
}

// sortByCreation orders by created_at with ID as tiebreaker, so pages
// are stable across identical timestamps.
func sortByCreation(items []*api.AnalysisResponse, asc bool) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if !asc {
			a, b = b, a
		}
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.ID < b.ID
	})
}

// sliceAfter keeps items strictly past the cursor ID. An unknown cursor
// yields an empty page rather than an error.
func sliceAfter(items []*api.AnalysisResponse, cursor string) []*api.AnalysisResponse {
	for i, r := range items {
		if r.ID == cursor {
			return items[i+1:]
		}
	}
	return items[:0]
}

func sliceBefore(items []*api.AnalysisResponse, cursor string) []*api.AnalysisResponse {
	for i, r := range items {
		if r.ID == cursor {
			return items[:i]
		}
	}
	return items[:0]
}
