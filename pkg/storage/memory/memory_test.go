package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/molmute/molmute/pkg/api"
	"github.com/molmute/molmute/pkg/storage"
	"github.com/molmute/molmute/pkg/transport"
)

func analysis(id string, createdAt int64, status api.AnalysisStatus) *api.AnalysisResponse {
	return &api.AnalysisResponse{
		ID:        id,
		Object:    "analysis",
		Status:    status,
		CreatedAt: createdAt,
		Analysis:  &api.AnalysisResult{Summary: "s"},
	}
}

func TestSaveAndGet(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	resp := analysis("anl_aaaaaaaaaaaaaaaaaaaaaaaa", 100, api.AnalysisStatusCompleted)
	if err := s.SaveAnalysis(ctx, resp); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetAnalysis(ctx, resp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != resp.ID || got.Analysis.Summary != "s" {
		t.Errorf("got = %+v", got)
	}
}

func TestSaveConflict(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	resp := analysis("anl_aaaaaaaaaaaaaaaaaaaaaaaa", 100, api.AnalysisStatusCompleted)
	if err := s.SaveAnalysis(ctx, resp); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveAnalysis(ctx, resp); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate save error = %v, want ErrConflict", err)
	}
}

func TestGetNotFound(t *testing.T) {
	s := New(0)
	if _, err := s.GetAnalysis(context.Background(), "anl_bbbbbbbbbbbbbbbbbbbbbbbb"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSoftDelete(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	resp := analysis("anl_aaaaaaaaaaaaaaaaaaaaaaaa", 100, api.AnalysisStatusCompleted)
	s.SaveAnalysis(ctx, resp)

	if err := s.DeleteAnalysis(ctx, resp.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetAnalysis(ctx, resp.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("deleted entry still readable: %v", err)
	}
	if err := s.DeleteAnalysis(ctx, resp.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("double delete error = %v, want ErrNotFound", err)
	}
}

func TestTenantScoping(t *testing.T) {
	s := New(0)
	ctxA := storage.SetTenant(context.Background(), "tenant-a")
	ctxB := storage.SetTenant(context.Background(), "tenant-b")

	resp := analysis("anl_aaaaaaaaaaaaaaaaaaaaaaaa", 100, api.AnalysisStatusCompleted)
	if err := s.SaveAnalysis(ctxA, resp); err != nil {
		t.Fatal(err)
	}

	if _, err := s.GetAnalysis(ctxA, resp.ID); err != nil {
		t.Errorf("owning tenant read failed: %v", err)
	}
	if _, err := s.GetAnalysis(ctxB, resp.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("cross-tenant read should be ErrNotFound, got %v", err)
	}
	if err := s.DeleteAnalysis(ctxB, resp.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("cross-tenant delete should be ErrNotFound, got %v", err)
	}
}

func TestEvictionAtCapacity(t *testing.T) {
	s := New(2)
	ctx := context.Background()

	ids := []string{
		"anl_aaaaaaaaaaaaaaaaaaaaaaaa",
		"anl_bbbbbbbbbbbbbbbbbbbbbbbb",
		"anl_cccccccccccccccccccccccc",
	}
	for i, id := range ids {
		if err := s.SaveAnalysis(ctx, analysis(id, int64(100+i), api.AnalysisStatusCompleted)); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := s.GetAnalysis(ctx, ids[0]); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("oldest entry should be evicted, got %v", err)
	}
	for _, id := range ids[1:] {
		if _, err := s.GetAnalysis(ctx, id); err != nil {
			t.Errorf("entry %s should survive: %v", id, err)
		}
	}
}

func TestListAnalyses(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("anl_%024d", i)
		status := api.AnalysisStatusCompleted
		if i%2 == 1 {
			status = api.AnalysisStatusRejected
		}
		if err := s.SaveAnalysis(ctx, analysis(id, int64(100+i), status)); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}

	// Default order is newest first.
	list, err := s.ListAnalyses(ctx, transport.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 5 {
		t.Fatalf("len = %d, want 5", len(list.Data))
	}
	if list.Data[0].ID != ids[4] || list.Data[4].ID != ids[0] {
		t.Errorf("default order not desc: first %s last %s", list.Data[0].ID, list.Data[4].ID)
	}
	if list.FirstID != ids[4] || list.LastID != ids[0] {
		t.Errorf("cursor ids = %s / %s", list.FirstID, list.LastID)
	}
	if list.HasMore {
		t.Error("has_more should be false")
	}

	// Status filter.
	list, err = s.ListAnalyses(ctx, transport.ListOptions{Status: "rejected"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 2 {
		t.Errorf("rejected count = %d, want 2", len(list.Data))
	}

	// Limit and has_more.
	list, err = s.ListAnalyses(ctx, transport.ListOptions{Limit: 2, Order: "asc"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 2 || !list.HasMore {
		t.Errorf("limited list: len %d has_more %v", len(list.Data), list.HasMore)
	}
	if list.Data[0].ID != ids[0] {
		t.Errorf("asc order first = %s, want %s", list.Data[0].ID, ids[0])
	}

	// Cursor pagination: page after the second item ascending.
	list, err = s.ListAnalyses(ctx, transport.ListOptions{After: ids[1], Order: "asc"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 3 || list.Data[0].ID != ids[2] {
		t.Errorf("after cursor page wrong: %+v", list.Data)
	}

	// Unknown cursor yields an empty page, not an error.
	list, err = s.ListAnalyses(ctx, transport.ListOptions{After: "anl_zzzzzzzzzzzzzzzzzzzzzzzz"})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 0 {
		t.Errorf("unknown cursor returned %d items", len(list.Data))
	}
	if list.Data == nil {
		t.Error("empty page should serialize as [], not null")
	}
}

func TestListExcludesDeleted(t *testing.T) {
	s := New(0)
	ctx := context.Background()

	a := analysis("anl_aaaaaaaaaaaaaaaaaaaaaaaa", 100, api.AnalysisStatusCompleted)
	b := analysis("anl_bbbbbbbbbbbbbbbbbbbbbbbb", 101, api.AnalysisStatusCompleted)
	s.SaveAnalysis(ctx, a)
	s.SaveAnalysis(ctx, b)
	s.DeleteAnalysis(ctx, a.ID)

	list, err := s.ListAnalyses(ctx, transport.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(list.Data) != 1 || list.Data[0].ID != b.ID {
		t.Errorf("list = %+v", list.Data)
	}
}
