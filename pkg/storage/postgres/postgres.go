// Package postgres provides a PostgreSQL implementation of transport.AnalysisStore.
// It uses pgx/v5 for connection pooling and JSONB for structured analysis storage.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/molmute/molmute/pkg/api"
	"github.com/molmute/molmute/pkg/storage"
	"github.com/molmute/molmute/pkg/transport"
)

// Store is a PostgreSQL-backed AnalysisStore.
type Store struct {
	pool *pgxpool.Pool
}

// Ensure Store implements transport.AnalysisStore at compile time.
var _ transport.AnalysisStore = (*Store)(nil)

// New creates a new PostgreSQL store with the given configuration.
// If MigrateOnStart is true, schema migrations are applied automatically.
func New(ctx context.Context, cfg Config) (*Store, error) {
	cfg.defaults()

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing DSN: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{pool: pool}

	if cfg.MigrateOnStart {
		if err := s.migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	return s, nil
}

// SaveAnalysis persists a completed or rejected analysis outcome.
func (s *Store) SaveAnalysis(ctx context.Context, resp *api.AnalysisResponse) error {
	tenantID := storage.GetTenant(ctx)

	analysisJSON, err := json.Marshal(resp.Analysis)
	if err != nil {
		return fmt.Errorf("marshaling analysis: %w", err)
	}

	var structuresJSON []byte
	if resp.Structures != nil {
		structuresJSON, err = json.Marshal(resp.Structures)
		if err != nil {
			return fmt.Errorf("marshaling structures: %w", err)
		}
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO analyses (
			id, tenant_id, status, model,
			analysis, canonical_identifier, structures, rdkit_error,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		resp.ID, tenantID, string(resp.Status), resp.Model,
		analysisJSON, nullString(resp.CanonicalIdentifier), nullJSON(structuresJSON), nullString(resp.RDKitError),
		resp.CreatedAt,
	)

	if err != nil {
		if isDuplicateKey(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("inserting analysis: %w", err)
	}

	return nil
}

// GetAnalysis retrieves an analysis by ID, excluding soft-deleted rows.
func (s *Store) GetAnalysis(ctx context.Context, id string) (*api.AnalysisResponse, error) {
	tenantID := storage.GetTenant(ctx)

	query := `
		SELECT id, status, model,
		       analysis, canonical_identifier, structures, rdkit_error,
		       created_at
		FROM analyses
		WHERE id = $1 AND deleted_at IS NULL
	`
	args := []any{id}

	if tenantID != "" {
		query += " AND tenant_id = $2"
		args = append(args, tenantID)
	}

	resp, err := scanAnalysis(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying analysis: %w", err)
	}

	return resp, nil
}

// DeleteAnalysis soft-deletes an analysis by setting deleted_at.
func (s *Store) DeleteAnalysis(ctx context.Context, id string) error {
	tenantID := storage.GetTenant(ctx)

	query := "UPDATE analyses SET deleted_at = $1 WHERE id = $2 AND deleted_at IS NULL"
	args := []any{time.Now(), id}

	if tenantID != "" {
		query += " AND tenant_id = $3"
		args = append(args, tenantID)
	}

	result, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("deleting analysis: %w", err)
	}

	if result.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	return nil
}

// ListAnalyses returns a paginated list of analyses filtered by tenant and
// optionally by status, using keyset pagination on (created_at, id).
func (s *Store) ListAnalyses(ctx context.Context, opts transport.ListOptions) (*transport.AnalysisList, error) {
	tenantID := storage.GetTenant(ctx)

	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conds = append(conds, "deleted_at IS NULL")
	if tenantID != "" {
		conds = append(conds, "tenant_id = "+arg(tenantID))
	}
	if opts.Status != "" {
		conds = append(conds, "status = "+arg(opts.Status))
	}

	asc := opts.Order == "asc"

	// Cursor conditions reference the cursor row's sort position.
	if opts.After != "" {
		op := "<"
		if asc {
			op = ">"
		}
		conds = append(conds, fmt.Sprintf(
			"(created_at, id) %s (SELECT created_at, id FROM analyses WHERE id = %s)",
			op, arg(opts.After)))
	} else if opts.Before != "" {
		op := ">"
		if asc {
			op = "<"
		}
		conds = append(conds, fmt.Sprintf(
			"(created_at, id) %s (SELECT created_at, id FROM analyses WHERE id = %s)",
			op, arg(opts.Before)))
	}

	dir := "DESC"
	if asc {
		dir = "ASC"
	}

	query := fmt.Sprintf(`
		SELECT id, status, model,
		       analysis, canonical_identifier, structures, rdkit_error,
		       created_at
		FROM analyses
		WHERE %s
		ORDER BY created_at %s, id %s
		LIMIT %s
	`, strings.Join(conds, " AND "), dir, dir, arg(limit+1))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	defer rows.Close()

	var matches []*api.AnalysisResponse
	for rows.Next() {
		resp, err := scanAnalysis(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning analysis: %w", err)
		}
		matches = append(matches, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
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
	if result.Data == nil {
		result.Data = []*api.AnalysisResponse{}
	}

	return result, nil
}

// HealthCheck verifies the database connection.
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// scanAnalysis reads one analyses row into an AnalysisResponse.
func scanAnalysis(row pgx.Row) (*api.AnalysisResponse, error) {
	var resp api.AnalysisResponse
	var status string
	var analysisJSON []byte
	var structuresJSON *[]byte
	var canonical, rdkitError *string

	err := row.Scan(
		&resp.ID, &status, &resp.Model,
		&analysisJSON, &canonical, &structuresJSON, &rdkitError,
		&resp.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	resp.Object = "analysis"
	resp.Status = api.AnalysisStatus(status)

	if err := json.Unmarshal(analysisJSON, &resp.Analysis); err != nil {
		return nil, fmt.Errorf("unmarshaling analysis: %w", err)
	}

	if canonical != nil {
		resp.CanonicalIdentifier = *canonical
	}
	if rdkitError != nil {
		resp.RDKitError = *rdkitError
	}
	if structuresJSON != nil {
		var structures api.Structures
		if err := json.Unmarshal(*structuresJSON, &structures); err != nil {
			return nil, fmt.Errorf("unmarshaling structures: %w", err)
		}
		resp.Structures = &structures
	}

	return &resp, nil
}

// nullString converts an empty string to nil for nullable TEXT columns.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// nullJSON converts nil/empty byte slices to nil for nullable JSONB columns.
func nullJSON(b []byte) *[]byte {
	if len(b) == 0 {
		return nil
	}
	return &b
}

// isDuplicateKey checks if the error is a PostgreSQL unique violation (23505).
func isDuplicateKey(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
