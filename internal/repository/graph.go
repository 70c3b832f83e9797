package repository

import (
	"context"

	"github.com/halcyondata/recall/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GraphRepository persists call-graph edges and answers path queries.
type GraphRepository struct {
	db dbtx
}

func NewGraphRepository(pool *pgxpool.Pool) *GraphRepository {
	return &GraphRepository{db: pool}
}

func NewGraphRepositoryWithTx(tx pgx.Tx) *GraphRepository {
	return &GraphRepository{db: tx}
}

// UpsertEdges inserts edges, updating location info on (tenant, caller,
// callee) conflicts.
func (r *GraphRepository) UpsertEdges(ctx context.Context, edges []*domain.GraphEdge) error {
	for _, e := range edges {
		_, err := r.db.Exec(ctx,
			`INSERT INTO graph_edges (id, tenant_id, item_id, caller, callee, file, line, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (tenant_id, caller, callee)
			 DO UPDATE SET item_id = EXCLUDED.item_id, file = EXCLUDED.file, line = EXCLUDED.line`,
			e.ID, e.TenantID, nullableString(e.ItemID), e.Caller, e.Callee,
			nullableString(e.File), nullableInt(e.Line), e.CreatedAt,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *GraphRepository) ListByCaller(ctx context.Context, tenantID, caller string) ([]*domain.GraphEdge, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, tenant_id, item_id, caller, callee, file, line, created_at
		 FROM graph_edges
		 WHERE tenant_id = $1 AND caller = $2
		 ORDER BY callee ASC`,
		tenantID, caller,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var edges []*domain.GraphEdge
	for rows.Next() {
		var e domain.GraphEdge
		var itemID, file *string
		var line *int
		if err := rows.Scan(&e.ID, &e.TenantID, &itemID, &e.Caller, &e.Callee, &file, &line, &e.CreatedAt); err != nil {
			return nil, err
		}
		if itemID != nil {
			e.ItemID = *itemID
		}
		if file != nil {
			e.File = *file
		}
		if line != nil {
			e.Line = *line
		}
		edges = append(edges, &e)
	}
	return edges, rows.Err()
}

// Paths walks caller→callee edges from the given symbol, collecting every
// reachable path up to maxDepth hops. The visited-array check makes cycles
// terminate. An empty `to` returns all paths; otherwise only paths ending at
// that symbol.
func (r *GraphRepository) Paths(ctx context.Context, tenantID, from, to string, maxDepth int) ([]*domain.GraphPath, error) {
	maxDepth = domain.ClampPathDepth(maxDepth)

	rows, err := r.db.Query(ctx, `
		WITH RECURSIVE walk AS (
			SELECT e.callee, ARRAY[e.caller, e.callee] AS path, 1 AS depth
			FROM graph_edges e
			WHERE e.tenant_id = $1 AND e.caller = $2
			UNION ALL
			SELECT e.callee, w.path || e.callee, w.depth + 1
			FROM graph_edges e
			JOIN walk w ON e.caller = w.callee
			WHERE e.tenant_id = $1
			  AND w.depth < $3
			  AND e.callee <> ALL(w.path)
		)
		SELECT path, depth FROM walk
		WHERE ($4::text IS NULL OR path[array_length(path, 1)] = $4::text)
		ORDER BY depth ASC, path ASC`,
		tenantID, from, maxDepth, nullableString(to),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []*domain.GraphPath
	for rows.Next() {
		var p domain.GraphPath
		if err := rows.Scan(&p.Symbols, &p.Depth); err != nil {
			return nil, err
		}
		paths = append(paths, &p)
	}
	return paths, rows.Err()
}

func nullableInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
