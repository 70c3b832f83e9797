package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	hnswIndexName    = "idx_item_chunks_embedding_hnsw"
	ivfflatIndexName = "idx_item_chunks_embedding_ivfflat"
)

// IndexConfig selects the approximate nearest-neighbor index over
// item_chunks.embedding. The index lives outside migrations because the
// strategy and its tunables are deployment configuration.
type IndexConfig struct {
	Strategy           string // "hnsw", "ivfflat", or "none"
	HNSWM              int
	HNSWEfConstruction int
	IVFFlatLists       int
}

// EnsureVectorIndex creates the configured ANN index if missing and drops the
// other strategy's index so exactly one is active.
func EnsureVectorIndex(ctx context.Context, pool *pgxpool.Pool, cfg IndexConfig) error {
	switch cfg.Strategy {
	case "", "hnsw":
		m := cfg.HNSWM
		if m <= 0 {
			m = 16
		}
		efConstruction := cfg.HNSWEfConstruction
		if efConstruction <= 0 {
			efConstruction = 64
		}
		if _, err := pool.Exec(ctx, fmt.Sprintf(`DROP INDEX IF EXISTS %s`, ivfflatIndexName)); err != nil {
			return fmt.Errorf("failed to drop ivfflat index: %w", err)
		}
		_, err := pool.Exec(ctx, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s ON item_chunks
			 USING hnsw (embedding vector_cosine_ops)
			 WITH (m = %d, ef_construction = %d)`,
			hnswIndexName, m, efConstruction,
		))
		if err != nil {
			return fmt.Errorf("failed to create hnsw index: %w", err)
		}
		return nil

	case "ivfflat":
		lists := cfg.IVFFlatLists
		if lists <= 0 {
			lists = 100
		}
		if _, err := pool.Exec(ctx, fmt.Sprintf(`DROP INDEX IF EXISTS %s`, hnswIndexName)); err != nil {
			return fmt.Errorf("failed to drop hnsw index: %w", err)
		}
		_, err := pool.Exec(ctx, fmt.Sprintf(
			`CREATE INDEX IF NOT EXISTS %s ON item_chunks
			 USING ivfflat (embedding vector_cosine_ops)
			 WITH (lists = %d)`,
			ivfflatIndexName, lists,
		))
		if err != nil {
			return fmt.Errorf("failed to create ivfflat index: %w", err)
		}
		return nil

	case "none":
		return nil

	default:
		return fmt.Errorf("unknown vector index strategy %q", cfg.Strategy)
	}
}
