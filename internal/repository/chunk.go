package repository

import (
	"context"
	"errors"
	"time"

	"github.com/halcyondata/recall/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository persists embedding chunks.
type ChunkRepository struct {
	db dbtx
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{db: pool}
}

func NewChunkRepositoryWithTx(tx pgx.Tx) *ChunkRepository {
	return &ChunkRepository{db: tx}
}

func (r *ChunkRepository) Insert(ctx context.Context, chunk *domain.Chunk) error {
	metadata, err := marshalMetadata(chunk.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO item_chunks (id, item_id, tenant_id, embedding, chunk_index, content_type, content_chunk, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		chunk.ID, chunk.ItemID, chunk.TenantID, pgvector.NewVector(chunk.Embedding),
		chunk.ChunkIndex, chunk.ContentType, nullableString(chunk.ContentChunk), metadata, chunk.CreatedAt,
	)
	return err
}

// GetByID returns a single chunk including its embedding.
func (r *ChunkRepository) GetByID(ctx context.Context, id, tenantScope string) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var embedding pgvector.Vector
	var contentChunk *string
	var metadata []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, item_id, tenant_id, embedding, chunk_index, content_type, content_chunk, metadata, created_at
		 FROM item_chunks
		 WHERE id = $1 AND ($2::uuid IS NULL OR tenant_id = $2::uuid)`,
		id, nullableString(tenantScope),
	).Scan(&chunk.ID, &chunk.ItemID, &chunk.TenantID, &embedding, &chunk.ChunkIndex, &chunk.ContentType, &contentChunk, &metadata, &chunk.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrChunkNotFound
		}
		return nil, err
	}
	chunk.Embedding = embedding.Slice()
	if contentChunk != nil {
		chunk.ContentChunk = *contentChunk
	}
	if chunk.Metadata, err = unmarshalMetadata(metadata); err != nil {
		return nil, err
	}
	return &chunk, nil
}

// ListByItem returns the item's chunks ordered by chunk_index. Embeddings are
// not loaded; a chunk listing is about the text slices, not the vectors.
func (r *ChunkRepository) ListByItem(ctx context.Context, itemID, tenantScope string) ([]*domain.Chunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, item_id, tenant_id, chunk_index, content_type, content_chunk, metadata, created_at
		 FROM item_chunks
		 WHERE item_id = $1 AND ($2::uuid IS NULL OR tenant_id = $2::uuid)
		 ORDER BY chunk_index ASC, created_at ASC`,
		itemID, nullableString(tenantScope),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*domain.Chunk
	for rows.Next() {
		var chunk domain.Chunk
		var contentChunk *string
		var metadata []byte
		if err := rows.Scan(&chunk.ID, &chunk.ItemID, &chunk.TenantID, &chunk.ChunkIndex, &chunk.ContentType, &contentChunk, &metadata, &chunk.CreatedAt); err != nil {
			return nil, err
		}
		if contentChunk != nil {
			chunk.ContentChunk = *contentChunk
		}
		var err error
		if chunk.Metadata, err = unmarshalMetadata(metadata); err != nil {
			return nil, err
		}
		chunks = append(chunks, &chunk)
	}
	return chunks, rows.Err()
}

func (r *ChunkRepository) CountByItem(ctx context.Context, itemID, tenantScope string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM item_chunks
		 WHERE item_id = $1 AND ($2::uuid IS NULL OR tenant_id = $2::uuid)`,
		itemID, nullableString(tenantScope),
	).Scan(&count)
	return count, err
}

func (r *ChunkRepository) Delete(ctx context.Context, id, tenantScope string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM item_chunks
		 WHERE id = $1 AND ($2::uuid IS NULL OR tenant_id = $2::uuid)`,
		id, nullableString(tenantScope),
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrChunkNotFound
	}
	return nil
}

// ReplaceForItem deletes the item's chunks and inserts the new set. The
// embedding worker calls this inside a transaction so searches never observe
// a half-replaced item.
func (r *ChunkRepository) ReplaceForItem(ctx context.Context, itemID string, chunks []*domain.Chunk) error {
	_, err := r.db.Exec(ctx, `DELETE FROM item_chunks WHERE item_id = $1`, itemID)
	if err != nil {
		return err
	}

	if len(chunks) == 0 {
		return nil
	}

	for _, c := range chunks {
		createdAt := c.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		metadata, err := marshalMetadata(c.Metadata)
		if err != nil {
			return err
		}
		_, err = r.db.Exec(ctx,
			`INSERT INTO item_chunks (id, item_id, tenant_id, embedding, chunk_index, content_type, content_chunk, metadata, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			c.ID, c.ItemID, c.TenantID, pgvector.NewVector(c.Embedding),
			c.ChunkIndex, c.ContentType, nullableString(c.ContentChunk), metadata, createdAt,
		)
		if err != nil {
			return err
		}
	}

	return nil
}
