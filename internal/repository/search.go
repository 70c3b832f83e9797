package repository

import (
	"context"

	"github.com/halcyondata/recall/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// SearchRepository runs cosine-similarity queries over item_chunks.
type SearchRepository struct {
	pool *pgxpool.Pool
}

func NewSearchRepository(pool *pgxpool.Pool) *SearchRepository {
	return &SearchRepository{pool: pool}
}

// SearchChunks executes a similarity search. visibleTenant is the caller's
// claims scope ("" for an unscoped service identity); query.TenantFilter is
// the caller-requested filter. Both are ANDed so a scoped caller can never
// widen its view past its own tenant. Ordering by the raw distance operator
// (ascending) rather than the derived similarity keeps the ANN index usable.
func (r *SearchRepository) SearchChunks(ctx context.Context, query domain.SearchQuery, visibleTenant string) ([]*domain.SearchResult, error) {
	vec := pgvector.NewVector(query.Embedding)

	rows, err := r.pool.Query(ctx, `
		SELECT c.id, c.item_id, i.title, i.content, c.content_chunk,
		       COALESCE(c.metadata, i.metadata), c.content_type, c.chunk_index,
		       1 - (c.embedding <=> $1) AS similarity
		FROM item_chunks c
		JOIN items i ON i.id = c.item_id
		WHERE ($2::uuid IS NULL OR c.tenant_id = $2::uuid)
		  AND ($3::uuid IS NULL OR c.tenant_id = $3::uuid)
		  AND ($4::text[] IS NULL OR c.content_type = ANY($4::text[]))
		  AND 1 - (c.embedding <=> $1) >= $5
		ORDER BY c.embedding <=> $1
		LIMIT GREATEST(1, COALESCE($6::int, 10))`,
		vec,
		nullableString(visibleTenant),
		nullableString(query.TenantFilter),
		query.ContentTypes,
		query.MatchThreshold,
		query.MatchCount,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]*domain.SearchResult, 0)
	for rows.Next() {
		var result domain.SearchResult
		var contentChunk *string
		var metadata []byte
		if err := rows.Scan(&result.ChunkID, &result.ItemID, &result.Title, &result.Content, &contentChunk,
			&metadata, &result.ContentType, &result.ChunkIndex, &result.Similarity); err != nil {
			return nil, err
		}
		if contentChunk != nil {
			result.ContentChunk = *contentChunk
		}
		var err error
		if result.Metadata, err = unmarshalMetadata(metadata); err != nil {
			return nil, err
		}
		results = append(results, &result)
	}

	return results, rows.Err()
}
