package repository

import (
	"context"

	"github.com/halcyondata/recall/internal/domain"
	"github.com/halcyondata/recall/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SearchLogRepository stores search logs for the feedback loop.
type SearchLogRepository struct {
	pool *pgxpool.Pool
}

func NewSearchLogRepository(pool *pgxpool.Pool) *SearchLogRepository {
	return &SearchLogRepository{pool: pool}
}

func (r *SearchLogRepository) Create(ctx context.Context, entry service.SearchLogEntry) (string, error) {
	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO search_logs (tenant_id, query_text, match_count, match_threshold, content_types, result_count, top_similarity, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id`,
		nullableString(entry.TenantID),
		nullableString(entry.QueryText),
		entry.MatchCount,
		entry.MatchThreshold,
		entry.ContentTypes,
		entry.ResultCount,
		entry.TopSimilarity,
		entry.DurationMs,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *SearchLogRepository) RecordFeedback(ctx context.Context, searchID, tenantScope string, helpful bool, note string) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE search_logs
		 SET feedback_helpful = $1, feedback_note = $2
		 WHERE id = $3 AND ($4::uuid IS NULL OR tenant_id = $4::uuid)`,
		helpful, nullableString(note), searchID, nullableString(tenantScope),
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSearchLogNotFound
	}
	return nil
}
