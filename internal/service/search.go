package service

import (
	"context"
	"errors"
	"time"

	"github.com/halcyondata/recall/internal/domain"
	"github.com/halcyondata/recall/internal/telemetry"
)

// SearchRepositoryInterface defines the repository interface for similarity search.
// visibleTenant is the caller's scope; "" means the caller sees every tenant.
type SearchRepositoryInterface interface {
	SearchChunks(ctx context.Context, query domain.SearchQuery, visibleTenant string) ([]*domain.SearchResult, error)
}

// SearchService runs similarity searches under the caller's tenant scope and
// records one log row per search for evaluation.
type SearchService struct {
	searchRepo SearchRepositoryInterface
	logRepo    SearchLogRepository // nil disables logging
	embedder   EmbeddingClient     // nil disables server-side query embedding
	dimensions int
	timeout    time.Duration
}

// NewSearchService creates a new SearchService instance
func NewSearchService(
	searchRepo SearchRepositoryInterface,
	logRepo SearchLogRepository,
	embedder EmbeddingClient,
	dimensions int,
	timeout time.Duration,
) *SearchService {
	return &SearchService{
		searchRepo: searchRepo,
		logRepo:    logRepo,
		embedder:   embedder,
		dimensions: dimensions,
		timeout:    timeout,
	}
}

// SearchInput represents one similarity search request. Either Embedding or
// QueryText must be set; QueryText without a vector needs a configured
// embedding client.
type SearchInput struct {
	Embedding      []float32
	QueryText      string
	MatchCount     *int
	TenantFilter   string
	ContentTypes   []string
	MatchThreshold float64
}

// SearchOutput carries the ranked results plus the id of the search log row,
// which feedback calls refer back to. SearchID is empty when logging is
// disabled or the log write failed.
type SearchOutput struct {
	SearchID string
	Results  []*domain.SearchResult
}

// Search embeds the query if needed, checks dimensions, and runs the ranked
// chunk search under the per-request deadline. The log row is written before
// returning but never fails the search.
func (s *SearchService) Search(ctx context.Context, input SearchInput) (*SearchOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.Search", telemetry.SpanAttributes{
		TenantID:  input.TenantFilter,
		Operation: "search",
	})
	defer span.End()

	claims, err := callerClaims(ctx)
	if err != nil {
		return nil, err
	}

	embedding := input.Embedding
	if len(embedding) == 0 {
		if input.QueryText == "" {
			return nil, domain.NewDomainError(domain.ErrCodeValidation, "either an embedding or query text is required")
		}
		if s.embedder == nil {
			return nil, domain.ErrEmbeddingsDisabled
		}
		embedding, err = s.embedder.GenerateEmbedding(ctx, input.QueryText)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to embed query text", err)
		}
	}

	if err := domain.CheckDimensions(embedding, s.dimensions); err != nil {
		return nil, err
	}

	query := domain.SearchQuery{
		Embedding:      embedding,
		QueryText:      input.QueryText,
		MatchCount:     input.MatchCount,
		TenantFilter:   input.TenantFilter,
		ContentTypes:   input.ContentTypes,
		MatchThreshold: input.MatchThreshold,
	}

	searchCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		searchCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	results, err := s.searchRepo.SearchChunks(searchCtx, query, claims.TenantScope())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(searchCtx.Err(), context.DeadlineExceeded) {
			return nil, domain.ErrSearchTimeout
		}
		return nil, err
	}

	out := &SearchOutput{Results: results}

	if s.logRepo != nil {
		entry := SearchLogEntry{
			TenantID:       logTenant(claims, input.TenantFilter),
			QueryText:      input.QueryText,
			MatchCount:     effectiveMatchCount(input.MatchCount),
			MatchThreshold: input.MatchThreshold,
			ContentTypes:   input.ContentTypes,
			ResultCount:    len(results),
			DurationMs:     time.Since(start).Milliseconds(),
		}
		if len(results) > 0 {
			top := results[0].Similarity
			entry.TopSimilarity = &top
		}
		if searchID, err := s.logRepo.Create(ctx, entry); err == nil {
			out.SearchID = searchID
		}
	}

	return out, nil
}

// RecordFeedback attaches a helpful/not-helpful verdict to a prior search.
// Scoped callers can only reach log rows of their own tenant.
func (s *SearchService) RecordFeedback(ctx context.Context, searchID string, helpful bool, note string) error {
	ctx, span := telemetry.StartSpan(ctx, "SearchService.RecordFeedback", telemetry.SpanAttributes{
		Operation: "feedback",
	})
	defer span.End()

	claims, err := callerClaims(ctx)
	if err != nil {
		return err
	}

	if searchID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "search ID is required")
	}
	if s.logRepo == nil {
		return domain.ErrSearchLogNotFound
	}

	return s.logRepo.RecordFeedback(ctx, searchID, claims.TenantScope(), helpful, note)
}

// logTenant picks the tenant recorded on the log row: the caller's own
// tenant when scoped, otherwise whatever filter the service key searched
// under (possibly none).
func logTenant(claims domain.Claims, tenantFilter string) string {
	if scope := claims.TenantScope(); scope != "" {
		return scope
	}
	return tenantFilter
}

func effectiveMatchCount(matchCount *int) int {
	if matchCount == nil {
		return domain.DefaultMatchCount
	}
	if *matchCount < 1 {
		return 1
	}
	return *matchCount
}
