package service

import (
	"context"
	"time"

	"github.com/halcyondata/recall/internal/domain"
	"github.com/halcyondata/recall/internal/telemetry"
)

// ChunkRepositoryInterface defines the repository interface for chunk persistence
type ChunkRepositoryInterface interface {
	Insert(ctx context.Context, chunk *domain.Chunk) error
	GetByID(ctx context.Context, id, tenantScope string) (*domain.Chunk, error)
	ListByItem(ctx context.Context, itemID, tenantScope string) ([]*domain.Chunk, error)
	CountByItem(ctx context.Context, itemID, tenantScope string) (int, error)
	ReplaceForItem(ctx context.Context, itemID string, chunks []*domain.Chunk) error
	Delete(ctx context.Context, id, tenantScope string) error
}

// ChunkService handles business logic for embedded chunks
type ChunkService struct {
	chunkRepo  ChunkRepositoryInterface
	itemRepo   ItemRepositoryInterface
	txRunner   TxRunner
	dimensions int
	uuidGen    UUIDGenerator
}

// NewChunkService creates a new ChunkService instance
func NewChunkService(chunkRepo ChunkRepositoryInterface, itemRepo ItemRepositoryInterface, txRunner TxRunner, dimensions int) *ChunkService {
	return &ChunkService{
		chunkRepo:  chunkRepo,
		itemRepo:   itemRepo,
		txRunner:   txRunner,
		dimensions: dimensions,
		uuidGen:    &DefaultUUIDGenerator{},
	}
}

// NewChunkServiceWithUUIDGen creates a new ChunkService with custom UUID generator (for testing)
func NewChunkServiceWithUUIDGen(chunkRepo ChunkRepositoryInterface, itemRepo ItemRepositoryInterface, txRunner TxRunner, dimensions int, uuidGen UUIDGenerator) *ChunkService {
	return &ChunkService{
		chunkRepo:  chunkRepo,
		itemRepo:   itemRepo,
		txRunner:   txRunner,
		dimensions: dimensions,
		uuidGen:    uuidGen,
	}
}

// InsertChunkInput represents the input for inserting a pre-embedded chunk.
// The tenant is never part of the input; it is copied from the parent item.
type InsertChunkInput struct {
	ItemID       string
	Embedding    []float32
	ChunkIndex   int
	ContentType  string
	ContentChunk string
	Metadata     map[string]any
}

// Insert validates and stores one caller-supplied chunk. The embedding is
// dimension-checked before any row is touched, and the parent lookup plus
// insert run in one transaction so the chunk's tenant always matches its
// item's.
func (s *ChunkService) Insert(ctx context.Context, input InsertChunkInput) (*domain.Chunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChunkService.Insert", telemetry.SpanAttributes{
		ItemID:    input.ItemID,
		Operation: "create",
	})
	defer span.End()

	claims, err := writerClaims(ctx)
	if err != nil {
		return nil, err
	}

	if input.ItemID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "item ID is required")
	}
	if err := domain.CheckDimensions(input.Embedding, s.dimensions); err != nil {
		return nil, err
	}

	contentType := input.ContentType
	if contentType == "" {
		contentType = domain.DefaultContentType
	}

	var chunk *domain.Chunk
	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		item, err := repos.Items().GetByID(ctx, input.ItemID, claims.TenantScope())
		if err != nil {
			return err
		}

		chunk = &domain.Chunk{
			ID:           s.uuidGen.NewString(),
			ItemID:       item.ID,
			TenantID:     item.TenantID,
			Embedding:    input.Embedding,
			ChunkIndex:   input.ChunkIndex,
			ContentType:  contentType,
			ContentChunk: input.ContentChunk,
			Metadata:     input.Metadata,
			CreatedAt:    time.Now().UTC(),
		}
		return repos.Chunks().Insert(ctx, chunk)
	})
	if err != nil {
		return nil, err
	}

	return chunk, nil
}

// ListByItem returns an item's chunks in chunk order, without embeddings.
// The parent is resolved first so a missing or foreign item surfaces as
// not-found rather than an empty list.
func (s *ChunkService) ListByItem(ctx context.Context, itemID string) ([]*domain.Chunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "ChunkService.ListByItem", telemetry.SpanAttributes{
		ItemID:    itemID,
		Operation: "list",
	})
	defer span.End()

	claims, err := callerClaims(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.itemRepo.GetByID(ctx, itemID, claims.TenantScope()); err != nil {
		return nil, err
	}

	return s.chunkRepo.ListByItem(ctx, itemID, claims.TenantScope())
}
