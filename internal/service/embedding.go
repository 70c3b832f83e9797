package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/halcyondata/recall/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingService turns an item's content into embedded chunks. It is
// driven by the background worker, never by request handlers.
type EmbeddingService struct {
	client   EmbeddingClient
	itemRepo ItemRepositoryInterface
	txRunner TxRunner
	chunkCfg ChunkConfig
	uuidGen  UUIDGenerator
}

// NewEmbeddingService creates a new EmbeddingService instance
func NewEmbeddingService(client EmbeddingClient, itemRepo ItemRepositoryInterface, txRunner TxRunner) *EmbeddingService {
	return &EmbeddingService{
		client:   client,
		itemRepo: itemRepo,
		txRunner: txRunner,
		chunkCfg: DefaultChunkConfig(),
		uuidGen:  &DefaultUUIDGenerator{},
	}
}

// NewEmbeddingServiceWithUUIDGen creates a new EmbeddingService with custom UUID generator (for testing)
func NewEmbeddingServiceWithUUIDGen(client EmbeddingClient, itemRepo ItemRepositoryInterface, txRunner TxRunner, uuidGen UUIDGenerator) *EmbeddingService {
	return &EmbeddingService{
		client:   client,
		itemRepo: itemRepo,
		txRunner: txRunner,
		chunkCfg: DefaultChunkConfig(),
		uuidGen:  uuidGen,
	}
}

// GenerateForItem chunks the item's content, embeds every chunk, and swaps
// the item's chunk set in one transaction. The worker runs unscoped; the
// tenant on each chunk comes from the item row, the job is never trusted
// for it.
func (s *EmbeddingService) GenerateForItem(ctx context.Context, itemID string) error {
	item, err := s.itemRepo.GetByID(ctx, itemID, "")
	if err != nil {
		return err
	}

	source := item.Content
	if strings.TrimSpace(source) == "" {
		source = item.Title
	}

	pieces := splitContent(source, s.chunkCfg)
	now := time.Now().UTC()
	chunks := make([]*domain.Chunk, 0, len(pieces))
	for i, piece := range pieces {
		embedding, err := s.client.GenerateEmbedding(ctx, buildChunkEmbeddingText(item, piece))
		if err != nil {
			return fmt.Errorf("failed to generate chunk embedding: %w", err)
		}

		chunks = append(chunks, &domain.Chunk{
			ID:           s.uuidGen.NewString(),
			ItemID:       item.ID,
			TenantID:     item.TenantID,
			Embedding:    embedding,
			ChunkIndex:   i,
			ContentType:  itemContentType(item),
			ContentChunk: piece,
			CreatedAt:    now,
		})
	}

	// Delete-then-insert must not be observable half done.
	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		return repos.Chunks().ReplaceForItem(ctx, item.ID, chunks)
	})
	if err != nil {
		return fmt.Errorf("failed to replace item chunks: %w", err)
	}

	return nil
}

// itemContentType reads the chunk content type from the item's metadata,
// falling back to the default when absent.
func itemContentType(item *domain.Item) string {
	if v, ok := item.Metadata["content_type"].(string); ok && v != "" {
		return v
	}
	return domain.DefaultContentType
}

// buildChunkEmbeddingText prefixes each chunk with the item title so short
// chunks keep some document context in their vector.
func buildChunkEmbeddingText(item *domain.Item, chunk string) string {
	var parts []string
	if item.Title != "" {
		parts = append(parts, item.Title)
	}
	if chunk != "" {
		parts = append(parts, chunk)
	}
	return strings.Join(parts, "\n\n")
}
