package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/halcyondata/recall/internal/domain"
	"github.com/halcyondata/recall/internal/pagination"
	"github.com/halcyondata/recall/internal/telemetry"
)

// ItemRepositoryInterface defines the repository interface for item persistence.
// tenantScope is the caller's visible tenant; "" means unscoped (service key).
type ItemRepositoryInterface interface {
	Create(ctx context.Context, item *domain.Item) error
	GetByID(ctx context.Context, id, tenantScope string) (*domain.Item, error)
	ListWithCursor(ctx context.Context, tenantScope, tenantFilter string, cursor *pagination.Cursor, limit int) (*ItemPageResult, error)
	Update(ctx context.Context, item *domain.Item, tenantScope string) error
	Delete(ctx context.Context, id, tenantScope string) error
}

type ItemPageResult struct {
	Items      []*domain.Item
	NextCursor string
	HasMore    bool
}

// EmbeddingJobRepositoryInterface defines the repository interface for embedding job persistence
type EmbeddingJobRepositoryInterface interface {
	Create(ctx context.Context, job *domain.EmbeddingJob) error
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// ItemService handles business logic for content items
type ItemService struct {
	itemRepo ItemRepositoryInterface
	txRunner TxRunner
	uuidGen  UUIDGenerator
}

// NewItemService creates a new ItemService instance
func NewItemService(itemRepo ItemRepositoryInterface, txRunner TxRunner) *ItemService {
	return &ItemService{
		itemRepo: itemRepo,
		txRunner: txRunner,
		uuidGen:  &DefaultUUIDGenerator{},
	}
}

// NewItemServiceWithUUIDGen creates a new ItemService with custom UUID generator (for testing)
func NewItemServiceWithUUIDGen(itemRepo ItemRepositoryInterface, txRunner TxRunner, uuidGen UUIDGenerator) *ItemService {
	return &ItemService{
		itemRepo: itemRepo,
		txRunner: txRunner,
		uuidGen:  uuidGen,
	}
}

// CreateItemInput represents the input for creating an item
type CreateItemInput struct {
	TenantID  string
	UserID    string
	Title     string
	Content   string
	Metadata  map[string]any
	AutoEmbed bool
}

// UpdateItemInput represents the input for updating an item. Title, content
// and metadata are replaced wholesale; the tenant cannot change.
type UpdateItemInput struct {
	ItemID    string
	Title     string
	Content   string
	Metadata  map[string]any
	AutoEmbed bool
}

type ListItemsInput struct {
	TenantFilter string
	Cursor       string
	Limit        int
}

type ListItemsOutput struct {
	Items   []*domain.Item
	Cursor  string
	HasMore bool
}

// Create inserts a new item and, when auto-embed is requested and the item
// has content, queues an embedding job in the same transaction.
func (s *ItemService) Create(ctx context.Context, input CreateItemInput) (*domain.Item, error) {
	ctx, span := telemetry.StartSpan(ctx, "ItemService.Create", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		Operation: "create",
	})
	defer span.End()

	if _, err := writerClaims(ctx); err != nil {
		return nil, err
	}

	if input.TenantID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}
	if input.Title == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "item title is required")
	}

	now := time.Now().UTC()
	item := &domain.Item{
		ID:        s.uuidGen.NewString(),
		TenantID:  input.TenantID,
		UserID:    input.UserID,
		Title:     input.Title,
		Content:   input.Content,
		Metadata:  input.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := domain.ValidateItem(item); err != nil {
		return nil, err
	}

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Items().Create(ctx, item); err != nil {
			return err
		}
		if input.AutoEmbed && strings.TrimSpace(item.Content) != "" {
			return repos.EmbeddingJobs().Create(ctx, s.newEmbeddingJob(item, now))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

// GetByID retrieves an item visible to the caller. A scoped caller asking for
// another tenant's item gets a not-found, never a different error.
func (s *ItemService) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	ctx, span := telemetry.StartSpan(ctx, "ItemService.GetByID", telemetry.SpanAttributes{
		ItemID:    id,
		Operation: "get",
	})
	defer span.End()

	claims, err := callerClaims(ctx)
	if err != nil {
		return nil, err
	}

	return s.itemRepo.GetByID(ctx, id, claims.TenantScope())
}

// Update replaces an item's title, content and metadata, and optionally
// re-queues embedding generation for the new content.
func (s *ItemService) Update(ctx context.Context, input UpdateItemInput) (*domain.Item, error) {
	ctx, span := telemetry.StartSpan(ctx, "ItemService.Update", telemetry.SpanAttributes{
		ItemID:    input.ItemID,
		Operation: "update",
	})
	defer span.End()

	claims, err := writerClaims(ctx)
	if err != nil {
		return nil, err
	}

	if input.Title == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "item title is required")
	}

	item, err := s.itemRepo.GetByID(ctx, input.ItemID, claims.TenantScope())
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	item.Title = input.Title
	item.Content = input.Content
	item.Metadata = input.Metadata
	item.UpdatedAt = now

	err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		if err := repos.Items().Update(ctx, item, claims.TenantScope()); err != nil {
			return err
		}
		if input.AutoEmbed && strings.TrimSpace(item.Content) != "" {
			return repos.EmbeddingJobs().Create(ctx, s.newEmbeddingJob(item, now))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

// Delete removes an item and everything hanging off it (chunks, pending
// jobs, edges) via the schema's cascades.
func (s *ItemService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "ItemService.Delete", telemetry.SpanAttributes{
		ItemID:    id,
		Operation: "delete",
	})
	defer span.End()

	claims, err := writerClaims(ctx)
	if err != nil {
		return err
	}

	return s.itemRepo.Delete(ctx, id, claims.TenantScope())
}

// List pages items newest-first. The caller's scope and the requested tenant
// filter are both applied; a scoped caller filtering on a foreign tenant gets
// an empty page.
func (s *ItemService) List(ctx context.Context, input ListItemsInput) (*ListItemsOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "ItemService.List", telemetry.SpanAttributes{
		TenantID:  input.TenantFilter,
		Operation: "list",
	})
	defer span.End()

	claims, err := callerClaims(ctx)
	if err != nil {
		return nil, err
	}

	cursor, _ := pagination.DecodeCursor(input.Cursor)
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	result, err := s.itemRepo.ListWithCursor(ctx, claims.TenantScope(), input.TenantFilter, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListItemsOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

func (s *ItemService) newEmbeddingJob(item *domain.Item, now time.Time) *domain.EmbeddingJob {
	return &domain.EmbeddingJob{
		ID:        s.uuidGen.NewString(),
		ItemID:    item.ID,
		TenantID:  item.TenantID,
		Status:    domain.EmbeddingJobStatusPending,
		Retries:   0,
		Error:     "",
		CreatedAt: now,
	}
}
