package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/halcyondata/recall/internal/domain"
	"github.com/halcyondata/recall/internal/pagination"
	"github.com/halcyondata/recall/internal/telemetry"
)

const exportPageSize = 200

// ExportStorage is the object-store surface exports need. *storage.S3Client
// satisfies it.
type ExportStorage interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string) error
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
}

// ExportService dumps a tenant's items and chunks as JSONL to object
// storage. Embeddings are not exported; chunk text is.
type ExportService struct {
	itemRepo   ItemRepositoryInterface
	chunkRepo  ChunkRepositoryInterface
	tenantRepo TenantRepository
	storage    ExportStorage // nil disables exports
}

// NewExportService creates a new ExportService instance
func NewExportService(
	itemRepo ItemRepositoryInterface,
	chunkRepo ChunkRepositoryInterface,
	tenantRepo TenantRepository,
	storage ExportStorage,
) *ExportService {
	return &ExportService{
		itemRepo:   itemRepo,
		chunkRepo:  chunkRepo,
		tenantRepo: tenantRepo,
		storage:    storage,
	}
}

// ExportOutput describes one finished export: where it landed and how much
// it contains. URL is a presigned GET that expires shortly.
type ExportOutput struct {
	Key        string
	URL        string
	ItemCount  int
	ChunkCount int
}

type exportItemLine struct {
	Type      string         `json:"type"`
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	UserID    string         `json:"user_id,omitempty"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

type exportChunkLine struct {
	Type         string         `json:"type"`
	ID           string         `json:"id"`
	ItemID       string         `json:"item_id"`
	ChunkIndex   int            `json:"chunk_index"`
	ContentType  string         `json:"content_type"`
	ContentChunk string         `json:"content_chunk"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    string         `json:"created_at"`
}

// ExportTenant walks every item of the tenant page by page, appends each
// item line followed by its chunk lines, uploads the file and returns a
// presigned download URL.
func (s *ExportService) ExportTenant(ctx context.Context, tenantID string) (*ExportOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "ExportService.ExportTenant", telemetry.SpanAttributes{
		TenantID:  tenantID,
		Operation: "export",
	})
	defer span.End()

	if _, err := writerClaims(ctx); err != nil {
		return nil, err
	}

	if s.storage == nil {
		return nil, domain.ErrExportsDisabled
	}
	if tenantID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}

	if _, err := s.tenantRepo.GetByID(ctx, tenantID); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)

	out := &ExportOutput{}
	var cursor *pagination.Cursor
	for {
		page, err := s.itemRepo.ListWithCursor(ctx, "", tenantID, cursor, exportPageSize)
		if err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if err := enc.Encode(exportItemLine{
				Type:      "item",
				ID:        item.ID,
				TenantID:  item.TenantID,
				UserID:    item.UserID,
				Title:     item.Title,
				Content:   item.Content,
				Metadata:  item.Metadata,
				CreatedAt: item.CreatedAt.UTC().Format(time.RFC3339Nano),
				UpdatedAt: item.UpdatedAt.UTC().Format(time.RFC3339Nano),
			}); err != nil {
				return nil, err
			}
			out.ItemCount++

			chunks, err := s.chunkRepo.ListByItem(ctx, item.ID, "")
			if err != nil {
				return nil, err
			}
			for _, chunk := range chunks {
				if err := enc.Encode(exportChunkLine{
					Type:         "chunk",
					ID:           chunk.ID,
					ItemID:       chunk.ItemID,
					ChunkIndex:   chunk.ChunkIndex,
					ContentType:  chunk.ContentType,
					ContentChunk: chunk.ContentChunk,
					Metadata:     chunk.Metadata,
					CreatedAt:    chunk.CreatedAt.UTC().Format(time.RFC3339Nano),
				}); err != nil {
					return nil, err
				}
				out.ChunkCount++
			}
		}

		if !page.HasMore {
			break
		}
		cursor, _ = pagination.DecodeCursor(page.NextCursor)
	}

	key := fmt.Sprintf("exports/%s/%s.jsonl", tenantID, time.Now().UTC().Format("20060102T150405Z"))
	if err := s.storage.PutObject(ctx, key, buf.Bytes(), "application/x-ndjson"); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to upload export", err)
	}

	url, err := s.storage.GenerateDownloadURL(ctx, key)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to presign export download", err)
	}

	out.Key = key
	out.URL = url
	return out, nil
}
