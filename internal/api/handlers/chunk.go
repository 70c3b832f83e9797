package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/halcyondata/recall/internal/api"
	"github.com/halcyondata/recall/internal/domain"
	"github.com/halcyondata/recall/internal/service"
)

type ChunkService interface {
	Insert(ctx context.Context, input service.InsertChunkInput) (*domain.Chunk, error)
	ListByItem(ctx context.Context, itemID string) ([]*domain.Chunk, error)
}

type ChunkHandler struct {
	svc ChunkService
}

func NewChunkHandler(svc ChunkService) *ChunkHandler {
	return &ChunkHandler{svc: svc}
}

type InsertChunkRequest struct {
	Embedding    []float32      `json:"embedding"`
	ChunkIndex   int            `json:"chunk_index"`
	ContentType  string         `json:"content_type"`
	ContentChunk string         `json:"content_chunk"`
	Metadata     map[string]any `json:"metadata"`
}

type ChunkResponse struct {
	ID           string         `json:"id"`
	ItemID       string         `json:"item_id"`
	TenantID     string         `json:"tenant_id"`
	ChunkIndex   int            `json:"chunk_index"`
	ContentType  string         `json:"content_type"`
	ContentChunk string         `json:"content_chunk,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	CreatedAt    string         `json:"created_at"`
}

func chunkToResponse(chunk *domain.Chunk) *ChunkResponse {
	return &ChunkResponse{
		ID:           chunk.ID,
		ItemID:       chunk.ItemID,
		TenantID:     chunk.TenantID,
		ChunkIndex:   chunk.ChunkIndex,
		ContentType:  chunk.ContentType,
		ContentChunk: chunk.ContentChunk,
		Metadata:     chunk.Metadata,
		CreatedAt:    chunk.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *ChunkHandler) Insert(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	if itemID == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "item id is required")
		return
	}

	var req InsertChunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
		return
	}

	if len(req.Embedding) == 0 {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "embedding is required")
		return
	}

	chunk, err := h.svc.Insert(r.Context(), service.InsertChunkInput{
		ItemID:       itemID,
		Embedding:    req.Embedding,
		ChunkIndex:   req.ChunkIndex,
		ContentType:  req.ContentType,
		ContentChunk: req.ContentChunk,
		Metadata:     req.Metadata,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, chunkToResponse(chunk))
}

type ChunkListResponse struct {
	Items []*ChunkResponse `json:"items"`
}

func (h *ChunkHandler) ListByItem(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemID")
	if itemID == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "item id is required")
		return
	}

	chunks, err := h.svc.ListByItem(r.Context(), itemID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*ChunkResponse, len(chunks))
	for i, chunk := range chunks {
		responses[i] = chunkToResponse(chunk)
	}

	api.Success(w, http.StatusOK, ChunkListResponse{Items: responses})
}
