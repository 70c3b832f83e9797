package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/halcyondata/recall/internal/domain"
	"github.com/halcyondata/recall/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChunkService struct {
	mock.Mock
}

func (m *MockChunkService) Insert(ctx context.Context, input service.InsertChunkInput) (*domain.Chunk, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Chunk), args.Error(1)
}

func (m *MockChunkService) ListByItem(ctx context.Context, itemID string) ([]*domain.Chunk, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Chunk), args.Error(1)
}

func newTestChunk() *domain.Chunk {
	return &domain.Chunk{
		ID:           "chunk-123",
		ItemID:       "item-123",
		TenantID:     "tenant-456",
		Embedding:    []float32{0.1, 0.2, 0.3},
		ChunkIndex:   0,
		ContentType:  "documentation",
		ContentChunk: "Run migrations before rolling pods.",
		CreatedAt:    time.Now().UTC(),
	}
}

func TestChunkHandler_Insert_Success(t *testing.T) {
	mockSvc := new(MockChunkService)
	handler := NewChunkHandler(mockSvc)

	expectedChunk := newTestChunk()
	mockSvc.On("Insert", mock.Anything, mock.MatchedBy(func(input service.InsertChunkInput) bool {
		return input.ItemID == "item-123" && len(input.Embedding) == 3 && input.ContentType == "documentation"
	})).Return(expectedChunk, nil)

	body := `{"embedding":[0.1,0.2,0.3],"chunk_index":0,"content_type":"documentation","content_chunk":"Run migrations before rolling pods."}`
	req := requestWithClaims(http.MethodPost, "/v1/items/item-123/chunks", []byte(body))
	req = withURLParam(req, "itemID", "item-123")
	w := httptest.NewRecorder()

	handler.Insert(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "chunk-123", data["id"])
	assert.Equal(t, "item-123", data["item_id"])
	mockSvc.AssertExpectations(t)
}

func TestChunkHandler_Insert_MissingEmbedding(t *testing.T) {
	mockSvc := new(MockChunkService)
	handler := NewChunkHandler(mockSvc)

	body := `{"content_chunk":"text without a vector"}`
	req := requestWithClaims(http.MethodPost, "/v1/items/item-123/chunks", []byte(body))
	req = withURLParam(req, "itemID", "item-123")
	w := httptest.NewRecorder()

	handler.Insert(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "embedding is required")
}

func TestChunkHandler_Insert_DimensionMismatch(t *testing.T) {
	mockSvc := new(MockChunkService)
	handler := NewChunkHandler(mockSvc)

	mockSvc.On("Insert", mock.Anything, mock.Anything).
		Return(nil, domain.NewDomainError(domain.ErrCodeValidation, "embedding has 3 dimensions, expected 1536"))

	body := `{"embedding":[0.1,0.2,0.3]}`
	req := requestWithClaims(http.MethodPost, "/v1/items/item-123/chunks", []byte(body))
	req = withURLParam(req, "itemID", "item-123")
	w := httptest.NewRecorder()

	handler.Insert(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "dimensions")
}

func TestChunkHandler_Insert_ItemNotFound(t *testing.T) {
	mockSvc := new(MockChunkService)
	handler := NewChunkHandler(mockSvc)

	mockSvc.On("Insert", mock.Anything, mock.Anything).Return(nil, domain.ErrItemNotFound)

	body := `{"embedding":[0.1,0.2,0.3]}`
	req := requestWithClaims(http.MethodPost, "/v1/items/item-999/chunks", []byte(body))
	req = withURLParam(req, "itemID", "item-999")
	w := httptest.NewRecorder()

	handler.Insert(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestChunkHandler_ListByItem_Success(t *testing.T) {
	mockSvc := new(MockChunkService)
	handler := NewChunkHandler(mockSvc)

	mockSvc.On("ListByItem", mock.Anything, "item-123").Return([]*domain.Chunk{newTestChunk()}, nil)

	req := requestWithClaims(http.MethodGet, "/v1/items/item-123/chunks", nil)
	req = withURLParam(req, "itemID", "item-123")
	w := httptest.NewRecorder()

	handler.ListByItem(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	assert.Len(t, items, 1)
	mockSvc.AssertExpectations(t)
}

func TestChunkHandler_ListByItem_Empty(t *testing.T) {
	mockSvc := new(MockChunkService)
	handler := NewChunkHandler(mockSvc)

	mockSvc.On("ListByItem", mock.Anything, "item-123").Return([]*domain.Chunk{}, nil)

	req := requestWithClaims(http.MethodGet, "/v1/items/item-123/chunks", nil)
	req = withURLParam(req, "itemID", "item-123")
	w := httptest.NewRecorder()

	handler.ListByItem(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	items := data["items"].([]interface{})
	assert.Len(t, items, 0)
	mockSvc.AssertExpectations(t)
}
