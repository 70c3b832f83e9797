package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/halcyondata/recall/internal/domain"
	"github.com/halcyondata/recall/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSearchService struct {
	mock.Mock
}

func (m *MockSearchService) Search(ctx context.Context, input service.SearchInput) (*service.SearchOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SearchOutput), args.Error(1)
}

func (m *MockSearchService) RecordFeedback(ctx context.Context, searchID string, helpful bool, note string) error {
	args := m.Called(ctx, searchID, helpful, note)
	return args.Error(0)
}

func newTestSearchResult() *domain.SearchResult {
	return &domain.SearchResult{
		ItemID:       "item-123",
		ChunkID:      "chunk-123",
		Title:        "Deploy checklist",
		Content:      "Run migrations before rolling pods.",
		ContentChunk: "Run migrations",
		ContentType:  "documentation",
		ChunkIndex:   0,
		Similarity:   0.92,
	}
}

func TestSearchHandler_Search_Success(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	expectedOutput := &service.SearchOutput{
		SearchID: "search-123",
		Results:  []*domain.SearchResult{newTestSearchResult()},
	}
	mockSvc.On("Search", mock.Anything, mock.MatchedBy(func(input service.SearchInput) bool {
		return len(input.Embedding) == 3 && input.TenantFilter == "tenant-456"
	})).Return(expectedOutput, nil)

	body := `{"query_embedding":[0.1,0.2,0.3],"tenant_filter":"tenant-456"}`
	req := requestWithClaims(http.MethodPost, "/v1/search", []byte(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "search-123", data["search_id"])
	results := data["results"].([]interface{})
	require.Len(t, results, 1)
	first := results[0].(map[string]interface{})
	assert.Equal(t, "item-123", first["item_id"])
	assert.InDelta(t, 0.92, first["similarity"].(float64), 0.0001)
	mockSvc.AssertExpectations(t)
}

func TestSearchHandler_Search_TextQuery(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	expectedOutput := &service.SearchOutput{Results: []*domain.SearchResult{}}
	mockSvc.On("Search", mock.Anything, mock.MatchedBy(func(input service.SearchInput) bool {
		return input.QueryText == "deploy steps" && len(input.Embedding) == 0
	})).Return(expectedOutput, nil)

	body := `{"query_text":"deploy steps"}`
	req := requestWithClaims(http.MethodPost, "/v1/search", []byte(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestSearchHandler_Search_MatchCountAndTypes(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	expectedOutput := &service.SearchOutput{Results: []*domain.SearchResult{}}
	mockSvc.On("Search", mock.Anything, mock.MatchedBy(func(input service.SearchInput) bool {
		return input.MatchCount != nil && *input.MatchCount == 5 &&
			len(input.ContentTypes) == 2 && input.MatchThreshold == 0.7
	})).Return(expectedOutput, nil)

	body := `{"query_embedding":[0.1,0.2,0.3],"match_count":5,"content_types":["documentation","runbook"],"match_threshold":0.7}`
	req := requestWithClaims(http.MethodPost, "/v1/search", []byte(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestSearchHandler_Search_MissingQuery(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	body := `{"match_count":5}`
	req := requestWithClaims(http.MethodPost, "/v1/search", []byte(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "query_embedding or query_text is required")
}

func TestSearchHandler_Search_InvalidJSON(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	req := requestWithClaims(http.MethodPost, "/v1/search", []byte(`{invalid`))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestSearchHandler_Search_Timeout(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	mockSvc.On("Search", mock.Anything, mock.Anything).Return(nil, domain.ErrSearchTimeout)

	body := `{"query_embedding":[0.1,0.2,0.3]}`
	req := requestWithClaims(http.MethodPost, "/v1/search", []byte(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Contains(t, w.Body.String(), "TIMEOUT")
	mockSvc.AssertExpectations(t)
}

func TestSearchHandler_Feedback_Success(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	mockSvc.On("RecordFeedback", mock.Anything, "search-123", true, "nailed it").Return(nil)

	body := `{"helpful":true,"note":"nailed it"}`
	req := requestWithClaims(http.MethodPost, "/v1/search/search-123/feedback", []byte(body))
	req = withURLParam(req, "searchID", "search-123")
	w := httptest.NewRecorder()

	handler.Feedback(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "search-123", data["search_id"])
	mockSvc.AssertExpectations(t)
}

func TestSearchHandler_Feedback_NotFound(t *testing.T) {
	mockSvc := new(MockSearchService)
	handler := NewSearchHandler(mockSvc)

	mockSvc.On("RecordFeedback", mock.Anything, "search-999", false, "").Return(domain.ErrSearchLogNotFound)

	body := `{"helpful":false}`
	req := requestWithClaims(http.MethodPost, "/v1/search/search-999/feedback", []byte(body))
	req = withURLParam(req, "searchID", "search-999")
	w := httptest.NewRecorder()

	handler.Feedback(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	mockSvc.AssertExpectations(t)
}
