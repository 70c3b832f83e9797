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

type SearchService interface {
	Search(ctx context.Context, input service.SearchInput) (*service.SearchOutput, error)
	RecordFeedback(ctx context.Context, searchID string, helpful bool, note string) error
}

type SearchHandler struct {
	svc SearchService
}

func NewSearchHandler(svc SearchService) *SearchHandler {
	return &SearchHandler{svc: svc}
}

type SearchRequest struct {
	QueryEmbedding []float32 `json:"query_embedding"`
	QueryText      string    `json:"query_text"`
	MatchCount     *int      `json:"match_count"`
	TenantFilter   string    `json:"tenant_filter"`
	ContentTypes   []string  `json:"content_types"`
	MatchThreshold float64   `json:"match_threshold"`
}

type SearchResultResponse struct {
	ItemID       string         `json:"item_id"`
	ChunkID      string         `json:"chunk_id"`
	Title        string         `json:"title"`
	Content      string         `json:"content,omitempty"`
	ContentChunk string         `json:"content_chunk,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	ContentType  string         `json:"content_type"`
	ChunkIndex   int            `json:"chunk_index"`
	Similarity   float64        `json:"similarity"`
}

type SearchResponse struct {
	SearchID string                  `json:"search_id,omitempty"`
	Results  []*SearchResultResponse `json:"results"`
}

type FeedbackRequest struct {
	Helpful bool   `json:"helpful"`
	Note    string `json:"note"`
}

func searchResultToResponse(res *domain.SearchResult) *SearchResultResponse {
	return &SearchResultResponse{
		ItemID:       res.ItemID,
		ChunkID:      res.ChunkID,
		Title:        res.Title,
		Content:      res.Content,
		ContentChunk: res.ContentChunk,
		Metadata:     res.Metadata,
		ContentType:  res.ContentType,
		ChunkIndex:   res.ChunkIndex,
		Similarity:   res.Similarity,
	}
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
		return
	}

	if len(req.QueryEmbedding) == 0 && req.QueryText == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "query_embedding or query_text is required")
		return
	}

	output, err := h.svc.Search(r.Context(), service.SearchInput{
		Embedding:      req.QueryEmbedding,
		QueryText:      req.QueryText,
		MatchCount:     req.MatchCount,
		TenantFilter:   req.TenantFilter,
		ContentTypes:   req.ContentTypes,
		MatchThreshold: req.MatchThreshold,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	results := make([]*SearchResultResponse, len(output.Results))
	for i, res := range output.Results {
		results[i] = searchResultToResponse(res)
	}

	api.Success(w, http.StatusOK, SearchResponse{
		SearchID: output.SearchID,
		Results:  results,
	})
}

func (h *SearchHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	searchID := chi.URLParam(r, "searchID")
	if searchID == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "search id is required")
		return
	}

	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
		return
	}

	if err := h.svc.RecordFeedback(r.Context(), searchID, req.Helpful, req.Note); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"search_id": searchID})
}
