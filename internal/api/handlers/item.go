package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/halcyondata/recall/internal/api"
	"github.com/halcyondata/recall/internal/api/middleware"
	"github.com/halcyondata/recall/internal/domain"
	"github.com/halcyondata/recall/internal/service"
)

type ItemService interface {
	Create(ctx context.Context, input service.CreateItemInput) (*domain.Item, error)
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	Update(ctx context.Context, input service.UpdateItemInput) (*domain.Item, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, input service.ListItemsInput) (*service.ListItemsOutput, error)
}

type ItemHandler struct {
	svc ItemService
}

func NewItemHandler(svc ItemService) *ItemHandler {
	return &ItemHandler{svc: svc}
}

type CreateItemRequest struct {
	TenantID  string         `json:"tenant_id"`
	UserID    string         `json:"user_id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	AutoEmbed bool           `json:"auto_embed"`
}

type UpdateItemRequest struct {
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	AutoEmbed bool           `json:"auto_embed"`
}

type ItemResponse struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	UserID    string         `json:"user_id,omitempty"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

func itemToResponse(item *domain.Item) *ItemResponse {
	return &ItemResponse{
		ID:        item.ID,
		TenantID:  item.TenantID,
		UserID:    item.UserID,
		Title:     item.Title,
		Content:   item.Content,
		Metadata:  item.Metadata,
		CreatedAt: item.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: item.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *ItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
		return
	}

	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "title is required")
		return
	}

	// A service key writing without an explicit tenant writes to its own.
	if req.TenantID == "" {
		if claims, ok := middleware.GetClaims(r.Context()); ok {
			req.TenantID = claims.TenantID
		}
	}

	item, err := h.svc.Create(r.Context(), service.CreateItemInput{
		TenantID:  req.TenantID,
		UserID:    req.UserID,
		Title:     req.Title,
		Content:   req.Content,
		Metadata:  req.Metadata,
		AutoEmbed: req.AutoEmbed,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, itemToResponse(item))
}

func (h *ItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itemID")
	if id == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "item id is required")
		return
	}

	item, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, itemToResponse(item))
}

func (h *ItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itemID")
	if id == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "item id is required")
		return
	}

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
		return
	}

	if req.Title == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "title is required")
		return
	}

	item, err := h.svc.Update(r.Context(), service.UpdateItemInput{
		ItemID:    id,
		Title:     req.Title,
		Content:   req.Content,
		Metadata:  req.Metadata,
		AutoEmbed: req.AutoEmbed,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, itemToResponse(item))
}

func (h *ItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "itemID")
	if id == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "item id is required")
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, map[string]string{"id": id})
}

type ItemListResponse struct {
	Items   []*ItemResponse `json:"items"`
	Cursor  string          `json:"cursor,omitempty"`
	HasMore bool            `json:"has_more"`
}

func (h *ItemHandler) List(w http.ResponseWriter, r *http.Request) {
	tenantFilter := r.URL.Query().Get("tenant_id")
	cursor := r.URL.Query().Get("cursor")
	limitStr := r.URL.Query().Get("limit")
	limit := 20
	if limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	output, err := h.svc.List(r.Context(), service.ListItemsInput{
		TenantFilter: tenantFilter,
		Cursor:       cursor,
		Limit:        limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*ItemResponse, len(output.Items))
	for i, item := range output.Items {
		responses[i] = itemToResponse(item)
	}

	api.Success(w, http.StatusOK, ItemListResponse{
		Items:   responses,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}
