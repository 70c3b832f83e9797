package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/halcyondata/recall/internal/api"
	"github.com/halcyondata/recall/internal/api/middleware"
	"github.com/halcyondata/recall/internal/domain"
	"github.com/halcyondata/recall/internal/service"
)

type GraphService interface {
	AddEdges(ctx context.Context, input service.AddEdgesInput) ([]*domain.GraphEdge, error)
	ListByCaller(ctx context.Context, tenantID, caller string) ([]*domain.GraphEdge, error)
	Paths(ctx context.Context, input service.PathsInput) ([]*domain.GraphPath, error)
}

type GraphHandler struct {
	svc GraphService
}

func NewGraphHandler(svc GraphService) *GraphHandler {
	return &GraphHandler{svc: svc}
}

type EdgeRequest struct {
	Caller string `json:"caller"`
	Callee string `json:"callee"`
	File   string `json:"file"`
	Line   int    `json:"line"`
}

type AddEdgesRequest struct {
	TenantID string        `json:"tenant_id"`
	ItemID   string        `json:"item_id"`
	Edges    []EdgeRequest `json:"edges"`
}

type EdgeResponse struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	ItemID    string `json:"item_id,omitempty"`
	Caller    string `json:"caller"`
	Callee    string `json:"callee"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
	CreatedAt string `json:"created_at"`
}

type EdgeListResponse struct {
	Items []*EdgeResponse `json:"items"`
}

type PathsRequest struct {
	TenantID string `json:"tenant_id"`
	From     string `json:"from"`
	To       string `json:"to"`
	MaxDepth int    `json:"max_depth"`
}

type PathResponse struct {
	Symbols []string `json:"symbols"`
	Depth   int      `json:"depth"`
}

type PathsResponse struct {
	Paths []*PathResponse `json:"paths"`
}

func edgeToResponse(edge *domain.GraphEdge) *EdgeResponse {
	return &EdgeResponse{
		ID:        edge.ID,
		TenantID:  edge.TenantID,
		ItemID:    edge.ItemID,
		Caller:    edge.Caller,
		Callee:    edge.Callee,
		File:      edge.File,
		Line:      edge.Line,
		CreatedAt: edge.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *GraphHandler) AddEdges(w http.ResponseWriter, r *http.Request) {
	var req AddEdgesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
		return
	}

	if len(req.Edges) == 0 {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "at least one edge is required")
		return
	}

	if req.TenantID == "" {
		if claims, ok := middleware.GetClaims(r.Context()); ok {
			req.TenantID = claims.TenantID
		}
	}

	edges := make([]service.EdgeInput, len(req.Edges))
	for i, e := range req.Edges {
		edges[i] = service.EdgeInput{
			Caller: e.Caller,
			Callee: e.Callee,
			File:   e.File,
			Line:   e.Line,
		}
	}

	created, err := h.svc.AddEdges(r.Context(), service.AddEdgesInput{
		TenantID: req.TenantID,
		ItemID:   req.ItemID,
		Edges:    edges,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*EdgeResponse, len(created))
	for i, edge := range created {
		items[i] = edgeToResponse(edge)
	}

	api.Success(w, http.StatusCreated, EdgeListResponse{Items: items})
}

func (h *GraphHandler) ListByCaller(w http.ResponseWriter, r *http.Request) {
	caller := r.URL.Query().Get("caller")
	if caller == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "caller is required")
		return
	}

	edges, err := h.svc.ListByCaller(r.Context(), r.URL.Query().Get("tenant_id"), caller)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*EdgeResponse, len(edges))
	for i, edge := range edges {
		items[i] = edgeToResponse(edge)
	}

	api.Success(w, http.StatusOK, EdgeListResponse{Items: items})
}

func (h *GraphHandler) Paths(w http.ResponseWriter, r *http.Request) {
	var req PathsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
		return
	}

	if req.From == "" || req.To == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "from and to are required")
		return
	}

	paths, err := h.svc.Paths(r.Context(), service.PathsInput{
		TenantID: req.TenantID,
		From:     req.From,
		To:       req.To,
		MaxDepth: req.MaxDepth,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]*PathResponse, len(paths))
	for i, p := range paths {
		out[i] = &PathResponse{Symbols: p.Symbols, Depth: p.Depth}
	}

	api.Success(w, http.StatusOK, PathsResponse{Paths: out})
}
