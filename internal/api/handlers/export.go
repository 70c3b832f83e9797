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

type ExportService interface {
	ExportTenant(ctx context.Context, tenantID string) (*service.ExportOutput, error)
}

type ExportHandler struct {
	svc ExportService
}

func NewExportHandler(svc ExportService) *ExportHandler {
	return &ExportHandler{svc: svc}
}

type ExportRequest struct {
	TenantID string `json:"tenant_id"`
}

type ExportResponse struct {
	Key        string `json:"key"`
	URL        string `json:"url"`
	ItemCount  int    `json:"item_count"`
	ChunkCount int    `json:"chunk_count"`
}

func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	var req ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
		return
	}

	if req.TenantID == "" {
		if claims, ok := middleware.GetClaims(r.Context()); ok {
			req.TenantID = claims.TenantID
		}
	}

	output, err := h.svc.ExportTenant(r.Context(), req.TenantID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ExportResponse{
		Key:        output.Key,
		URL:        output.URL,
		ItemCount:  output.ItemCount,
		ChunkCount: output.ChunkCount,
	})
}
