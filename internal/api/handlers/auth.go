package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/halcyondata/recall/internal/api"
	"github.com/halcyondata/recall/internal/domain"
)

type AuthService interface {
	CreateTenant(ctx context.Context, name string) (*domain.Tenant, error)
	CreateAPIKey(ctx context.Context, tenantID, name string, role domain.Role) (string, *domain.APIKey, error)
	ValidateAPIKey(ctx context.Context, token string) (*domain.Claims, error)
}

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type CreateTenantRequest struct {
	Name string `json:"name"`
}

type TenantResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

type CreateAPIKeyRequest struct {
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

type APIKeyResponse struct {
	ID    string `json:"id"`
	Token string `json:"token"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type ValidateTokenRequest struct {
	Token string `json:"token"`
}

type ClaimsResponse struct {
	TenantID string `json:"tenant_id"`
	APIKeyID string `json:"api_key_id"`
	Role     string `json:"role"`
}

func (h *AuthHandler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "name is required")
		return
	}

	tenant, err := h.svc.CreateTenant(r.Context(), req.Name)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, TenantResponse{
		ID:        tenant.ID,
		Name:      tenant.Name,
		CreatedAt: tenant.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

func (h *AuthHandler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	var req CreateAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
		return
	}

	if req.TenantID == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "tenant_id is required")
		return
	}
	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "name is required")
		return
	}

	token, key, err := h.svc.CreateAPIKey(r.Context(), req.TenantID, req.Name, domain.Role(req.Role))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, APIKeyResponse{
		ID:    key.ID,
		Token: token,
		Name:  key.Name,
		Role:  string(key.Role),
	})
}

func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
		return
	}

	if req.Token == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "token is required")
		return
	}

	claims, err := h.svc.ValidateAPIKey(r.Context(), req.Token)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ClaimsResponse{
		TenantID: claims.TenantID,
		APIKeyID: claims.APIKeyID,
		Role:     string(claims.Role),
	})
}
