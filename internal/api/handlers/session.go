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

type SessionService interface {
	Create(ctx context.Context, input service.CreateSessionInput) (*domain.Session, error)
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	List(ctx context.Context, input service.ListSessionsInput) (*service.ListSessionsOutput, error)
	End(ctx context.Context, id string) (*domain.Session, error)
	AppendCheckpoint(ctx context.Context, sessionID string, state map[string]any) (*domain.Checkpoint, error)
	ListCheckpoints(ctx context.Context, sessionID string) ([]*domain.Checkpoint, error)
	GetLatestCheckpoint(ctx context.Context, sessionID string) (*domain.Checkpoint, error)
}

type SessionHandler struct {
	svc SessionService
}

func NewSessionHandler(svc SessionService) *SessionHandler {
	return &SessionHandler{svc: svc}
}

type CreateSessionRequest struct {
	TenantID string         `json:"tenant_id"`
	UserID   string         `json:"user_id"`
	Agent    string         `json:"agent"`
	Title    string         `json:"title"`
	Metadata map[string]any `json:"metadata"`
}

type SessionResponse struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	UserID    string         `json:"user_id,omitempty"`
	Agent     string         `json:"agent"`
	Title     string         `json:"title,omitempty"`
	Status    string         `json:"status"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt string         `json:"created_at"`
	UpdatedAt string         `json:"updated_at"`
}

type SessionListResponse struct {
	Items   []*SessionResponse `json:"items"`
	Cursor  string             `json:"cursor,omitempty"`
	HasMore bool               `json:"has_more"`
}

type AppendCheckpointRequest struct {
	State map[string]any `json:"state"`
}

type CheckpointResponse struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Seq       int            `json:"seq"`
	State     map[string]any `json:"state"`
	CreatedAt string         `json:"created_at"`
}

type CheckpointListResponse struct {
	Items []*CheckpointResponse `json:"items"`
}

func sessionToResponse(session *domain.Session) *SessionResponse {
	return &SessionResponse{
		ID:        session.ID,
		TenantID:  session.TenantID,
		UserID:    session.UserID,
		Agent:     session.Agent,
		Title:     session.Title,
		Status:    string(session.Status),
		Metadata:  session.Metadata,
		CreatedAt: session.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: session.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func checkpointToResponse(cp *domain.Checkpoint) *CheckpointResponse {
	return &CheckpointResponse{
		ID:        cp.ID,
		SessionID: cp.SessionID,
		Seq:       cp.Seq,
		State:     cp.State,
		CreatedAt: cp.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
		return
	}

	if req.Agent == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "agent is required")
		return
	}

	if req.TenantID == "" {
		if claims, ok := middleware.GetClaims(r.Context()); ok {
			req.TenantID = claims.TenantID
		}
	}

	session, err := h.svc.Create(r.Context(), service.CreateSessionInput{
		TenantID: req.TenantID,
		UserID:   req.UserID,
		Agent:    req.Agent,
		Title:    req.Title,
		Metadata: req.Metadata,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, sessionToResponse(session))
}

func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "session id is required")
		return
	}

	session, err := h.svc.GetByID(r.Context(), sessionID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, sessionToResponse(session))
}

func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 1 {
			api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	output, err := h.svc.List(r.Context(), service.ListSessionsInput{
		TenantFilter: r.URL.Query().Get("tenant_id"),
		Cursor:       r.URL.Query().Get("cursor"),
		Limit:        limit,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*SessionResponse, len(output.Items))
	for i, session := range output.Items {
		items[i] = sessionToResponse(session)
	}

	api.Success(w, http.StatusOK, SessionListResponse{
		Items:   items,
		Cursor:  output.Cursor,
		HasMore: output.HasMore,
	})
}

func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "session id is required")
		return
	}

	session, err := h.svc.End(r.Context(), sessionID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, sessionToResponse(session))
}

func (h *SessionHandler) AppendCheckpoint(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "session id is required")
		return
	}

	var req AppendCheckpointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "invalid request body")
		return
	}

	cp, err := h.svc.AppendCheckpoint(r.Context(), sessionID, req.State)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, checkpointToResponse(cp))
}

func (h *SessionHandler) ListCheckpoints(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "session id is required")
		return
	}

	checkpoints, err := h.svc.ListCheckpoints(r.Context(), sessionID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*CheckpointResponse, len(checkpoints))
	for i, cp := range checkpoints {
		items[i] = checkpointToResponse(cp)
	}

	api.Success(w, http.StatusOK, CheckpointListResponse{Items: items})
}

func (h *SessionHandler) LatestCheckpoint(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		api.Error(w, http.StatusBadRequest, domain.ErrCodeValidation, "session id is required")
		return
	}

	cp, err := h.svc.GetLatestCheckpoint(r.Context(), sessionID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, checkpointToResponse(cp))
}
