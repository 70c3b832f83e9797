package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/halcyondata/recall/internal/api/handlers"
	"github.com/halcyondata/recall/internal/domain"
	"github.com/halcyondata/recall/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAuthValidator struct {
	mock.Mock
}

func (m *MockAuthValidator) ValidateAPIKey(ctx context.Context, token string) (*domain.Claims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Claims), args.Error(1)
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) CreateTenant(ctx context.Context, name string) (*domain.Tenant, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockAuthService) CreateAPIKey(ctx context.Context, tenantID, name string, role domain.Role) (string, *domain.APIKey, error) {
	args := m.Called(ctx, tenantID, name, role)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*domain.APIKey), args.Error(2)
}

func (m *MockAuthService) ValidateAPIKey(ctx context.Context, token string) (*domain.Claims, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Claims), args.Error(1)
}

type MockItemService struct {
	mock.Mock
}

func (m *MockItemService) Create(ctx context.Context, input service.CreateItemInput) (*domain.Item, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}

func (m *MockItemService) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}

func (m *MockItemService) Update(ctx context.Context, input service.UpdateItemInput) (*domain.Item, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}

func (m *MockItemService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockItemService) List(ctx context.Context, input service.ListItemsInput) (*service.ListItemsOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListItemsOutput), args.Error(1)
}

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

type MockSessionService struct {
	mock.Mock
}

func (m *MockSessionService) Create(ctx context.Context, input service.CreateSessionInput) (*domain.Session, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionService) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionService) List(ctx context.Context, input service.ListSessionsInput) (*service.ListSessionsOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ListSessionsOutput), args.Error(1)
}

func (m *MockSessionService) End(ctx context.Context, id string) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *MockSessionService) AppendCheckpoint(ctx context.Context, sessionID string, state map[string]any) (*domain.Checkpoint, error) {
	args := m.Called(ctx, sessionID, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Checkpoint), args.Error(1)
}

func (m *MockSessionService) ListCheckpoints(ctx context.Context, sessionID string) ([]*domain.Checkpoint, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Checkpoint), args.Error(1)
}

func (m *MockSessionService) GetLatestCheckpoint(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Checkpoint), args.Error(1)
}

type MockGraphService struct {
	mock.Mock
}

func (m *MockGraphService) AddEdges(ctx context.Context, input service.AddEdgesInput) ([]*domain.GraphEdge, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.GraphEdge), args.Error(1)
}

func (m *MockGraphService) ListByCaller(ctx context.Context, tenantID, caller string) ([]*domain.GraphEdge, error) {
	args := m.Called(ctx, tenantID, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.GraphEdge), args.Error(1)
}

func (m *MockGraphService) Paths(ctx context.Context, input service.PathsInput) ([]*domain.GraphPath, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.GraphPath), args.Error(1)
}

type MockExportService struct {
	mock.Mock
}

func (m *MockExportService) ExportTenant(ctx context.Context, tenantID string) (*service.ExportOutput, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExportOutput), args.Error(1)
}

type routerMocks struct {
	authValidator *MockAuthValidator
	authSvc       *MockAuthService
	itemSvc       *MockItemService
	searchSvc     *MockSearchService
	sessionSvc    *MockSessionService
	exportSvc     *MockExportService
}

func setupRouter(cfgMods ...func(*RouterConfig)) (http.Handler, *routerMocks) {
	mocks := &routerMocks{
		authValidator: new(MockAuthValidator),
		authSvc:       new(MockAuthService),
		itemSvc:       new(MockItemService),
		searchSvc:     new(MockSearchService),
		sessionSvc:    new(MockSessionService),
		exportSvc:     new(MockExportService),
	}

	cfg := RouterConfig{
		AuthValidator:  mocks.authValidator,
		AuthHandler:    handlers.NewAuthHandler(mocks.authSvc),
		ItemHandler:    handlers.NewItemHandler(mocks.itemSvc),
		ChunkHandler:   handlers.NewChunkHandler(new(MockChunkService)),
		SearchHandler:  handlers.NewSearchHandler(mocks.searchSvc),
		SessionHandler: handlers.NewSessionHandler(mocks.sessionSvc),
		GraphHandler:   handlers.NewGraphHandler(new(MockGraphService)),
		ExportHandler:  handlers.NewExportHandler(mocks.exportSvc),
	}
	for _, mod := range cfgMods {
		mod(&cfg)
	}

	return NewRouter(cfg), mocks
}

const testToken = "rcl_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
}

func TestRouter_AuthenticatedRoutes_RequireAuth(t *testing.T) {
	router, mocks := setupRouter()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/v1/search"},
		{http.MethodPost, "/v1/search/s-1/feedback"},
		{http.MethodPost, "/v1/items"},
		{http.MethodGet, "/v1/items"},
		{http.MethodGet, "/v1/items/item-1"},
		{http.MethodPut, "/v1/items/item-1"},
		{http.MethodDelete, "/v1/items/item-1"},
		{http.MethodPost, "/v1/items/item-1/chunks"},
		{http.MethodGet, "/v1/items/item-1/chunks"},
		{http.MethodPost, "/v1/sessions"},
		{http.MethodGet, "/v1/sessions"},
		{http.MethodGet, "/v1/sessions/s-1"},
		{http.MethodPost, "/v1/sessions/s-1/end"},
		{http.MethodPost, "/v1/sessions/s-1/checkpoints"},
		{http.MethodGet, "/v1/sessions/s-1/checkpoints"},
		{http.MethodGet, "/v1/sessions/s-1/checkpoints/latest"},
		{http.MethodPost, "/v1/graph/edges"},
		{http.MethodGet, "/v1/graph/edges"},
		{http.MethodPost, "/v1/graph/paths"},
		{http.MethodPost, "/v1/export"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	mocks.authValidator.AssertExpectations(t)
}

func TestRouter_AuthenticatedRoutes_WithValidAuth(t *testing.T) {
	router, mocks := setupRouter()

	claims := &domain.Claims{TenantID: "tenant-1", APIKeyID: "key-1", Role: domain.RoleService}
	mocks.authValidator.On("ValidateAPIKey", mock.Anything, testToken).Return(claims, nil)

	expectedItem := &domain.Item{
		ID:        "item-1",
		TenantID:  "tenant-1",
		Title:     "Deploy checklist",
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	mocks.itemSvc.On("GetByID", mock.Anything, "item-1").Return(expectedItem, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/items/item-1", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mocks.authValidator.AssertExpectations(t)
	mocks.itemSvc.AssertExpectations(t)
}

func TestRouter_SearchRoute_PassesClaims(t *testing.T) {
	router, mocks := setupRouter()

	claims := &domain.Claims{TenantID: "tenant-1", APIKeyID: "key-1", Role: domain.RoleReader}
	mocks.authValidator.On("ValidateAPIKey", mock.Anything, testToken).Return(claims, nil)

	expectedOutput := &service.SearchOutput{SearchID: "s-1", Results: []*domain.SearchResult{}}
	mocks.searchSvc.On("Search", mock.Anything, mock.MatchedBy(func(input service.SearchInput) bool {
		return len(input.Embedding) == 3
	})).Return(expectedOutput, nil)

	body := `{"query_embedding":[0.1,0.2,0.3]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/search", bytes.NewReader([]byte(body)))
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mocks.searchSvc.AssertExpectations(t)
}

func TestRouter_BootstrapRoutes_NoAuthRequired(t *testing.T) {
	router, mocks := setupRouter()

	expectedTenant := &domain.Tenant{
		ID:        "tenant-1",
		Name:      "acme",
		CreatedAt: time.Now().UTC(),
	}
	mocks.authSvc.On("CreateTenant", mock.Anything, "acme").Return(expectedTenant, nil)

	body := `{"name":"acme"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/tenants", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	mocks.authSvc.AssertExpectations(t)
}

func TestRouter_BodyCap_RejectsOversizedBody(t *testing.T) {
	router, mocks := setupRouter(func(cfg *RouterConfig) {
		cfg.MaxBodyBytes = 64
	})

	claims := &domain.Claims{TenantID: "tenant-1", APIKeyID: "key-1", Role: domain.RoleService}
	mocks.authValidator.On("ValidateAPIKey", mock.Anything, testToken).Return(claims, nil)

	body := `{"title":"` + strings.Repeat("x", 256) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/items", bytes.NewReader([]byte(body)))
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
