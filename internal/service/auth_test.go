package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/halcyondata/recall/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTenantRepository struct {
	mock.Mock
}

func (m *MockTenantRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	args := m.Called(ctx, tenant)
	return args.Error(0)
}

func (m *MockTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) GetByName(ctx context.Context, name string) (*domain.Tenant, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Tenant), args.Error(1)
}

func (m *MockTenantRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockAPIKeyRepository struct {
	mock.Mock
}

func (m *MockAPIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockAPIKeyRepository) GetByID(ctx context.Context, id string) (*domain.APIKey, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) GetByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	args := m.Called(ctx, hash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) GetByTenantID(ctx context.Context, tenantID string) ([]*domain.APIKey, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.APIKey), args.Error(1)
}

func (m *MockAPIKeyRepository) Revoke(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAPIKeyRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func TestAuthService_CreateTenant(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator("tenant-123")

	mockTenantRepo.On("Create", ctx, mock.MatchedBy(func(tenant *domain.Tenant) bool {
		return tenant.Name == "acme" && tenant.ID == "tenant-123"
	})).Return(nil)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	tenant, err := service.CreateTenant(ctx, "acme")

	require.NoError(t, err)
	assert.Equal(t, "tenant-123", tenant.ID)
	assert.Equal(t, "acme", tenant.Name)
	mockTenantRepo.AssertExpectations(t)
}

func TestAuthService_CreateTenant_EmptyName(t *testing.T) {
	ctx := context.Background()
	service := NewAuthService(new(MockTenantRepository), new(MockAPIKeyRepository), NewMockUUIDGenerator())

	_, err := service.CreateTenant(ctx, "")

	assert.Error(t, err)
}

func TestAuthService_CreateTenant_DuplicateName(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockTenantRepo.On("Create", ctx, mock.Anything).Return(domain.ErrTenantAlreadyExists)

	service := NewAuthService(mockTenantRepo, new(MockAPIKeyRepository), NewMockUUIDGenerator("tenant-123"))
	_, err := service.CreateTenant(ctx, "acme")

	assert.ErrorIs(t, err, domain.ErrTenantAlreadyExists)
}

func TestAuthService_CreateAPIKey_GeneratesRclToken(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator("key-123")

	mockTenantRepo.On("GetByID", ctx, "tenant-123").Return(&domain.Tenant{
		ID:        "tenant-123",
		Name:      "acme",
		CreatedAt: time.Now().UTC(),
	}, nil)

	mockAPIKeyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		return key.ID == "key-123" && key.Role == domain.RoleService && len(key.KeyHash) == 64
	})).Return(nil)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	token, key, err := service.CreateAPIKey(ctx, "tenant-123", "ci-key", domain.RoleService)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(token, "rcl_"), "token should start with rcl_")
	assert.Equal(t, 68, len(token), "token should be rcl_ + 64 hex chars")
	assert.Equal(t, domain.RoleService, key.Role)
	mockAPIKeyRepo.AssertExpectations(t)
}

func TestAuthService_CreateAPIKey_DefaultsToReaderRole(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)

	mockTenantRepo.On("GetByID", ctx, "tenant-123").Return(&domain.Tenant{ID: "tenant-123", Name: "acme"}, nil)
	mockAPIKeyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		return key.Role == domain.RoleReader
	})).Return(nil)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, NewMockUUIDGenerator("key-123"))
	_, key, err := service.CreateAPIKey(ctx, "tenant-123", "default-role", "")

	require.NoError(t, err)
	assert.Equal(t, domain.RoleReader, key.Role)
}

func TestAuthService_CreateAPIKey_StoresSHA256Hash(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator("key-123")

	mockTenantRepo.On("GetByID", ctx, "tenant-123").Return(&domain.Tenant{
		ID:        "tenant-123",
		Name:      "acme",
		CreatedAt: time.Now().UTC(),
	}, nil)

	var capturedKey *domain.APIKey
	mockAPIKeyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		capturedKey = key
		return true
	})).Return(nil)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	token, _, err := service.CreateAPIKey(ctx, "tenant-123", "ci-key", domain.RoleReader)

	require.NoError(t, err)
	require.NotNil(t, capturedKey)
	assert.NotEqual(t, token, capturedKey.KeyHash)
	assert.Equal(t, 64, len(capturedKey.KeyHash), "SHA256 hash should be 64 hex chars")
}

func TestAuthService_CreateAPIKey_UnknownTenant(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)

	mockTenantRepo.On("GetByID", ctx, "tenant-x").Return(nil, domain.ErrTenantNotFound)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, NewMockUUIDGenerator())
	_, _, err := service.CreateAPIKey(ctx, "tenant-x", "ci-key", domain.RoleReader)

	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
	mockAPIKeyRepo.AssertNotCalled(t, "Create")
}

func TestAuthService_ValidateAPIKey_ReturnsClaims(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator("key-123")

	mockTenantRepo.On("GetByID", ctx, "tenant-123").Return(&domain.Tenant{
		ID:        "tenant-123",
		Name:      "acme",
		CreatedAt: time.Now().UTC(),
	}, nil)

	var storedHash string
	mockAPIKeyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		storedHash = key.KeyHash
		return true
	})).Return(nil)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	token, _, err := service.CreateAPIKey(ctx, "tenant-123", "ci-key", domain.RoleService)
	require.NoError(t, err)

	mockAPIKeyRepo.On("GetByHash", ctx, storedHash).Return(&domain.APIKey{
		ID:        "key-123",
		TenantID:  "tenant-123",
		Name:      "ci-key",
		KeyHash:   storedHash,
		Role:      domain.RoleService,
		CreatedAt: time.Now().UTC(),
		RevokedAt: nil,
	}, nil)

	claims, err := service.ValidateAPIKey(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "tenant-123", claims.TenantID)
	assert.Equal(t, "key-123", claims.APIKeyID)
	assert.Equal(t, domain.RoleService, claims.Role)
	assert.True(t, claims.CanWrite())
}

func TestAuthService_ValidateAPIKey_InvalidToken(t *testing.T) {
	ctx := context.Background()
	service := NewAuthService(new(MockTenantRepository), new(MockAPIKeyRepository), NewMockUUIDGenerator())

	_, err := service.ValidateAPIKey(ctx, "invalid-token")

	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
}

func TestAuthService_ValidateAPIKey_NotFound(t *testing.T) {
	ctx := context.Background()
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockAPIKeyRepo.On("GetByHash", ctx, mock.Anything).Return(nil, domain.ErrAPIKeyNotFound)

	service := NewAuthService(new(MockTenantRepository), mockAPIKeyRepo, NewMockUUIDGenerator())
	_, err := service.ValidateAPIKey(ctx, "rcl_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")

	assert.ErrorIs(t, err, domain.ErrInvalidAPIKey)
}

func TestAuthService_ValidateAPIKey_RevokedKey(t *testing.T) {
	ctx := context.Background()
	mockAPIKeyRepo := new(MockAPIKeyRepository)

	revokedAt := time.Now().UTC()
	mockAPIKeyRepo.On("GetByHash", ctx, mock.Anything).Return(&domain.APIKey{
		ID:        "key-123",
		TenantID:  "tenant-123",
		Name:      "ci-key",
		KeyHash:   "somehash",
		Role:      domain.RoleReader,
		CreatedAt: time.Now().UTC(),
		RevokedAt: &revokedAt,
	}, nil)

	service := NewAuthService(new(MockTenantRepository), mockAPIKeyRepo, NewMockUUIDGenerator())
	_, err := service.ValidateAPIKey(ctx, "rcl_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef")

	assert.ErrorIs(t, err, domain.ErrAPIKeyRevoked)
}

func TestAuthService_RevokeAPIKey(t *testing.T) {
	ctx := context.Background()
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockAPIKeyRepo.On("Revoke", ctx, "key-123").Return(nil)

	service := NewAuthService(new(MockTenantRepository), mockAPIKeyRepo, NewMockUUIDGenerator())
	err := service.RevokeAPIKey(ctx, "key-123")

	require.NoError(t, err)
	mockAPIKeyRepo.AssertExpectations(t)
}

func TestAuthService_RevokeAPIKey_NotFound(t *testing.T) {
	ctx := context.Background()
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockAPIKeyRepo.On("Revoke", ctx, "key-123").Return(domain.ErrAPIKeyNotFound)

	service := NewAuthService(new(MockTenantRepository), mockAPIKeyRepo, NewMockUUIDGenerator())
	err := service.RevokeAPIKey(ctx, "key-123")

	assert.ErrorIs(t, err, domain.ErrAPIKeyNotFound)
}

func TestAuthService_ListAPIKeys(t *testing.T) {
	ctx := context.Background()
	mockAPIKeyRepo := new(MockAPIKeyRepository)

	keys := []*domain.APIKey{
		{ID: "key-1", TenantID: "tenant-123", Name: "key1", KeyHash: "hash1", Role: domain.RoleReader, CreatedAt: time.Now().UTC()},
		{ID: "key-2", TenantID: "tenant-123", Name: "key2", KeyHash: "hash2", Role: domain.RoleService, CreatedAt: time.Now().UTC()},
	}
	mockAPIKeyRepo.On("GetByTenantID", ctx, "tenant-123").Return(keys, nil)

	service := NewAuthService(new(MockTenantRepository), mockAPIKeyRepo, NewMockUUIDGenerator())
	result, err := service.ListAPIKeys(ctx, "tenant-123")

	require.NoError(t, err)
	assert.Len(t, result, 2)
	mockAPIKeyRepo.AssertExpectations(t)
}

func TestAuthService_ListAPIKeys_EmptyTenantID(t *testing.T) {
	ctx := context.Background()
	service := NewAuthService(new(MockTenantRepository), new(MockAPIKeyRepository), NewMockUUIDGenerator())

	_, err := service.ListAPIKeys(ctx, "")

	assert.Error(t, err)
}

func TestIsValidAPIToken(t *testing.T) {
	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"valid token", "rcl_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", true},
		{"valid uppercase", "rcl_0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF0123456789ABCDEF", true},
		{"missing prefix", "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", false},
		{"wrong prefix", "abc_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef", false},
		{"too short", "rcl_0123456789abcdef", false},
		{"too long", "rcl_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef00", false},
		{"invalid chars", "rcl_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdeg", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsValidAPIToken(tt.token)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthService_CreateAPIKeyWithToken(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)
	mockUUIDGen := NewMockUUIDGenerator("key-123")

	token := "rcl_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

	mockTenantRepo.On("GetByID", ctx, "tenant-123").Return(&domain.Tenant{
		ID:        "tenant-123",
		Name:      "acme",
		CreatedAt: time.Now().UTC(),
	}, nil)
	mockAPIKeyRepo.On("GetByHash", ctx, mock.Anything).Return(nil, domain.ErrAPIKeyNotFound)
	mockAPIKeyRepo.On("Create", ctx, mock.MatchedBy(func(key *domain.APIKey) bool {
		return key.TenantID == "tenant-123" && key.Name == "seed-key" && key.Role == domain.RoleService
	})).Return(nil)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, mockUUIDGen)
	key, err := service.CreateAPIKeyWithToken(ctx, "tenant-123", "seed-key", token, domain.RoleService)

	require.NoError(t, err)
	assert.Equal(t, "key-123", key.ID)
	mockAPIKeyRepo.AssertExpectations(t)
}

func TestAuthService_CreateAPIKeyWithToken_AlreadyRegistered(t *testing.T) {
	ctx := context.Background()
	mockTenantRepo := new(MockTenantRepository)
	mockAPIKeyRepo := new(MockAPIKeyRepository)

	token := "rcl_0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	existing := &domain.APIKey{ID: "key-existing", TenantID: "tenant-123", Name: "seed-key", KeyHash: "h", Role: domain.RoleService}

	mockTenantRepo.On("GetByID", ctx, "tenant-123").Return(&domain.Tenant{ID: "tenant-123", Name: "acme"}, nil)
	mockAPIKeyRepo.On("GetByHash", ctx, mock.Anything).Return(existing, nil)

	service := NewAuthService(mockTenantRepo, mockAPIKeyRepo, NewMockUUIDGenerator())
	key, err := service.CreateAPIKeyWithToken(ctx, "tenant-123", "seed-key", token, domain.RoleService)

	require.NoError(t, err)
	assert.Equal(t, "key-existing", key.ID)
	mockAPIKeyRepo.AssertNotCalled(t, "Create")
}

func TestAuthService_CreateAPIKeyWithToken_InvalidFormat(t *testing.T) {
	ctx := context.Background()
	service := NewAuthService(new(MockTenantRepository), new(MockAPIKeyRepository), NewMockUUIDGenerator())

	_, err := service.CreateAPIKeyWithToken(ctx, "tenant-123", "seed-key", "invalid-token", domain.RoleService)

	assert.Error(t, err)
}
