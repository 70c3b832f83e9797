package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAPIKey(t *testing.T) {
	now := time.Now()
	apiKey := NewAPIKey("key1", "t1", "Test Key", "hash123", RoleReader, now, nil)

	assert.Equal(t, "key1", apiKey.ID)
	assert.Equal(t, "t1", apiKey.TenantID)
	assert.Equal(t, "Test Key", apiKey.Name)
	assert.Equal(t, "hash123", apiKey.KeyHash)
	assert.Equal(t, RoleReader, apiKey.Role)
	assert.Equal(t, now, apiKey.CreatedAt)
	assert.Nil(t, apiKey.RevokedAt)
}

func TestNewAPIKeyWithRevocation(t *testing.T) {
	now := time.Now()
	revokedAt := now.Add(24 * time.Hour)
	apiKey := NewAPIKey("key1", "t1", "Test Key", "hash123", RoleService, now, &revokedAt)

	assert.Equal(t, "key1", apiKey.ID)
	assert.NotNil(t, apiKey.RevokedAt)
	assert.Equal(t, revokedAt, *apiKey.RevokedAt)
}

func TestValidateAPIKey(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		apiKey  *APIKey
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid reader key",
			apiKey: &APIKey{
				ID:        "key1",
				TenantID:  "t1",
				Name:      "Test Key",
				KeyHash:   "hash123",
				Role:      RoleReader,
				CreatedAt: now,
			},
			wantErr: false,
		},
		{
			name: "valid service key",
			apiKey: &APIKey{
				ID:        "key1",
				TenantID:  "t1",
				Name:      "Ingest",
				KeyHash:   "hash123",
				Role:      RoleService,
				CreatedAt: now,
			},
			wantErr: false,
		},
		{
			name: "missing ID",
			apiKey: &APIKey{
				TenantID:  "t1",
				Name:      "Test Key",
				KeyHash:   "hash123",
				Role:      RoleReader,
				CreatedAt: now,
			},
			wantErr: true,
			errMsg:  "ID",
		},
		{
			name: "missing TenantID",
			apiKey: &APIKey{
				ID:        "key1",
				Name:      "Test Key",
				KeyHash:   "hash123",
				Role:      RoleReader,
				CreatedAt: now,
			},
			wantErr: true,
			errMsg:  "TenantID",
		},
		{
			name: "missing Name",
			apiKey: &APIKey{
				ID:        "key1",
				TenantID:  "t1",
				KeyHash:   "hash123",
				Role:      RoleReader,
				CreatedAt: now,
			},
			wantErr: true,
			errMsg:  "Name",
		},
		{
			name: "missing KeyHash",
			apiKey: &APIKey{
				ID:        "key1",
				TenantID:  "t1",
				Name:      "Test Key",
				Role:      RoleReader,
				CreatedAt: now,
			},
			wantErr: true,
			errMsg:  "KeyHash",
		},
		{
			name: "invalid role",
			apiKey: &APIKey{
				ID:        "key1",
				TenantID:  "t1",
				Name:      "Test Key",
				KeyHash:   "hash123",
				Role:      Role("admin"),
				CreatedAt: now,
			},
			wantErr: true,
			errMsg:  "Role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAPIKey(tt.apiKey)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAPIKeyIsRevoked(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name     string
		apiKey   *APIKey
		expected bool
	}{
		{
			name: "not revoked",
			apiKey: &APIKey{
				ID:        "key1",
				TenantID:  "t1",
				Name:      "Test Key",
				KeyHash:   "hash123",
				Role:      RoleReader,
				CreatedAt: now,
				RevokedAt: nil,
			},
			expected: false,
		},
		{
			name: "revoked",
			apiKey: &APIKey{
				ID:        "key1",
				TenantID:  "t1",
				Name:      "Test Key",
				KeyHash:   "hash123",
				Role:      RoleReader,
				CreatedAt: now,
				RevokedAt: &now,
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.apiKey.IsRevoked())
		})
	}
}
