package domain

import (
	"fmt"
	"time"
)

// Role determines what an API key may do. Readers search and fetch rows
// within their own tenant; service keys additionally write and may search
// without a tenant scope.
type Role string

const (
	RoleReader  Role = "reader"
	RoleService Role = "service"
)

// APIKey represents an API key for authentication
type APIKey struct {
	ID        string
	TenantID  string
	Name      string
	KeyHash   string // Never store plaintext keys
	Role      Role
	CreatedAt time.Time
	RevokedAt *time.Time
}

// NewAPIKey creates a new APIKey instance
func NewAPIKey(id, tenantID, name, keyHash string, role Role, createdAt time.Time, revokedAt *time.Time) *APIKey {
	return &APIKey{
		ID:        id,
		TenantID:  tenantID,
		Name:      name,
		KeyHash:   keyHash,
		Role:      role,
		CreatedAt: createdAt,
		RevokedAt: revokedAt,
	}
}

// IsRevoked returns true if the API key has been revoked
func (a *APIKey) IsRevoked() bool {
	return a.RevokedAt != nil
}

// ValidateAPIKey validates an APIKey instance
func ValidateAPIKey(a *APIKey) error {
	if a == nil {
		return fmt.Errorf("api key cannot be nil")
	}

	if a.ID == "" {
		return fmt.Errorf("api key ID is required")
	}

	if a.TenantID == "" {
		return fmt.Errorf("api key TenantID is required")
	}

	if a.Name == "" {
		return fmt.Errorf("api key Name is required")
	}

	if a.KeyHash == "" {
		return fmt.Errorf("api key KeyHash is required")
	}

	if !isValidRole(a.Role) {
		return fmt.Errorf("api key Role is invalid: %s", a.Role)
	}

	return nil
}

// isValidRole checks if a Role is valid
func isValidRole(r Role) bool {
	switch r {
	case RoleReader, RoleService:
		return true
	}
	return false
}
