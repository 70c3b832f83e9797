package domain

import (
	"fmt"
	"time"
)

// SessionStatus represents the status of an agent session
type SessionStatus string

const (
	SessionStatusActive SessionStatus = "active"
	SessionStatusEnded  SessionStatus = "ended"
)

// Session represents an agent working session owned by a tenant. Checkpoints
// capture its state over time.
type Session struct {
	ID        string
	TenantID  string
	UserID    string // optional
	Agent     string
	Title     string
	Status    SessionStatus
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Checkpoint is a point-in-time snapshot of a session's state. Seq is
// assigned by the store and increases by one per session starting at 1.
type Checkpoint struct {
	ID        string
	SessionID string
	TenantID  string
	Seq       int
	State     map[string]any
	CreatedAt time.Time
}

// NewSession creates a new Session instance
func NewSession(id, tenantID, userID, agent, title string, metadata map[string]any, createdAt time.Time) *Session {
	return &Session{
		ID:        id,
		TenantID:  tenantID,
		UserID:    userID,
		Agent:     agent,
		Title:     title,
		Status:    SessionStatusActive,
		Metadata:  metadata,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// ValidateSession validates a Session instance
func ValidateSession(s *Session) error {
	if s == nil {
		return fmt.Errorf("session cannot be nil")
	}

	if s.ID == "" {
		return fmt.Errorf("session ID is required")
	}

	if s.TenantID == "" {
		return fmt.Errorf("session TenantID is required")
	}

	if s.Agent == "" {
		return fmt.Errorf("session Agent is required")
	}

	if !isValidSessionStatus(s.Status) {
		return fmt.Errorf("session Status is invalid: %s", s.Status)
	}

	return nil
}

// isValidSessionStatus checks if a SessionStatus is valid
func isValidSessionStatus(s SessionStatus) bool {
	switch s {
	case SessionStatusActive, SessionStatusEnded:
		return true
	}
	return false
}
