package domain

import (
	"fmt"
	"time"
)

// Item represents a unit of content a tenant owns. Chunks reference their
// parent item and are removed with it.
type Item struct {
	ID        string
	TenantID  string
	UserID    string // optional owning user
	Title     string
	Content   string
	Metadata  map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewItem creates a new Item instance
func NewItem(id, tenantID, userID, title, content string, metadata map[string]any, createdAt, updatedAt time.Time) *Item {
	return &Item{
		ID:        id,
		TenantID:  tenantID,
		UserID:    userID,
		Title:     title,
		Content:   content,
		Metadata:  metadata,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// ValidateItem validates an Item instance. TenantID is set once at creation
// and no update path accepts a new value.
func ValidateItem(i *Item) error {
	if i == nil {
		return fmt.Errorf("item cannot be nil")
	}

	if i.ID == "" {
		return fmt.Errorf("item ID is required")
	}

	if i.TenantID == "" {
		return fmt.Errorf("item TenantID is required")
	}

	if i.Title == "" {
		return fmt.Errorf("item Title is required")
	}

	return nil
}
