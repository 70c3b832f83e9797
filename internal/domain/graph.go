package domain

import (
	"fmt"
	"time"
)

// Path query depth bounds. Depth counts edges, not nodes.
const (
	DefaultPathDepth = 5
	MaxPathDepth     = 10
)

// GraphEdge is one caller->callee relation extracted from a tenant's
// codebase. Self-edges are allowed (recursive functions).
type GraphEdge struct {
	ID        string
	TenantID  string
	ItemID    string // optional owning item
	Caller    string
	Callee    string
	File      string
	Line      int
	CreatedAt time.Time
}

// GraphPath is one ordered caller chain returned by a path query.
type GraphPath struct {
	Symbols []string
	Depth   int
}

// ValidateGraphEdge validates a GraphEdge instance
func ValidateGraphEdge(e *GraphEdge) error {
	if e == nil {
		return fmt.Errorf("graph edge cannot be nil")
	}

	if e.ID == "" {
		return fmt.Errorf("graph edge ID is required")
	}

	if e.TenantID == "" {
		return fmt.Errorf("graph edge TenantID is required")
	}

	if e.Caller == "" {
		return fmt.Errorf("graph edge Caller is required")
	}

	if e.Callee == "" {
		return fmt.Errorf("graph edge Callee is required")
	}

	return nil
}

// ClampPathDepth normalizes a requested traversal depth into [1, MaxPathDepth],
// applying the default when the caller supplies nothing.
func ClampPathDepth(depth int) int {
	if depth <= 0 {
		return DefaultPathDepth
	}
	if depth > MaxPathDepth {
		return MaxPathDepth
	}
	return depth
}
