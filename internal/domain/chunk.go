package domain

import (
	"fmt"
	"time"
)

// DefaultContentType tags chunks whose caller did not supply a type.
const DefaultContentType = "general"

// Chunk represents one fixed-dimension embedded slice of an Item's content.
// TenantID is always copied from the parent item at insert time, never
// supplied by the caller.
type Chunk struct {
	ID           string
	ItemID       string
	TenantID     string
	Embedding    []float32
	ChunkIndex   int
	ContentType  string
	ContentChunk string
	Metadata     map[string]any
	CreatedAt    time.Time
}

// CheckDimensions verifies an embedding's length against the configured
// dimensionality. It must run before the vector reaches the index; a
// mismatch is never truncated or padded.
func CheckDimensions(embedding []float32, want int) error {
	if len(embedding) != want {
		return NewDomainErrorWithCause(
			ErrCodeValidation,
			fmt.Sprintf("embedding has %d dimensions, expected %d", len(embedding), want),
			ErrDimensionMismatch,
		)
	}
	return nil
}
