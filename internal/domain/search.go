package domain

// DefaultMatchCount is used when a search supplies no match_count.
const DefaultMatchCount = 10

// SearchQuery is an ephemeral similarity search request. It is never
// persisted; search_logs keeps a summary for evaluation.
type SearchQuery struct {
	Embedding      []float32
	QueryText      string   // optional; embedded server-side when no vector is given
	MatchCount     *int     // nil means DefaultMatchCount; non-positive values are coerced to 1
	TenantFilter   string   // optional tenant to filter to
	ContentTypes   []string // optional content-type allowlist
	MatchThreshold float64  // minimum similarity a row must reach
}

// SearchResult is one ranked row returned by similarity search: the chunk
// joined with its parent item. Similarity is 1 - cosine distance; chunk
// metadata wins over item metadata when both are present.
type SearchResult struct {
	ItemID       string
	ChunkID      string
	Title        string
	Content      string
	ContentChunk string
	Metadata     map[string]any
	ContentType  string
	ChunkIndex   int
	Similarity   float64
}
