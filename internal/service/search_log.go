package service

import "context"

// SearchLogEntry is the evaluation summary recorded for one search request.
// TenantID is empty for unscoped service-key searches; the row then carries
// a NULL tenant.
type SearchLogEntry struct {
	TenantID       string
	QueryText      string
	MatchCount     int
	MatchThreshold float64
	ContentTypes   []string
	ResultCount    int
	TopSimilarity  *float64
	DurationMs     int64
}

// SearchLogRepository persists search logs and feedback.
type SearchLogRepository interface {
	Create(ctx context.Context, entry SearchLogEntry) (string, error)
	RecordFeedback(ctx context.Context, searchID, tenantScope string, helpful bool, note string) error
}
