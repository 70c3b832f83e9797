package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/halcyondata/recall/internal/domain"
	"github.com/halcyondata/recall/internal/service"
	"github.com/mark3labs/mcp-go/mcp"
)

type SearchService interface {
	Search(ctx context.Context, input service.SearchInput) (*service.SearchOutput, error)
}

// SearchTool handles the recall_search MCP tool.
type SearchTool struct {
	svc    SearchService
	claims domain.Claims
}

// NewSearchTool creates a SearchTool bound to the server's claims.
func NewSearchTool(svc SearchService, claims domain.Claims) *SearchTool {
	return &SearchTool{svc: svc, claims: claims}
}

// Definition returns the MCP tool definition for recall_search.
func (t *SearchTool) Definition() mcp.Tool {
	return mcp.NewTool("recall_search",
		mcp.WithDescription(
			"Search stored items by semantic similarity. Provide a natural-language "+
				"query, or a raw embedding as a JSON array via vector_json.",
		),
		mcp.WithString("query",
			mcp.Description("Natural-language query, embedded server-side"),
		),
		mcp.WithString("vector_json",
			mcp.Description("Raw query embedding as a JSON array of numbers, e.g. [0.1, 0.2]"),
		),
		mcp.WithNumber("match_count",
			mcp.Description("Max results (default: 10)"),
		),
		mcp.WithString("content_types",
			mcp.Description("Comma-separated content types to include, e.g. documentation,runbook"),
		),
		mcp.WithNumber("match_threshold",
			mcp.Description("Minimum similarity in [0,1]; rows below it are dropped (default: 0)"),
		),
	)
}

// Handle processes one recall_search call.
func (t *SearchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = domain.WithClaims(ctx, t.claims)

	query := req.GetString("query", "")
	vectorJSON := req.GetString("vector_json", "")
	if query == "" && vectorJSON == "" {
		return mcp.NewToolResultError("'query' or 'vector_json' is required"), nil
	}

	var embedding []float32
	if vectorJSON != "" {
		if err := json.Unmarshal([]byte(vectorJSON), &embedding); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid vector_json: %v", err)), nil
		}
	}

	input := service.SearchInput{
		Embedding:      embedding,
		QueryText:      query,
		MatchThreshold: floatArg(req, "match_threshold", 0),
	}
	if count := intArg(req, "match_count", 0); count > 0 {
		input.MatchCount = &count
	}
	if types := req.GetString("content_types", ""); types != "" {
		for _, ct := range strings.Split(types, ",") {
			if ct = strings.TrimSpace(ct); ct != "" {
				input.ContentTypes = append(input.ContentTypes, ct)
			}
		}
	}

	output, err := t.svc.Search(ctx, input)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(output.Results) == 0 {
		return mcp.NewToolResultText("No items found matching your query."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d results:\n\n", len(output.Results))
	for i, res := range output.Results {
		snippet := res.ContentChunk
		if snippet == "" {
			snippet = res.Content
		}
		if len(snippet) > 300 {
			snippet = snippet[:300] + "..."
		}
		fmt.Fprintf(&b, "[%d] (%.3f) %s\n    %s\n    item: %s | type: %s | chunk: %d\n\n",
			i+1, res.Similarity, res.Title,
			snippet,
			res.ItemID, res.ContentType, res.ChunkIndex,
		)
	}

	return mcp.NewToolResultText(b.String()), nil
}
