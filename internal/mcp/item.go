package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/halcyondata/recall/internal/domain"
	"github.com/halcyondata/recall/internal/service"
	"github.com/mark3labs/mcp-go/mcp"
)

type ItemService interface {
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	List(ctx context.Context, input service.ListItemsInput) (*service.ListItemsOutput, error)
}

type ChunkService interface {
	ListByItem(ctx context.Context, itemID string) ([]*domain.Chunk, error)
}

// GetItemTool handles the recall_get_item MCP tool.
type GetItemTool struct {
	items  ItemService
	chunks ChunkService
	claims domain.Claims
}

// NewGetItemTool creates a GetItemTool bound to the server's claims.
func NewGetItemTool(items ItemService, chunks ChunkService, claims domain.Claims) *GetItemTool {
	return &GetItemTool{items: items, chunks: chunks, claims: claims}
}

// Definition returns the MCP tool definition for recall_get_item.
func (t *GetItemTool) Definition() mcp.Tool {
	return mcp.NewTool("recall_get_item",
		mcp.WithDescription("Fetch one stored item by id, including its full content and chunk count."),
		mcp.WithString("item_id",
			mcp.Required(),
			mcp.Description("The item's id"),
		),
	)
}

// Handle processes one recall_get_item call.
func (t *GetItemTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = domain.WithClaims(ctx, t.claims)

	itemID := req.GetString("item_id", "")
	if itemID == "" {
		return mcp.NewToolResultError("'item_id' is required"), nil
	}

	item, err := t.items.GetByID(ctx, itemID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("get item failed: %v", err)), nil
	}

	chunkCount := 0
	if chunks, err := t.chunks.ListByItem(ctx, itemID); err == nil {
		chunkCount = len(chunks)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", item.Title)
	fmt.Fprintf(&b, "id: %s | tenant: %s | chunks: %d | created: %s\n\n",
		item.ID, item.TenantID, chunkCount, item.CreatedAt.Format("2006-01-02T15:04:05Z"))
	if item.Content != "" {
		b.WriteString(item.Content)
		b.WriteString("\n")
	}

	return mcp.NewToolResultText(b.String()), nil
}

// ListItemsTool handles the recall_list_items MCP tool.
type ListItemsTool struct {
	items  ItemService
	claims domain.Claims
}

// NewListItemsTool creates a ListItemsTool bound to the server's claims.
func NewListItemsTool(items ItemService, claims domain.Claims) *ListItemsTool {
	return &ListItemsTool{items: items, claims: claims}
}

// Definition returns the MCP tool definition for recall_list_items.
func (t *ListItemsTool) Definition() mcp.Tool {
	return mcp.NewTool("recall_list_items",
		mcp.WithDescription("List recently stored items, newest first."),
		mcp.WithNumber("limit",
			mcp.Description("Max items (default: 10)"),
		),
	)
}

// Handle processes one recall_list_items call.
func (t *ListItemsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ctx = domain.WithClaims(ctx, t.claims)

	limit := intArg(req, "limit", 10)

	output, err := t.items.List(ctx, service.ListItemsInput{Limit: limit})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("list items failed: %v", err)), nil
	}

	if len(output.Items) == 0 {
		return mcp.NewToolResultText("No items stored yet."), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d items:\n\n", len(output.Items))
	for i, item := range output.Items {
		fmt.Fprintf(&b, "[%d] %s\n    id: %s | created: %s\n\n",
			i+1, item.Title, item.ID, item.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	if output.HasMore {
		b.WriteString("More items exist; raise 'limit' to see them.\n")
	}

	return mcp.NewToolResultText(b.String()), nil
}
