package mcp

import (
	"github.com/halcyondata/recall/internal/domain"
	"github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via ldflags.
var Version = "dev"

// NewServer wires the recall tools into an MCP server instance. The caller
// validates the API key and passes the resulting claims; every tool call
// runs under them.
func NewServer(claims domain.Claims, searchSvc SearchService, itemSvc ItemService, chunkSvc ChunkService) *server.MCPServer {
	s := server.NewMCPServer(
		"recall",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(
			"recall stores items with vector embeddings for semantic retrieval. "+
				"Use recall_search to find relevant items, recall_get_item to read one "+
				"in full, and recall_list_items to browse recent entries.",
		),
	)

	searchTool := NewSearchTool(searchSvc, claims)
	s.AddTool(searchTool.Definition(), searchTool.Handle)

	getItemTool := NewGetItemTool(itemSvc, chunkSvc, claims)
	s.AddTool(getItemTool.Definition(), getItemTool.Handle)

	listItemsTool := NewListItemsTool(itemSvc, claims)
	s.AddTool(listItemsTool.Definition(), listItemsTool.Handle)

	return s
}
