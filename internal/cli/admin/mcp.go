package admin

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/halcyondata/recall/internal/config"
	"github.com/halcyondata/recall/internal/mcp"
	"github.com/halcyondata/recall/internal/openai"
	"github.com/halcyondata/recall/internal/repository"
	"github.com/halcyondata/recall/internal/service"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
)

// MCPCmd returns the mcp command
func MCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve MCP tools over stdio",
		Long:  "Expose search and retrieval as MCP tools over stdio, authenticated with RECALL_API_KEY",
		RunE:  runMCP,
	}

	return cmd
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	token := os.Getenv("RECALL_API_KEY")
	if token == "" {
		return fmt.Errorf("RECALL_API_KEY is required")
	}

	pool, err := getDBPool(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	tenantRepo := repository.NewTenantRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	itemRepo := repository.NewItemRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool)
	searchRepo := repository.NewSearchRepository(pool)
	searchLogRepo := repository.NewSearchLogRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(tenantRepo, apiKeyRepo, uuidGen)

	claims, err := authSvc.ValidateAPIKey(ctx, token)
	if err != nil {
		return fmt.Errorf("failed to validate RECALL_API_KEY: %w", err)
	}

	var embeddingClient service.EmbeddingClient
	if cfg.HasOpenAI() {
		embeddingClient = openai.NewClientWithConfig(openai.Config{
			APIKey:              cfg.OpenAIAPIKey,
			EmbeddingDimensions: cfg.EmbeddingDimensions,
		})
	}

	searchSvc := service.NewSearchService(searchRepo, searchLogRepo, embeddingClient, cfg.EmbeddingDimensions, cfg.SearchTimeout)
	itemSvc := service.NewItemService(itemRepo, txRunner)
	chunkSvc := service.NewChunkService(chunkRepo, itemRepo, txRunner, cfg.EmbeddingDimensions)

	s := mcp.NewServer(*claims, searchSvc, itemSvc, chunkSvc)

	// Startup notes go to stderr; stdout carries the MCP transport.
	scope := claims.TenantScope()
	if scope == "" {
		scope = "all tenants"
	}
	log.Printf("mcp: serving tools over stdio (scope: %s)", scope)

	if err := server.ServeStdio(s); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}

	return nil
}
