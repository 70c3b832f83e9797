package client

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	QueryText      string    `json:"query_text,omitempty"`
	QueryEmbedding []float32 `json:"query_embedding,omitempty"`
	MatchCount     int       `json:"match_count,omitempty"`
	TenantFilter   string    `json:"tenant_filter,omitempty"`
	ContentTypes   []string  `json:"content_types,omitempty"`
	MatchThreshold float64   `json:"match_threshold,omitempty"`
}

// SearchResult represents a single ranked chunk.
type SearchResult struct {
	ItemID       string  `json:"item_id"`
	ChunkID      string  `json:"chunk_id"`
	Title        string  `json:"title"`
	Content      string  `json:"content,omitempty"`
	ContentChunk string  `json:"content_chunk,omitempty"`
	ContentType  string  `json:"content_type"`
	ChunkIndex   int     `json:"chunk_index"`
	Similarity   float64 `json:"similarity"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	SearchID string         `json:"search_id,omitempty"`
	Results  []SearchResult `json:"results"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		contentTypes []string
		limit        int
		threshold    float64
		tenant       string
		vectorFile   string
	)

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search stored items",
		Long:  "Searches stored items by semantic similarity. Provide a text query, or --vector-file with a JSON array of floats to search with a raw embedding.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			query := ""
			if len(args) > 0 {
				query = args[0]
			}
			return runSearch(query, vectorFile, contentTypes, limit, threshold, tenant, outputJSON)
		},
	}

	cmd.Flags().StringSliceVarP(&contentTypes, "type", "t", nil, "Filter by content type (repeatable)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (server default: 10)")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Minimum similarity (0 disables the cutoff)")
	cmd.Flags().StringVar(&tenant, "tenant", "", "Restrict to a tenant (service keys only)")
	cmd.Flags().StringVar(&vectorFile, "vector-file", "", "JSON file containing a raw query embedding")

	return cmd
}

func runSearch(query, vectorFile string, contentTypes []string, limit int, threshold float64, tenant string, outputJSON bool) error {
	if query == "" && vectorFile == "" {
		return fmt.Errorf("a query or --vector-file is required")
	}

	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	req := SearchRequest{
		QueryText:      query,
		MatchCount:     limit,
		TenantFilter:   tenant,
		ContentTypes:   contentTypes,
		MatchThreshold: threshold,
	}

	if vectorFile != "" {
		data, err := os.ReadFile(vectorFile)
		if err != nil {
			return fmt.Errorf("failed to read vector file: %w", err)
		}
		if err := json.Unmarshal(data, &req.QueryEmbedding); err != nil {
			return fmt.Errorf("invalid vector file (expected a JSON array of numbers): %w", err)
		}
	}

	resp, err := api.Post("/v1/search", req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	// Local history is best-effort and never fails the search.
	historyQuery := query
	if historyQuery == "" {
		historyQuery = "(vector)"
	}
	_ = appendHistory(historyQuery, len(searchResp.Results))

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(searchResp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(searchResp.Results))
	for i, result := range searchResp.Results {
		fmt.Printf("%d. %s (%.3f)\n", i+1, result.Title, result.Similarity)
		snippet := result.ContentChunk
		if snippet == "" {
			snippet = result.Content
		}
		if snippet != "" {
			if len(snippet) > 100 {
				snippet = snippet[:97] + "..."
			}
			fmt.Printf("   %s\n", snippet)
		}
		fmt.Printf("   Type: %s, Chunk: %d\n", result.ContentType, result.ChunkIndex)
		fmt.Printf("   Item: %s\n", result.ItemID)
		if i < len(searchResp.Results)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	if searchResp.SearchID != "" {
		fmt.Printf("\nSearch ID: %s (use 'recall feedback %s' to rate these results)\n", searchResp.SearchID, searchResp.SearchID)
	}

	return nil
}
