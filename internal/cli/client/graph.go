package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// PathsRequest represents the graph paths API request.
type PathsRequest struct {
	TenantID string `json:"tenant_id,omitempty"`
	From     string `json:"from"`
	To       string `json:"to"`
	MaxDepth int    `json:"max_depth,omitempty"`
}

// GraphPath represents one caller chain in the paths API response.
type GraphPath struct {
	Symbols []string `json:"symbols"`
	Depth   int      `json:"depth"`
}

// PathsResponse represents the graph paths API response.
type PathsResponse struct {
	Paths []GraphPath `json:"paths"`
}

// GraphCmd creates the graph command group.
func GraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Query per-tenant call graphs",
	}

	cmd.AddCommand(graphPathsCmd())

	return cmd
}

func graphPathsCmd() *cobra.Command {
	var (
		from     string
		to       string
		maxDepth int
		tenantID string
	)

	cmd := &cobra.Command{
		Use:   "paths",
		Short: "Find call paths between two symbols",
		Long: `Find call paths between two symbols in the tenant's call graph.

Examples:
  recall graph paths --from main --to handleRequest
  recall graph paths --from main --to commit --max-depth 6`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGraphPaths(cmd, from, to, maxDepth, tenantID, outputJSON)
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Caller symbol to start from (required)")
	cmd.Flags().StringVar(&to, "to", "", "Callee symbol to reach (required)")
	cmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Maximum path depth (server default when 0)")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant ID (service-role keys only)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func runGraphPaths(cmd *cobra.Command, from, to string, maxDepth int, tenantID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/v1/graph/paths", PathsRequest{
		TenantID: tenantID,
		From:     from,
		To:       to,
		MaxDepth: maxDepth,
	})
	if err != nil {
		return fmt.Errorf("failed to query paths: %w", err)
	}

	var result PathsResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(result.Paths) == 0 {
		fmt.Printf("No paths found from %s to %s\n", from, to)
		return nil
	}

	fmt.Printf("Found %d path(s) from %s to %s:\n\n", len(result.Paths), from, to)
	for i, p := range result.Paths {
		fmt.Printf("%d. %s (depth %d)\n", i+1, strings.Join(p.Symbols, " -> "), p.Depth)
	}

	return nil
}
