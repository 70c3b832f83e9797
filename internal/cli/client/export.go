package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ExportRequest represents the export API request.
type ExportRequest struct {
	TenantID string `json:"tenant_id,omitempty"`
}

// ExportResult represents the export API response.
type ExportResult struct {
	Key        string `json:"key"`
	URL        string `json:"url"`
	ItemCount  int    `json:"item_count"`
	ChunkCount int    `json:"chunk_count"`
}

// ExportCmd creates the export command.
func ExportCmd() *cobra.Command {
	var (
		tenantID string
		download string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a tenant's items and chunks to an archive",
		Long: `Export a tenant's items and chunks to a JSON archive in object storage.

The server uploads the archive and returns a presigned download URL.

Examples:
  # Export the tenant your API key is scoped to
  recall export

  # Export a specific tenant (service-role keys only)
  recall export --tenant 9f8c1d2e-...

  # Export and download the archive in one step
  recall export --download backup.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runExport(cmd, tenantID, download, outputJSON)
		},
	}

	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant ID to export (service-role keys only)")
	cmd.Flags().StringVarP(&download, "download", "d", "", "Download the archive to a local file")

	return cmd
}

func runExport(cmd *cobra.Command, tenantID, download string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/v1/export", ExportRequest{TenantID: tenantID})
	if err != nil {
		return fmt.Errorf("failed to export: %w", err)
	}

	var result ExportResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if download != "" {
		if err := api.DownloadFile(result.URL, download); err != nil {
			return fmt.Errorf("failed to download archive: %w", err)
		}
	}

	if outputJSON {
		out := map[string]interface{}{
			"key":         result.Key,
			"url":         result.URL,
			"item_count":  result.ItemCount,
			"chunk_count": result.ChunkCount,
		}
		if download != "" {
			out["downloaded_to"] = download
		}
		output, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Export ready: %s\n", result.Key)
	fmt.Printf("Items: %d, Chunks: %d\n", result.ItemCount, result.ChunkCount)
	if download != "" {
		fmt.Printf("Saved to %s\n", download)
	} else {
		fmt.Printf("Download URL (expires): %s\n", result.URL)
	}
	return nil
}
