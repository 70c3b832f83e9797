package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Item represents a stored item from the API.
type Item struct {
	ID        string                 `json:"id"`
	TenantID  string                 `json:"tenant_id"`
	UserID    string                 `json:"user_id,omitempty"`
	Title     string                 `json:"title"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt string                 `json:"created_at"`
	UpdatedAt string                 `json:"updated_at"`
}

// Chunk represents a stored chunk from the API.
type Chunk struct {
	ID           string `json:"id"`
	ItemID       string `json:"item_id"`
	ChunkIndex   int    `json:"chunk_index"`
	ContentType  string `json:"content_type"`
	ContentChunk string `json:"content_chunk,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// ChunkList represents the chunk list API response.
type ChunkList struct {
	Items []Chunk `json:"items"`
}

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	var withChunks bool

	cmd := &cobra.Command{
		Use:     "get <item_id>",
		Short:   "Get an item by ID",
		Long:    "Retrieves an item by its ID and displays the full content.",
		Aliases: []string{"view"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runGet(args[0], withChunks, outputJSON)
		},
	}

	cmd.Flags().BoolVar(&withChunks, "chunks", false, "Also list the item's chunks")

	return cmd
}

func runGet(itemID string, withChunks, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/v1/items/%s", itemID))
	if err != nil {
		return fmt.Errorf("failed to get item: %w", err)
	}

	var item Item
	if err := json.Unmarshal(resp.Data, &item); err != nil {
		return fmt.Errorf("failed to parse item: %w", err)
	}

	var chunks []Chunk
	if withChunks {
		chunkResp, err := api.Get(fmt.Sprintf("/v1/items/%s/chunks", itemID))
		if err != nil {
			return fmt.Errorf("failed to list chunks: %w", err)
		}
		var list ChunkList
		if err := json.Unmarshal(chunkResp.Data, &list); err != nil {
			return fmt.Errorf("failed to parse chunks: %w", err)
		}
		chunks = list.Items
	}

	if outputJSON {
		out := map[string]interface{}{"item": item}
		if withChunks {
			out["chunks"] = chunks
		}
		output, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Title: %s\n", item.Title)
	fmt.Printf("Tenant: %s\n", item.TenantID)
	if item.UserID != "" {
		fmt.Printf("User: %s\n", item.UserID)
	}
	fmt.Printf("Created: %s\n", item.CreatedAt)
	fmt.Printf("Updated: %s\n", item.UpdatedAt)
	fmt.Println()
	fmt.Println("--- Content ---")
	fmt.Println(item.Content)

	if withChunks {
		fmt.Printf("\n--- Chunks (%d) ---\n", len(chunks))
		for _, chunk := range chunks {
			fmt.Printf("[%d] %s (%s)\n", chunk.ChunkIndex, chunk.ID, chunk.ContentType)
		}
	}

	return nil
}
