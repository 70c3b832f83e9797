package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// CreateItemRequest represents the create item API request.
type CreateItemRequest struct {
	TenantID  string                 `json:"tenant_id,omitempty"`
	UserID    string                 `json:"user_id,omitempty"`
	Title     string                 `json:"title"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	AutoEmbed bool                   `json:"auto_embed"`
}

// manifestEntry is one item in a YAML manifest. Content comes from either
// the inline content field or a file path resolved relative to the manifest.
type manifestEntry struct {
	Title       string                 `yaml:"title"`
	File        string                 `yaml:"file"`
	Content     string                 `yaml:"content"`
	ContentType string                 `yaml:"content_type"`
	Metadata    map[string]interface{} `yaml:"metadata"`
}

// BatchResult represents a single result in a manifest run.
type BatchResult struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Title  string `json:"title,omitempty"`
}

// BatchResponse represents the summary of a manifest run.
type BatchResponse struct {
	Results   []BatchResult `json:"results"`
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
}

// AddCmd creates the add command.
func AddCmd() *cobra.Command {
	var (
		title       string
		content     string
		file        string
		contentType string
		userID      string
		tenantID    string
		metadataStr string
		autoEmbed   bool
		manifest    string
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an item, or bulk-add from a YAML manifest",
		Long: `Add an item from flags, a file, or stdin, or bulk-add from a YAML manifest.

Examples:
  # Add with inline content
  recall add --title "Deploy checklist" --content "Run migrations first."

  # Add a file's contents as the item body
  recall add --title "Runbook" --file runbook.md --type runbook

  # Pipe content from stdin
  cat notes.md | recall add --title "Notes"

  # Bulk-add from a manifest (YAML list of {title, file|content, content_type, metadata})
  recall add --manifest items.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			if manifest != "" {
				return runManifestAdd(cmd, manifest, tenantID, userID, autoEmbed, outputJSON)
			}
			return runAdd(cmd, title, content, file, contentType, userID, tenantID, metadataStr, autoEmbed, outputJSON)
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Item title (required unless --manifest)")
	cmd.Flags().StringVar(&content, "content", "", "Item content")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read item content from a file")
	cmd.Flags().StringVarP(&contentType, "type", "t", "", "Content type label stored in item metadata")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User ID to associate with the item")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant ID (service-role keys only)")
	cmd.Flags().StringVar(&metadataStr, "metadata", "", "Item metadata as a JSON object")
	cmd.Flags().BoolVar(&autoEmbed, "auto-embed", true, "Queue the item for embedding after creation")
	cmd.Flags().StringVarP(&manifest, "manifest", "m", "", "Bulk-add items from a YAML manifest file")

	return cmd
}

func runAdd(cmd *cobra.Command, title, content, file, contentType, userID, tenantID, metadataStr string, autoEmbed, outputJSON bool) error {
	if title == "" {
		return fmt.Errorf("--title is required")
	}
	if content != "" && file != "" {
		return fmt.Errorf("--content and --file are mutually exclusive")
	}

	if content == "" {
		var input []byte
		var err error
		if file != "" {
			input, err = os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
		} else {
			input, err = io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
		}
		content = string(input)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("no content provided (use --content, --file, or stdin)")
	}

	var metadata map[string]interface{}
	if metadataStr != "" {
		if err := json.Unmarshal([]byte(metadataStr), &metadata); err != nil {
			return fmt.Errorf("invalid --metadata (expected a JSON object): %w", err)
		}
	}
	if contentType != "" {
		if metadata == nil {
			metadata = map[string]interface{}{}
		}
		metadata["content_type"] = contentType
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := CreateItemRequest{
		TenantID:  tenantID,
		UserID:    userID,
		Title:     title,
		Content:   content,
		Metadata:  metadata,
		AutoEmbed: autoEmbed,
	}

	item, err := createItem(api, req)
	if err != nil {
		return err
	}

	if outputJSON {
		output, _ := json.MarshalIndent(item, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Created item: %s\n", item.ID)
	fmt.Printf("Title: %s\n", item.Title)
	if autoEmbed {
		fmt.Println("Embedding queued.")
	}
	return nil
}

func createItem(api *APIClient, req CreateItemRequest) (*Item, error) {
	resp, err := api.Post("/v1/items", req)
	if err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	var item Item
	if err := json.Unmarshal(resp.Data, &item); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return &item, nil
}

func runManifestAdd(cmd *cobra.Command, manifestPath, tenantID, userID string, autoEmbed, outputJSON bool) error {
	raw, err := os.ReadFile(manifestPath)
	if err != nil {
		return fmt.Errorf("failed to read manifest: %w", err)
	}

	var entries []manifestEntry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("failed to parse manifest (expected a YAML list): %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("manifest is empty")
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	// File paths inside the manifest resolve relative to the manifest itself.
	baseDir := filepath.Dir(manifestPath)

	response := BatchResponse{
		Results: make([]BatchResult, 0, len(entries)),
		Total:   len(entries),
	}

	for i, entry := range entries {
		req, err := buildManifestRequest(entry, baseDir, tenantID, userID, autoEmbed)
		if err != nil {
			response.Results = append(response.Results, BatchResult{
				Status: "failed",
				Error:  fmt.Sprintf("entry %d: %v", i+1, err),
				Title:  entry.Title,
			})
			response.Failed++
			if !outputJSON {
				fmt.Fprintf(os.Stderr, "Entry %d (%s): %v\n", i+1, entry.Title, err)
			}
			continue
		}

		item, err := createItem(api, req)
		if err != nil {
			response.Results = append(response.Results, BatchResult{
				Status: "failed",
				Error:  err.Error(),
				Title:  entry.Title,
			})
			response.Failed++
			if !outputJSON {
				fmt.Fprintf(os.Stderr, "Entry %d (%s): %v\n", i+1, entry.Title, err)
			}
			continue
		}

		response.Results = append(response.Results, BatchResult{
			ID:     item.ID,
			Status: "created",
			Title:  item.Title,
		})
		response.Succeeded++
		if !outputJSON {
			fmt.Printf("Created: %s - %s\n", item.ID, item.Title)
		}
	}

	if outputJSON {
		output, _ := json.MarshalIndent(response, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Printf("\nManifest complete: %d succeeded, %d failed out of %d total\n",
			response.Succeeded, response.Failed, response.Total)
	}

	if response.Failed > 0 {
		return fmt.Errorf("manifest completed with %d failures", response.Failed)
	}
	return nil
}

func buildManifestRequest(entry manifestEntry, baseDir, tenantID, userID string, autoEmbed bool) (CreateItemRequest, error) {
	if entry.Title == "" {
		return CreateItemRequest{}, fmt.Errorf("title is required")
	}
	if entry.File != "" && entry.Content != "" {
		return CreateItemRequest{}, fmt.Errorf("file and content are mutually exclusive")
	}

	content := entry.Content
	if entry.File != "" {
		path := entry.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return CreateItemRequest{}, fmt.Errorf("failed to read %s: %w", entry.File, err)
		}
		content = string(raw)
	}
	if strings.TrimSpace(content) == "" {
		return CreateItemRequest{}, fmt.Errorf("file or content is required")
	}

	metadata := entry.Metadata
	if entry.ContentType != "" {
		if metadata == nil {
			metadata = map[string]interface{}{}
		}
		metadata["content_type"] = entry.ContentType
	}

	return CreateItemRequest{
		TenantID:  tenantID,
		UserID:    userID,
		Title:     entry.Title,
		Content:   content,
		Metadata:  metadata,
		AutoEmbed: autoEmbed,
	}, nil
}
