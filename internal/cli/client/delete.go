package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// DeleteCmd creates the delete command.
func DeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <item_id>",
		Short: "Delete an item and its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runDelete(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runDelete(cmd *cobra.Command, itemID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Delete(fmt.Sprintf("/v1/items/%s", itemID))
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}

	if outputJSON {
		var deleted map[string]string
		if err := json.Unmarshal(resp.Data, &deleted); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		output, _ := json.MarshalIndent(map[string]interface{}{
			"id":     deleted["id"],
			"status": "deleted",
		}, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Deleted item: %s\n", itemID)
	return nil
}
