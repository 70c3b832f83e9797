package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// FeedbackRequest represents the search feedback API request.
type FeedbackRequest struct {
	Helpful bool   `json:"helpful"`
	Note    string `json:"note,omitempty"`
}

// FeedbackCmd creates the feedback command.
func FeedbackCmd() *cobra.Command {
	var (
		notHelpful bool
		note       string
	)

	cmd := &cobra.Command{
		Use:   "feedback <search_id>",
		Short: "Rate the results of a previous search",
		Long:  "Records whether a previous search returned helpful results. Searches print their search ID.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runFeedback(args[0], !notHelpful, note, outputJSON)
		},
	}

	cmd.Flags().BoolVar(&notHelpful, "not-helpful", false, "Mark the results as not helpful (default: helpful)")
	cmd.Flags().StringVar(&note, "note", "", "Optional note explaining the rating")

	return cmd
}

func runFeedback(searchID string, helpful bool, note string, outputJSON bool) error {
	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	req := FeedbackRequest{Helpful: helpful, Note: note}
	if _, err := api.Post(fmt.Sprintf("/v1/search/%s/feedback", searchID), req); err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(map[string]interface{}{
			"search_id": searchID,
			"helpful":   helpful,
		}, "", "  ")
		fmt.Println(string(output))
	} else {
		verdict := "helpful"
		if !helpful {
			verdict = "not helpful"
		}
		fmt.Printf("Recorded feedback for search %s: %s\n", searchID, verdict)
	}

	return nil
}
