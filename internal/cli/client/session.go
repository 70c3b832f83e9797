package client

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// Session represents a session returned by the API.
type Session struct {
	ID        string                 `json:"id"`
	TenantID  string                 `json:"tenant_id"`
	UserID    string                 `json:"user_id,omitempty"`
	Agent     string                 `json:"agent"`
	Title     string                 `json:"title,omitempty"`
	Status    string                 `json:"status"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt string                 `json:"created_at"`
	UpdatedAt string                 `json:"updated_at"`
}

// Checkpoint represents a session checkpoint returned by the API.
type Checkpoint struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"session_id"`
	Seq       int                    `json:"seq"`
	State     map[string]interface{} `json:"state"`
	CreatedAt string                 `json:"created_at"`
}

// CheckpointList represents the checkpoint list API response.
type CheckpointList struct {
	Items []Checkpoint `json:"items"`
}

// CreateSessionRequest represents the create session API request.
type CreateSessionRequest struct {
	TenantID string                 `json:"tenant_id,omitempty"`
	UserID   string                 `json:"user_id,omitempty"`
	Agent    string                 `json:"agent"`
	Title    string                 `json:"title,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// SessionCmd creates the session command group.
func SessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage agent sessions and checkpoints",
	}

	cmd.AddCommand(sessionCreateCmd())
	cmd.AddCommand(sessionEndCmd())
	cmd.AddCommand(sessionCheckpointCmd())
	cmd.AddCommand(sessionShowCmd())

	return cmd
}

func sessionCreateCmd() *cobra.Command {
	var (
		agent       string
		title       string
		userID      string
		tenantID    string
		metadataStr string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start a new session",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSessionCreate(cmd, agent, title, userID, tenantID, metadataStr, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&agent, "agent", "a", "", "Agent name (required)")
	cmd.Flags().StringVar(&title, "title", "", "Session title")
	cmd.Flags().StringVarP(&userID, "user", "u", "", "User ID to associate with the session")
	cmd.Flags().StringVar(&tenantID, "tenant", "", "Tenant ID (service-role keys only)")
	cmd.Flags().StringVar(&metadataStr, "metadata", "", "Session metadata as a JSON object")
	_ = cmd.MarkFlagRequired("agent")

	return cmd
}

func runSessionCreate(cmd *cobra.Command, agent, title, userID, tenantID, metadataStr string, outputJSON bool) error {
	var metadata map[string]interface{}
	if metadataStr != "" {
		if err := json.Unmarshal([]byte(metadataStr), &metadata); err != nil {
			return fmt.Errorf("invalid --metadata (expected a JSON object): %w", err)
		}
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post("/v1/sessions", CreateSessionRequest{
		TenantID: tenantID,
		UserID:   userID,
		Agent:    agent,
		Title:    title,
		Metadata: metadata,
	})
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(resp.Data, &session); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(session, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Session created: %s\n", session.ID)
	fmt.Printf("Agent: %s\n", session.Agent)
	if session.Title != "" {
		fmt.Printf("Title: %s\n", session.Title)
	}
	return nil
}

func sessionEndCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "end <session_id>",
		Short: "End a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSessionEnd(cmd, args[0], outputJSON)
		},
	}

	return cmd
}

func runSessionEnd(cmd *cobra.Command, sessionID string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post(fmt.Sprintf("/v1/sessions/%s/end", sessionID), nil)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(resp.Data, &session); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(session, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Session ended: %s\n", session.ID)
	return nil
}

func sessionCheckpointCmd() *cobra.Command {
	var stateStr string

	cmd := &cobra.Command{
		Use:   "checkpoint <session_id>",
		Short: "Append a checkpoint to a session",
		Long: `Append a checkpoint to a session.

State comes from --state or stdin as a JSON object.

Examples:
  recall session checkpoint <session_id> --state '{"step": "plan", "done": 3}'
  cat state.json | recall session checkpoint <session_id>`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSessionCheckpoint(cmd, args[0], stateStr, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&stateStr, "state", "s", "", "Checkpoint state as a JSON object")

	return cmd
}

func runSessionCheckpoint(cmd *cobra.Command, sessionID, stateStr string, outputJSON bool) error {
	if stateStr == "" {
		input, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		stateStr = strings.TrimSpace(string(input))
	}
	if stateStr == "" {
		return fmt.Errorf("no state provided (use --state or stdin)")
	}

	var state map[string]interface{}
	if err := json.Unmarshal([]byte(stateStr), &state); err != nil {
		return fmt.Errorf("invalid state (expected a JSON object): %w", err)
	}

	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Post(fmt.Sprintf("/v1/sessions/%s/checkpoints", sessionID), map[string]interface{}{
		"state": state,
	})
	if err != nil {
		return fmt.Errorf("failed to append checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(resp.Data, &cp); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(cp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Checkpoint %d recorded for session %s\n", cp.Seq, cp.SessionID)
	return nil
}

func sessionShowCmd() *cobra.Command {
	var withCheckpoints bool

	cmd := &cobra.Command{
		Use:   "show <session_id>",
		Short: "Show a session and its checkpoints",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			return runSessionShow(cmd, args[0], withCheckpoints, outputJSON)
		},
	}

	cmd.Flags().BoolVar(&withCheckpoints, "checkpoints", true, "Include the session's checkpoints")

	return cmd
}

func runSessionShow(cmd *cobra.Command, sessionID string, withCheckpoints, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get(fmt.Sprintf("/v1/sessions/%s", sessionID))
	if err != nil {
		return fmt.Errorf("failed to get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(resp.Data, &session); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}

	var checkpoints []Checkpoint
	if withCheckpoints {
		cpResp, err := api.Get(fmt.Sprintf("/v1/sessions/%s/checkpoints", sessionID))
		if err != nil {
			return fmt.Errorf("failed to get checkpoints: %w", err)
		}
		var list CheckpointList
		if err := json.Unmarshal(cpResp.Data, &list); err != nil {
			return fmt.Errorf("failed to parse checkpoints: %w", err)
		}
		checkpoints = list.Items
	}

	if outputJSON {
		out := map[string]interface{}{"session": session}
		if withCheckpoints {
			out["checkpoints"] = checkpoints
		}
		output, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Session: %s\n", session.ID)
	fmt.Printf("Agent: %s\n", session.Agent)
	if session.Title != "" {
		fmt.Printf("Title: %s\n", session.Title)
	}
	fmt.Printf("Status: %s\n", session.Status)
	fmt.Printf("Tenant: %s\n", session.TenantID)
	if session.UserID != "" {
		fmt.Printf("User: %s\n", session.UserID)
	}
	fmt.Printf("Created: %s\n", session.CreatedAt)
	fmt.Printf("Updated: %s\n", session.UpdatedAt)

	if withCheckpoints {
		fmt.Printf("\n--- Checkpoints (%d) ---\n", len(checkpoints))
		for _, cp := range checkpoints {
			state, _ := json.Marshal(cp.State)
			fmt.Printf("[%d] %s %s\n", cp.Seq, cp.CreatedAt, string(state))
		}
	}

	return nil
}
