package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type teammatePayload struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Name        string `json:"name"`
	AssistantID string `json:"assistant_id,omitempty"`
	DefaultMode string `json:"default_mode"`
	TopK        int    `json:"top_k"`
	CreatedAt   string `json:"created_at"`
}

func TeammateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "teammate",
		Short: "Manage teammates",
		Long:  "Create and inspect teammates and their routing policy",
	}

	cmd.AddCommand(teammateCreateCmd())
	cmd.AddCommand(teammateListCmd())
	cmd.AddCommand(teammateGetCmd())
	cmd.AddCommand(teammateRoutingCmd())

	return cmd
}

func teammateCreateCmd() *cobra.Command {
	var workspaceID string
	var mode string
	var topK int

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new teammate",
		Long:  "Create a teammate with its assistant in the given workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			body := map[string]interface{}{
				"workspace_id": workspaceID,
				"name":         args[0],
			}
			if mode != "" || topK > 0 {
				routing := map[string]interface{}{}
				if mode != "" {
					routing["default_mode"] = mode
				}
				if topK > 0 {
					routing["top_k"] = topK
				}
				body["routing"] = routing
			}

			resp, err := api.Post("/teammates", body)
			if err != nil {
				return fmt.Errorf("failed to create teammate: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				printData(resp.Data)
				return nil
			}

			var tm teammatePayload
			if err := json.Unmarshal(resp.Data, &tm); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			fmt.Printf("Teammate created: %s (%s)\n", tm.Name, tm.ID)
			fmt.Printf("Assistant: %s\n", tm.AssistantID)
			fmt.Printf("Routing: mode=%s top_k=%d\n", tm.DefaultMode, tm.TopK)
			return nil
		},
	}

	cmd.Flags().StringVarP(&workspaceID, "workspace", "w", "", "Workspace ID (required)")
	cmd.Flags().StringVar(&mode, "mode", "", "Default inference mode (fast or reasoning)")
	cmd.Flags().IntVar(&topK, "top-k", 0, "Default number of chunks retrieved per query (1-50)")
	cmd.MarkFlagRequired("workspace")

	return cmd
}

func teammateListCmd() *cobra.Command {
	var workspaceID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List teammates in a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/teammates?workspace_id=" + workspaceID)
			if err != nil {
				return fmt.Errorf("failed to list teammates: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				printData(resp.Data)
				return nil
			}

			var teammates []teammatePayload
			if err := json.Unmarshal(resp.Data, &teammates); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			if len(teammates) == 0 {
				fmt.Println("No teammates found")
				return nil
			}
			for _, tm := range teammates {
				fmt.Printf("  %s: %s (mode=%s, top_k=%d)\n", tm.ID, tm.Name, tm.DefaultMode, tm.TopK)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&workspaceID, "workspace", "w", "", "Workspace ID (required)")
	cmd.MarkFlagRequired("workspace")

	return cmd
}

func teammateGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one teammate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/teammates/" + args[0])
			if err != nil {
				return fmt.Errorf("failed to get teammate: %w", err)
			}

			printData(resp.Data)
			return nil
		},
	}
}

func teammateRoutingCmd() *cobra.Command {
	var mode string
	var topK int

	cmd := &cobra.Command{
		Use:   "routing <id>",
		Short: "Update a teammate's routing policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			body := map[string]interface{}{
				"default_mode": mode,
				"top_k":        topK,
			}
			resp, err := api.Put("/teammates/"+args[0]+"/routing", body)
			if err != nil {
				return fmt.Errorf("failed to update routing policy: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				printData(resp.Data)
				return nil
			}

			var tm teammatePayload
			if err := json.Unmarshal(resp.Data, &tm); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			fmt.Printf("Routing updated: mode=%s top_k=%d\n", tm.DefaultMode, tm.TopK)
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "fast", "Default inference mode (fast or reasoning)")
	cmd.Flags().IntVar(&topK, "top-k", 5, "Default number of chunks retrieved per query (1-50)")

	return cmd
}
