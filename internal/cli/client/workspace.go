package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type workspacePayload struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at"`
}

func WorkspaceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage workspaces",
		Long:  "Create, list, and inspect workspaces",
	}

	cmd.AddCommand(workspaceCreateCmd())
	cmd.AddCommand(workspaceListCmd())
	cmd.AddCommand(workspaceGetCmd())

	return cmd
}

func workspaceCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post("/workspaces", map[string]string{"name": args[0]})
			if err != nil {
				return fmt.Errorf("failed to create workspace: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				printData(resp.Data)
				return nil
			}

			var ws workspacePayload
			if err := json.Unmarshal(resp.Data, &ws); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			fmt.Printf("Workspace created: %s (%s)\n", ws.Name, ws.ID)
			return nil
		},
	}
}

func workspaceListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/workspaces")
			if err != nil {
				return fmt.Errorf("failed to list workspaces: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				printData(resp.Data)
				return nil
			}

			var workspaces []workspacePayload
			if err := json.Unmarshal(resp.Data, &workspaces); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			if len(workspaces) == 0 {
				fmt.Println("No workspaces found")
				return nil
			}
			for _, ws := range workspaces {
				fmt.Printf("  %s: %s (created: %s)\n", ws.ID, ws.Name, ws.CreatedAt)
			}
			return nil
		},
	}
}

func workspaceGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/workspaces/" + args[0])
			if err != nil {
				return fmt.Errorf("failed to get workspace: %w", err)
			}

			printData(resp.Data)
			return nil
		},
	}
}
