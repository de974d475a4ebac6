package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/veldt-ai/veldt/internal/cli"
	"github.com/veldt-ai/veldt/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "veldt",
		Short: "Veldt CLI - AI teammates grounded in your documents",
		Long: `Veldt CLI provides commands to manage workspaces, teammates, and their knowledge bases.

Environment variables:
  VELDT_API_KEY   API key for authentication (required)
  VELDT_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.WorkspaceCmd())
	rootCmd.AddCommand(client.TeammateCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.DocsCmd())
	rootCmd.AddCommand(client.AssistantCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
