package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/veldt-ai/veldt/internal/cli"
	"github.com/veldt-ai/veldt/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "veldtd",
		Short: "Veldt daemon and CLI",
		Long:  "Veldt daemon for running the API server and managing tenants and API keys",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.TenantCmd())
	rootCmd.AddCommand(admin.APIKeyCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
