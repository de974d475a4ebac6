package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func AssistantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "assistant",
		Short: "Manage assistants",
		Long:  "Inspect assistants and set their system instruction",
	}

	cmd.AddCommand(assistantGetCmd())
	cmd.AddCommand(assistantInstructCmd())

	return cmd
}

func assistantGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one assistant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/assistants/" + args[0])
			if err != nil {
				return fmt.Errorf("failed to get assistant: %w", err)
			}

			printData(resp.Data)
			return nil
		},
	}
}

func assistantInstructCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "instruct <id> <instruction>",
		Short: "Set an assistant's system instruction",
		Long:  "Sets the system prompt that prefixes every generation for this assistant.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Put("/assistants/"+args[0]+"/instruction", map[string]string{
				"system_prompt": args[1],
			})
			if err != nil {
				return fmt.Errorf("failed to set instruction: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				printData(resp.Data)
				return nil
			}

			var assistant struct {
				ID           string `json:"id"`
				SystemPrompt string `json:"system_prompt"`
			}
			if err := json.Unmarshal(resp.Data, &assistant); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			fmt.Printf("Instruction updated for assistant %s\n", assistant.ID)
			return nil
		},
	}
}
