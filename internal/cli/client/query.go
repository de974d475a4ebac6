package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

type queryResponsePayload struct {
	Answer           string          `json:"answer"`
	ReasoningSteps   []string        `json:"reasoning_steps,omitempty"`
	Sources          []sourcePayload `json:"sources"`
	ModelUsed        string          `json:"model_used"`
	Mode             string          `json:"inference_mode"`
	ProcessingTimeMS int64           `json:"processing_time_ms"`
}

type sourcePayload struct {
	Chunk          string   `json:"chunk"`
	SourceDocument string   `json:"source_document"`
	RelevanceScore float32  `json:"relevance_score"`
	Tags           []string `json:"tags"`
}

func AskCmd() *cobra.Command {
	var teammateID string
	var mode string
	var topK int

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a teammate a question",
		Long:  "Sends a query to a teammate and prints the grounded answer with its sources.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			body := map[string]interface{}{
				"query": strings.Join(args, " "),
			}
			if mode != "" {
				body["mode"] = mode
			}
			if topK > 0 {
				body["top_k"] = topK
			}

			resp, err := api.Post("/teammates/"+teammateID+"/query", body)
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				printData(resp.Data)
				return nil
			}

			var result queryResponsePayload
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if len(result.ReasoningSteps) > 0 {
				fmt.Println("Reasoning:")
				for i, step := range result.ReasoningSteps {
					fmt.Printf("  %d. %s\n", i+1, step)
				}
				fmt.Println()
			}

			fmt.Println(result.Answer)

			if len(result.Sources) > 0 {
				fmt.Println("\nSources:")
				for _, src := range result.Sources {
					fmt.Printf("  - %s (relevance: %.2f)\n", src.SourceDocument, src.RelevanceScore)
				}
			}

			fmt.Printf("\n[%s via %s, %dms]\n", result.Mode, result.ModelUsed, result.ProcessingTimeMS)
			return nil
		},
	}

	cmd.Flags().StringVarP(&teammateID, "teammate", "t", "", "Teammate ID (required)")
	cmd.Flags().StringVar(&mode, "mode", "", "Inference mode override (fast or reasoning)")
	cmd.Flags().IntVar(&topK, "top-k", 0, "Number of chunks to retrieve (1-50)")
	cmd.MarkFlagRequired("teammate")

	return cmd
}
