package client

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"github.com/spf13/cobra"
)

type documentPayload struct {
	ID              string `json:"id"`
	KnowledgeBaseID string `json:"knowledge_base_id"`
	FileName        string `json:"file_name"`
	FileType        string `json:"file_type"`
	Status          string `json:"status"`
	ErrorMessage    string `json:"error_message,omitempty"`
	ChunkCount      int    `json:"chunk_count"`
	TagCount        int    `json:"tag_count"`
	CreatedAt       string `json:"created_at"`
}

type documentListPayload struct {
	Items   []documentPayload `json:"items"`
	Cursor  string            `json:"cursor,omitempty"`
	HasMore bool              `json:"has_more"`
}

func DocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Manage an assistant's documents",
		Long:  "Upload, list, and process documents in an assistant's knowledge base",
	}

	cmd.AddCommand(docsUploadCmd())
	cmd.AddCommand(docsListCmd())
	cmd.AddCommand(docsProcessCmd())
	cmd.AddCommand(docsStatusCmd())

	return cmd
}

func docsUploadCmd() *cobra.Command {
	var assistantID string
	var fileType string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document",
		Long:  "Uploads a file into the assistant's knowledge base. Text files are sent as plain content, binaries as base64.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}

			fileName := filepath.Base(path)
			if fileType == "" {
				fileType = mime.TypeByExtension(filepath.Ext(path))
				if fileType == "" {
					fileType = "application/octet-stream"
				}
			}

			body := map[string]interface{}{
				"file_name": fileName,
				"file_type": fileType,
			}
			if utf8.Valid(data) {
				body["content"] = string(data)
			} else {
				body["content_base64"] = base64.StdEncoding.EncodeToString(data)
			}

			resp, err := api.Post("/assistants/"+assistantID+"/documents", body)
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				printData(resp.Data)
				return nil
			}

			var doc documentPayload
			if err := json.Unmarshal(resp.Data, &doc); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			fmt.Printf("Uploaded %s (%s), status: %s\n", doc.FileName, doc.ID, doc.Status)
			fmt.Println("Run 'veldt docs process' to index it, or wait for the background worker.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&assistantID, "assistant", "a", "", "Assistant ID (required)")
	cmd.Flags().StringVar(&fileType, "type", "", "MIME type override (detected from extension by default)")
	cmd.MarkFlagRequired("assistant")

	return cmd
}

func docsListCmd() *cobra.Command {
	var assistantID string
	var limit int
	var cursor string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			params := url.Values{}
			if limit > 0 {
				params.Set("limit", strconv.Itoa(limit))
			}
			if cursor != "" {
				params.Set("cursor", cursor)
			}
			path := "/assistants/" + assistantID + "/documents"
			if len(params) > 0 {
				path += "?" + params.Encode()
			}

			resp, err := api.Get(path)
			if err != nil {
				return fmt.Errorf("failed to list documents: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				printData(resp.Data)
				return nil
			}

			var page documentListPayload
			if err := json.Unmarshal(resp.Data, &page); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			if len(page.Items) == 0 {
				fmt.Println("No documents found")
				return nil
			}
			for _, doc := range page.Items {
				line := fmt.Sprintf("  %s: %s [%s]", doc.ID, doc.FileName, doc.Status)
				if doc.Status == "done" {
					line += fmt.Sprintf(" (%d chunks, %d tags)", doc.ChunkCount, doc.TagCount)
				}
				if doc.ErrorMessage != "" {
					line += " error: " + doc.ErrorMessage
				}
				fmt.Println(line)
			}
			if page.HasMore && page.Cursor != "" {
				fmt.Printf("\nMore results available. Use --cursor %s\n", page.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&assistantID, "assistant", "a", "", "Assistant ID (required)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	cmd.MarkFlagRequired("assistant")

	return cmd
}

func docsProcessCmd() *cobra.Command {
	var assistantID string

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process pending documents",
		Long:  "Runs the ingestion pipeline for all pending documents of the assistant.",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post("/assistants/"+assistantID+"/documents/process", nil)
			if err != nil {
				return fmt.Errorf("processing failed: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				printData(resp.Data)
				return nil
			}

			var results []struct {
				DocumentID string `json:"document_id"`
				Error      string `json:"error,omitempty"`
			}
			if err := json.Unmarshal(resp.Data, &results); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			if len(results) == 0 {
				fmt.Println("No pending documents")
				return nil
			}
			for _, r := range results {
				if r.Error != "" {
					fmt.Printf("  %s: failed (%s)\n", r.DocumentID, r.Error)
				} else {
					fmt.Printf("  %s: done\n", r.DocumentID)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&assistantID, "assistant", "a", "", "Assistant ID (required)")
	cmd.MarkFlagRequired("assistant")

	return cmd
}

func docsStatusCmd() *cobra.Command {
	var assistantID string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show knowledge base status",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get("/assistants/" + assistantID + "/knowledge/status")
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}

			outputJSON, _ := cmd.Flags().GetBool("output")
			if outputJSON {
				printData(resp.Data)
				return nil
			}

			var status struct {
				KnowledgeBaseID string         `json:"knowledge_base_id"`
				DocumentCounts  map[string]int `json:"document_counts"`
				TotalDocuments  int            `json:"total_documents"`
			}
			if err := json.Unmarshal(resp.Data, &status); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}
			fmt.Printf("Knowledge base: %s\n", status.KnowledgeBaseID)
			fmt.Printf("Documents: %d total\n", status.TotalDocuments)
			for _, s := range []string{"pending", "processing", "done", "error"} {
				if n := status.DocumentCounts[s]; n > 0 {
					fmt.Printf("  %s: %d\n", s, n)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&assistantID, "assistant", "a", "", "Assistant ID (required)")
	cmd.MarkFlagRequired("assistant")

	return cmd
}
