// Package model wraps an OpenAI-compatible gateway (Ollama's /v1 surface or
// OpenAI itself) behind the small invocation surface the pipeline needs:
// text generation, multimodal generation for OCR, and embeddings.
package model

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrNoChoices is returned when the gateway responds without any completion
	ErrNoChoices = errors.New("no completion choices returned")
)

// API is the subset of the go-openai client the pipeline invokes.
// *openai.Client satisfies it directly.
type API interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Client invokes models by selector against a single gateway endpoint.
type Client struct {
	api API
}

// NewClient creates a Client against the given OpenAI-compatible base URL.
func NewClient(baseURL, apiKey string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{api: openai.NewClientWithConfig(cfg)}
}

// NewClientWithAPI creates a Client with an explicit API implementation (for testing).
func NewClientWithAPI(api API) *Client {
	return &Client{api: api}
}

// Generate runs a single-turn completion and returns the response text.
func (c *Client) Generate(ctx context.Context, model, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyText
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed for model %q: %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	return resp.Choices[0].Message.Content, nil
}

// GenerateWithImage runs a multimodal completion with one attached image,
// used for OCR extraction of binary documents.
func (c *Client) GenerateWithImage(ctx context.Context, model, prompt string, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyText
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("multimodal completion failed for model %q: %w", model, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}

	return resp.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector for text using the given model.
func (c *Client) Embed(ctx context.Context, model, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(model),
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed for model %q: %w", model, err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding data returned")
	}

	return resp.Data[0].Embedding, nil
}
