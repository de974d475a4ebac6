package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/veldt-ai/veldt/internal/domain"
	"github.com/veldt-ai/veldt/internal/telemetry"
)

const (
	fastPromptTemplate = "Answer concisely based on the following context.\n\n" +
		"Context:\n%s\n\nQuestion: %s\n\nAnswer:"

	reasoningPromptTemplate = "Think step-by-step. Using only the context below, answer the question.\n\n" +
		"Context:\n%s\n\nQuestion: %s\n\nAnswer:"

	noContextPlaceholder = "(no relevant documents found in the knowledge base)"
)

// Retriever is the retrieval capability consumed by the inference router.
type Retriever interface {
	Retrieve(ctx context.Context, knowledgeBaseID, query string, topK int) ([]domain.ScoredChunk, error)
}

// InferenceRouter selects and invokes one of two generation strategies over
// retrieved context. Fast mode returns a direct answer; reasoning mode
// expects the model to emit an explicit thinking block that is parsed into
// ordered steps.
type InferenceRouter struct {
	retriever      Retriever
	invoker        ModelInvoker
	fastModel      string
	reasoningModel string
	topK           int
}

// NewInferenceRouter creates a new InferenceRouter instance
func NewInferenceRouter(retriever Retriever, invoker ModelInvoker, fastModel, reasoningModel string, topK int) *InferenceRouter {
	if topK <= 0 {
		topK = 5
	}
	return &InferenceRouter{
		retriever:      retriever,
		invoker:        invoker,
		fastModel:      fastModel,
		reasoningModel: reasoningModel,
		topK:           topK,
	}
}

// AnswerInput carries one query through the router.
type AnswerInput struct {
	KnowledgeBaseID string
	SystemPrompt    string
	Query           string
	Mode            domain.InferenceMode
	TopK            int
}

// Answer retrieves context for the query and generates a grounded answer with
// attributed sources. Generation runs even when retrieval returns zero chunks;
// the model is expected to state that context is insufficient. Generation
// failures surface as INFERENCE_FAILED and are never retried here.
func (r *InferenceRouter) Answer(ctx context.Context, input AnswerInput) (*domain.InferenceResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "InferenceRouter.Answer", telemetry.SpanAttributes{
		KnowledgeBaseID: input.KnowledgeBaseID,
		Operation:       string(input.Mode),
	})
	defer span.End()

	start := time.Now()

	if strings.TrimSpace(input.Query) == "" {
		return nil, domain.ErrEmptyQuery
	}
	mode, err := domain.ParseInferenceMode(string(input.Mode))
	if err != nil {
		return nil, err
	}

	topK := input.TopK
	if topK <= 0 {
		topK = r.topK
	}

	chunks, err := r.retriever.Retrieve(ctx, input.KnowledgeBaseID, input.Query, topK)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	modelName := r.fastModel
	template := fastPromptTemplate
	if mode == domain.InferenceModeReasoning {
		modelName = r.reasoningModel
		template = reasoningPromptTemplate
	}

	raw, err := r.invoker.Generate(ctx, modelName, buildPrompt(template, input.SystemPrompt, input.Query, chunks))
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInferenceFailed, "answer generation failed", err)
	}

	answer := strings.TrimSpace(raw)
	var steps []string
	if mode == domain.InferenceModeReasoning {
		steps, answer = extractReasoningSteps(raw)
	}

	return &domain.InferenceResult{
		Answer:         answer,
		ReasoningSteps: steps,
		Sources:        attributeSources(chunks),
		ModelUsed:      modelName,
		Mode:           mode,
		ProcessingTime: time.Since(start),
	}, nil
}

func buildPrompt(template, systemPrompt, query string, chunks []domain.ScoredChunk) string {
	contextText := noContextPlaceholder
	if len(chunks) > 0 {
		parts := make([]string, len(chunks))
		for i, c := range chunks {
			parts[i] = c.Content
		}
		contextText = strings.Join(parts, "\n\n")
	}

	prompt := fmt.Sprintf(template, contextText, query)
	if systemPrompt = strings.TrimSpace(systemPrompt); systemPrompt != "" {
		prompt = systemPrompt + "\n\n" + prompt
	}
	return prompt
}

// extractReasoningSteps splits a reasoning model's output into the ordered
// steps inside its <think> block and the final answer after it. Output
// without a think block yields no steps.
func extractReasoningSteps(raw string) ([]string, string) {
	openIdx := strings.Index(raw, "<think>")
	closeIdx := strings.Index(raw, "</think>")
	if openIdx < 0 || closeIdx < openIdx {
		return nil, strings.TrimSpace(raw)
	}

	var steps []string
	for _, line := range strings.Split(raw[openIdx+len("<think>"):closeIdx], "\n") {
		if line = strings.TrimSpace(line); line != "" {
			steps = append(steps, line)
		}
	}

	answer := strings.TrimSpace(raw[closeIdx+len("</think>"):])
	return steps, answer
}

func attributeSources(chunks []domain.ScoredChunk) []domain.Source {
	sources := make([]domain.Source, len(chunks))
	for i, c := range chunks {
		tags := c.Tags
		if tags == nil {
			tags = []string{}
		}
		sources[i] = domain.Source{
			Chunk:          c.Content,
			SourceDocument: c.SourceDocument,
			RelevanceScore: c.Score,
			Tags:           tags,
		}
	}
	return sources
}
