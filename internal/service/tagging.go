package service

import (
	"context"
	"fmt"
	"log"
	"strings"
)

const (
	// tagPromptMaxChars bounds how much of a span is sent to the tagging model.
	tagPromptMaxChars = 2000

	tagPromptTemplate = "Generate %d short semantic tags (single words or short phrases) for the following text. " +
		"Return only a comma-separated list of tags, nothing else.\n\nText:\n%s\n\nTags:"
)

// TagGenerator produces short descriptive labels for chunks and queries.
// Tagging is advisory: every failure path yields an empty tag set so that
// retrieval degrades to unfiltered search instead of erroring.
type TagGenerator struct {
	invoker      ModelInvoker
	model        string
	tagsPerChunk int
}

// NewTagGenerator creates a TagGenerator bound to one tagging model.
func NewTagGenerator(invoker ModelInvoker, model string, tagsPerChunk int) *TagGenerator {
	if tagsPerChunk <= 0 {
		tagsPerChunk = 3
	}
	return &TagGenerator{
		invoker:      invoker,
		model:        model,
		tagsPerChunk: tagsPerChunk,
	}
}

// GenerateTags returns up to n distinct lowercase tags for text. Never fails.
func (g *TagGenerator) GenerateTags(ctx context.Context, text string, n int) []string {
	if n <= 0 {
		n = g.tagsPerChunk
	}

	snippet := text
	if runes := []rune(snippet); len(runes) > tagPromptMaxChars {
		snippet = string(runes[:tagPromptMaxChars])
	}
	if strings.TrimSpace(snippet) == "" {
		return nil
	}

	raw, err := g.invoker.Generate(ctx, g.model, fmt.Sprintf(tagPromptTemplate, n, snippet))
	if err != nil {
		log.Printf("tagging degraded to empty tag set: %v", err)
		return nil
	}

	tags := parseTags(raw)
	if len(tags) > n {
		tags = tags[:n]
	}
	return tags
}

// GenerateQueryTags returns tags for a query to drive the retrieval filter.
func (g *TagGenerator) GenerateQueryTags(ctx context.Context, query string) []string {
	return g.GenerateTags(ctx, query, g.tagsPerChunk)
}

// parseTags splits model output on commas and newlines into distinct
// lowercase tags, preserving first-seen order.
func parseTags(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n'
	})

	seen := make(map[string]struct{}, len(fields))
	tags := make([]string, 0, len(fields))
	for _, f := range fields {
		tag := strings.ToLower(strings.TrimSpace(f))
		tag = strings.Trim(tag, ".-* ")
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	return tags
}
