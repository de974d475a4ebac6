package service

import (
	"context"

	"github.com/veldt-ai/veldt/internal/domain"
	"github.com/veldt-ai/veldt/internal/telemetry"
)

// RetrievalService executes tag-filtered similarity search with a single
// unfiltered fallback when the filter is too restrictive.
type RetrievalService struct {
	embedder ChunkEmbedder
	tagger   Tagger
	index    ChunkIndex
	topK     int
}

// NewRetrievalService creates a new RetrievalService instance
func NewRetrievalService(embedder ChunkEmbedder, tagger Tagger, index ChunkIndex, topK int) *RetrievalService {
	if topK <= 0 {
		topK = 5
	}
	return &RetrievalService{
		embedder: embedder,
		tagger:   tagger,
		index:    index,
		topK:     topK,
	}
}

// Retrieve returns up to topK chunks from the knowledge base ranked by
// descending relevance. Query embedding failure is fatal; tag generation is
// best-effort. A tag-filtered search that comes back empty is retried exactly
// once without the filter, so callers never see an empty result solely
// because the filter was too aggressive.
func (s *RetrievalService) Retrieve(ctx context.Context, knowledgeBaseID, query string, topK int) ([]domain.ScoredChunk, error) {
	ctx, span := telemetry.StartSpan(ctx, "RetrievalService.Retrieve", telemetry.SpanAttributes{
		KnowledgeBaseID: knowledgeBaseID,
		Operation:       "retrieve",
	})
	defer span.End()

	if topK <= 0 {
		topK = s.topK
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	queryTags := s.tagger.GenerateQueryTags(ctx, query)

	// Empty tags make the filter a no-op, so go straight to unfiltered search.
	if len(queryTags) > 0 {
		results, err := s.index.Search(ctx, knowledgeBaseID, vector, topK, queryTags)
		if err != nil {
			span.SetError(err)
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeRetrievalFailed, "similarity search failed", err)
		}
		if len(results) > 0 {
			return results, nil
		}
	}

	results, err := s.index.Search(ctx, knowledgeBaseID, vector, topK, nil)
	if err != nil {
		span.SetError(err)
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeRetrievalFailed, "similarity search failed", err)
	}

	return results, nil
}
