package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/veldt-ai/veldt/internal/domain"
	"github.com/veldt-ai/veldt/internal/telemetry"
)

// Extractor turns raw document bytes into plain text.
type Extractor interface {
	ExtractText(ctx context.Context, content []byte, mimeType string) (string, error)
}

// Tagger generates advisory tags for chunks and queries.
type Tagger interface {
	GenerateTags(ctx context.Context, text string, n int) []string
	GenerateQueryTags(ctx context.Context, query string) []string
}

// ChunkEmbedder produces fixed-dimension vectors for text spans.
type ChunkEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChunkIndex is the vector index capability, scoped per knowledge base.
type ChunkIndex interface {
	// ReplaceDocumentChunks atomically swaps the stored chunk set for one
	// document. Passing no records clears the document from the index.
	ReplaceDocumentChunks(ctx context.Context, knowledgeBaseID, documentID string, records []domain.ChunkRecord) error
	// Search returns up to topK records ordered by descending similarity,
	// optionally restricted to records whose tag set intersects tagFilter.
	Search(ctx context.Context, knowledgeBaseID string, vector []float32, topK int, tagFilter []string) ([]domain.ScoredChunk, error)
}

// IngestDocumentRepository drives the document processing state machine.
type IngestDocumentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	SetProcessing(ctx context.Context, id string) error
	MarkDone(ctx context.Context, id string, chunkCount, tagCount int) error
	MarkError(ctx context.Context, id string, message string) error
}

// BlobDownloader fetches original document bytes from object storage.
type BlobDownloader interface {
	Download(ctx context.Context, key string) ([]byte, error)
}

// IngestStats summarizes one document ingestion for observability.
type IngestStats struct {
	ChunksCreated  int
	TagsGenerated  int
	ProcessingTime time.Duration
}

// IngestionService runs the full pipeline for one document: extraction,
// chunking, tagging, embedding, index upsert. Chunk work is sequential within
// a document so the index swap stays all-or-nothing.
type IngestionService struct {
	docs         IngestDocumentRepository
	blobs        BlobDownloader // nil when object storage is not configured
	extractor    Extractor
	tagger       Tagger
	embedder     ChunkEmbedder
	index        ChunkIndex
	chunkCfg     ChunkConfig
	tagsPerChunk int
}

// NewIngestionService creates a new IngestionService instance
func NewIngestionService(
	docs IngestDocumentRepository,
	blobs BlobDownloader,
	extractor Extractor,
	tagger Tagger,
	embedder ChunkEmbedder,
	index ChunkIndex,
	chunkCfg ChunkConfig,
	tagsPerChunk int,
) *IngestionService {
	if chunkCfg.Size <= 0 {
		chunkCfg = DefaultChunkConfig()
	}
	if tagsPerChunk <= 0 {
		tagsPerChunk = 3
	}
	return &IngestionService{
		docs:         docs,
		blobs:        blobs,
		extractor:    extractor,
		tagger:       tagger,
		embedder:     embedder,
		index:        index,
		chunkCfg:     chunkCfg,
		tagsPerChunk: tagsPerChunk,
	}
}

// ProcessDocument runs the pipeline for one document. The document always
// resolves to done or error, never stays processing. Re-running on a done
// document replaces its chunk set, so the call is idempotent.
func (s *IngestionService) ProcessDocument(ctx context.Context, documentID string) (*IngestStats, error) {
	ctx, span := telemetry.StartSpan(ctx, "IngestionService.ProcessDocument", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "ingest",
	})
	defer span.End()

	start := time.Now()

	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	if err := s.docs.SetProcessing(ctx, doc.ID); err != nil {
		return nil, err
	}

	stats, err := s.run(ctx, doc)
	if err != nil {
		span.SetError(err)
		if markErr := s.docs.MarkError(ctx, doc.ID, err.Error()); markErr != nil {
			log.Printf("failed to mark document %s as errored: %v", doc.ID, markErr)
		}
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeIngestionFailed, "document ingestion failed", err)
	}

	if err := s.docs.MarkDone(ctx, doc.ID, stats.ChunksCreated, stats.TagsGenerated); err != nil {
		span.SetError(err)
		// The index swap already landed; the document must still leave the
		// processing state so the batch endpoint can retry it.
		if markErr := s.docs.MarkError(ctx, doc.ID, fmt.Sprintf("failed to record ingestion result: %v", err)); markErr != nil {
			log.Printf("failed to mark document %s as errored: %v", doc.ID, markErr)
		}
		return nil, err
	}

	stats.ProcessingTime = time.Since(start)
	return stats, nil
}

func (s *IngestionService) run(ctx context.Context, doc *domain.Document) (*IngestStats, error) {
	content, err := s.loadContent(ctx, doc)
	if err != nil {
		return nil, err
	}

	text, err := s.extractor.ExtractText(ctx, content, doc.FileType)
	if err != nil {
		return nil, err
	}

	chunks := ChunkText(doc.ID, text, s.chunkCfg)

	// Stage the complete record set before touching the index so a mid-flight
	// embedding failure leaves the previous chunk set intact.
	records := make([]domain.ChunkRecord, 0, len(chunks))
	totalTags := 0
	for _, chunk := range chunks {
		tags := s.tagger.GenerateTags(ctx, chunk.Text, s.tagsPerChunk)
		totalTags += len(tags)

		vector, err := s.embedder.Embed(ctx, chunk.Text)
		if err != nil {
			return nil, err
		}

		records = append(records, domain.ChunkRecord{
			KnowledgeBaseID: doc.KnowledgeBaseID,
			DocumentID:      doc.ID,
			SourceDocument:  doc.FileName,
			ChunkIndex:      chunk.Index,
			Content:         chunk.Text,
			Tags:            tags,
			Embedding:       vector,
		})
	}

	if err := s.index.ReplaceDocumentChunks(ctx, doc.KnowledgeBaseID, doc.ID, records); err != nil {
		return nil, err
	}

	return &IngestStats{
		ChunksCreated: len(records),
		TagsGenerated: totalTags,
	}, nil
}

func (s *IngestionService) loadContent(ctx context.Context, doc *domain.Document) ([]byte, error) {
	if doc.StorageKey != "" {
		if s.blobs == nil {
			return nil, fmt.Errorf("document %s references storage key %q but object storage is not configured", doc.ID, doc.StorageKey)
		}
		return s.blobs.Download(ctx, doc.StorageKey)
	}
	return []byte(doc.RawContent), nil
}
