package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/veldt-ai/veldt/internal/domain"
	"github.com/veldt-ai/veldt/internal/service"
)

// DocumentClaimer atomically claims pending documents for processing.
type DocumentClaimer interface {
	ClaimPending(ctx context.Context, limit int) ([]*domain.Document, error)
}

// DocumentIngestor runs the ingestion pipeline for one document.
type DocumentIngestor interface {
	ProcessDocument(ctx context.Context, documentID string) (*service.IngestStats, error)
}

// IngestWorker drains pending documents through the ingestion pipeline. A
// failed document lands in the error state and is not retried automatically;
// re-processing is an explicit API call.
type IngestWorker struct {
	claimer  DocumentClaimer
	ingestor DocumentIngestor
	batch    int
}

// NewIngestWorker creates a new IngestWorker instance
func NewIngestWorker(claimer DocumentClaimer, ingestor DocumentIngestor, batch int) *IngestWorker {
	if batch <= 0 {
		batch = 10
	}
	return &IngestWorker{
		claimer:  claimer,
		ingestor: ingestor,
		batch:    batch,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IngestWorker) ProcessJobs(ctx context.Context) error {
	docs, err := w.claimer.ClaimPending(ctx, w.batch)
	if err != nil {
		return fmt.Errorf("failed to claim pending documents: %w", err)
	}

	if len(docs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending documents", len(docs))

	for _, doc := range docs {
		stats, err := w.ingestor.ProcessDocument(ctx, doc.ID)
		if err != nil {
			// The pipeline already marked the document as errored.
			log.Printf("Document %s failed: %v", doc.ID, err)
			continue
		}
		log.Printf("Document %s ingested: %d chunks, %d tags", doc.ID, stats.ChunksCreated, stats.TagsGenerated)
	}

	return nil
}
