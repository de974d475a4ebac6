package service

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/veldt-ai/veldt/internal/domain"
	"github.com/veldt-ai/veldt/internal/pagination"
	"github.com/veldt-ai/veldt/internal/telemetry"
)

// DocumentRepository is the full document persistence surface used outside
// the ingestion pipeline.
type DocumentRepository interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByKnowledgeBase(ctx context.Context, knowledgeBaseID string) ([]*domain.Document, error)
	SetProcessing(ctx context.Context, id string) error
	CountByStatus(ctx context.Context, knowledgeBaseID string) (map[domain.DocumentStatus]int, error)
	Delete(ctx context.Context, id string) error
}

// KnowledgeBaseRepository resolves and lazily creates per-assistant knowledge
// bases.
type KnowledgeBaseRepository interface {
	GetByID(ctx context.Context, id string) (*domain.KnowledgeBase, error)
	GetByAssistantID(ctx context.Context, assistantID string) (*domain.KnowledgeBase, error)
	EnsureForAssistant(ctx context.Context, assistantID, name string) (*domain.KnowledgeBase, error)
}

// BlobUploader writes original document bytes to object storage.
type BlobUploader interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// DocumentIngestor runs the ingestion pipeline for one document.
type DocumentIngestor interface {
	ProcessDocument(ctx context.Context, documentID string) (*IngestStats, error)
}

// UploadInput describes one incoming document.
type UploadInput struct {
	FileName string
	FileType string
	Content  []byte
}

// KnowledgeStatus summarizes a knowledge base for the status endpoint.
type KnowledgeStatus struct {
	KnowledgeBaseID string                        `json:"knowledge_base_id"`
	DocumentCounts  map[domain.DocumentStatus]int `json:"document_counts"`
	TotalDocuments  int                           `json:"total_documents"`
}

// BatchResult reports one document's outcome in a batch processing run.
type BatchResult struct {
	DocumentID string `json:"document_id"`
	Error      string `json:"error,omitempty"`
}

// DocumentService handles document lifecycle outside the pipeline itself:
// upload, listing, status, and explicit (re)processing.
type DocumentService struct {
	docs          DocumentRepository
	pager         DocumentPager
	knowledgeBase KnowledgeBaseRepository
	txRunner      TxRunner
	blobs         BlobUploader // nil when object storage is not configured
	ingestor      DocumentIngestor
	uuidGen       UUIDGenerator
	parallelism   int
}

func NewDocumentService(
	docs DocumentRepository,
	pager DocumentPager,
	knowledgeBase KnowledgeBaseRepository,
	txRunner TxRunner,
	blobs BlobUploader,
	ingestor DocumentIngestor,
	uuidGen UUIDGenerator,
	parallelism int,
) *DocumentService {
	if parallelism <= 0 {
		parallelism = 4
	}
	return &DocumentService{
		docs:          docs,
		pager:         pager,
		knowledgeBase: knowledgeBase,
		txRunner:      txRunner,
		blobs:         blobs,
		ingestor:      ingestor,
		uuidGen:       uuidGen,
		parallelism:   parallelism,
	}
}

// Upload registers a document as pending. The knowledge base is created on
// first upload; both writes happen in one transaction. Bytes go to object
// storage when configured, otherwise they are stored inline.
func (s *DocumentService) Upload(ctx context.Context, assistantID string, input UploadInput) (*domain.Document, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Upload", telemetry.SpanAttributes{
		AssistantID: assistantID,
		Operation:   "upload",
	})
	defer span.End()

	if input.FileName == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "file name is required")
	}
	if len(input.Content) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "file content is required")
	}
	fileType := input.FileType
	if fileType == "" {
		fileType = "text/plain"
	}

	docID := s.uuidGen.NewString()
	now := time.Now().UTC()

	doc := &domain.Document{
		ID:        docID,
		FileName:  input.FileName,
		FileType:  fileType,
		Status:    domain.DocumentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if s.blobs != nil {
		key := fmt.Sprintf("documents/%s/%s/%s", assistantID, docID, input.FileName)
		if err := s.blobs.Upload(ctx, key, input.Content, fileType); err != nil {
			span.SetError(err)
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "failed to store document", err)
		}
		doc.StorageKey = key
	} else {
		doc.RawContent = string(input.Content)
	}

	err := s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
		kb, err := repos.KnowledgeBases().EnsureForAssistant(ctx, assistantID, "default")
		if err != nil {
			return err
		}
		doc.KnowledgeBaseID = kb.ID
		if err := domain.ValidateDocument(doc); err != nil {
			return err
		}
		return repos.Documents().Create(ctx, doc)
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	return doc, nil
}

// staleProcessingAge is how long a document may sit in processing before the
// batch endpoint treats its worker as gone and reclaims it.
const staleProcessingAge = 10 * time.Minute

// reprocessable reports whether the batch endpoint should run the pipeline
// for this document. Done documents are included so re-ingestion after a
// pipeline change is a single API call; processing documents are reclaimed
// only once their worker has been silent past staleProcessingAge.
func reprocessable(doc *domain.Document, now time.Time) bool {
	switch doc.Status {
	case domain.DocumentStatusPending, domain.DocumentStatusError, domain.DocumentStatusDone:
		return true
	case domain.DocumentStatusProcessing:
		return now.Sub(doc.UpdatedAt) >= staleProcessingAge
	}
	return false
}

// ProcessPending runs the pipeline for every document in the assistant's
// knowledge base that is pending, errored, done, or abandoned mid-processing,
// at most parallelism documents at a time. Re-running a done document replaces
// its chunk set. Each document fails or succeeds independently.
func (s *DocumentService) ProcessPending(ctx context.Context, assistantID string) ([]BatchResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.ProcessPending", telemetry.SpanAttributes{
		AssistantID: assistantID,
		Operation:   "process_batch",
	})
	defer span.End()

	kb, err := s.knowledgeBase.GetByAssistantID(ctx, assistantID)
	if err != nil {
		return nil, err
	}

	docs, err := s.docs.ListByKnowledgeBase(ctx, kb.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var targets []*domain.Document
	for _, doc := range docs {
		if reprocessable(doc, now) {
			targets = append(targets, doc)
		}
	}

	results := make([]BatchResult, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	for i, doc := range targets {
		g.Go(func() error {
			results[i] = BatchResult{DocumentID: doc.ID}
			if _, err := s.ingestor.ProcessDocument(gctx, doc.ID); err != nil {
				results[i].Error = err.Error()
			}
			return nil
		})
	}

	// Goroutines never return errors; per-document failures land in results.
	_ = g.Wait()

	return results, nil
}

// Status reports document counts for the assistant's knowledge base. An
// assistant with no knowledge base yet reports zero documents.
func (s *DocumentService) Status(ctx context.Context, assistantID string) (*KnowledgeStatus, error) {
	kb, err := s.knowledgeBase.GetByAssistantID(ctx, assistantID)
	if err != nil {
		if err == domain.ErrKnowledgeBaseNotFound {
			return &KnowledgeStatus{DocumentCounts: map[domain.DocumentStatus]int{}}, nil
		}
		return nil, err
	}

	counts, err := s.docs.CountByStatus(ctx, kb.ID)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	return &KnowledgeStatus{
		KnowledgeBaseID: kb.ID,
		DocumentCounts:  counts,
		TotalDocuments:  total,
	}, nil
}

// GetDocument returns one document by ID.
func (s *DocumentService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	return s.docs.GetByID(ctx, id)
}

// ListDocuments returns a page of the assistant's documents, newest first.
func (s *DocumentService) ListDocuments(ctx context.Context, assistantID, cursorToken string, limit int) (*DocumentPage, error) {
	kb, err := s.knowledgeBase.GetByAssistantID(ctx, assistantID)
	if err != nil {
		if err == domain.ErrKnowledgeBaseNotFound {
			return &DocumentPage{Items: []*domain.Document{}}, nil
		}
		return nil, err
	}

	var cursor *pagination.Cursor
	if cursorToken != "" {
		cursor, err = pagination.DecodeCursor(cursorToken)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
		}
	}

	return s.pager.ListByKnowledgeBaseWithCursor(ctx, kb.ID, cursor, limit)
}

// KnowledgeBaseForAssistant resolves an assistant's knowledge base.
func (s *DocumentService) KnowledgeBaseForAssistant(ctx context.Context, assistantID string) (*domain.KnowledgeBase, error) {
	return s.knowledgeBase.GetByAssistantID(ctx, assistantID)
}

// DocumentPager lists documents with cursor pagination. It is implemented by
// the document repository and consumed directly by the list handler.
type DocumentPager interface {
	ListByKnowledgeBaseWithCursor(ctx context.Context, knowledgeBaseID string, cursor *pagination.Cursor, limit int) (*DocumentPage, error)
}

// DocumentPage is one page of documents.
type DocumentPage = pagination.PageResult[*domain.Document]
