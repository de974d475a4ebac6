package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/veldt-ai/veldt/internal/domain"
)

// MockIngestDocumentRepository is a mock implementation of IngestDocumentRepository
type MockIngestDocumentRepository struct {
	mock.Mock
}

func (m *MockIngestDocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockIngestDocumentRepository) SetProcessing(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockIngestDocumentRepository) MarkDone(ctx context.Context, id string, chunkCount, tagCount int) error {
	args := m.Called(ctx, id, chunkCount, tagCount)
	return args.Error(0)
}

func (m *MockIngestDocumentRepository) MarkError(ctx context.Context, id string, message string) error {
	args := m.Called(ctx, id, message)
	return args.Error(0)
}

// MockChunkIndex is a mock implementation of ChunkIndex
type MockChunkIndex struct {
	mock.Mock
}

func (m *MockChunkIndex) ReplaceDocumentChunks(ctx context.Context, knowledgeBaseID, documentID string, records []domain.ChunkRecord) error {
	args := m.Called(ctx, knowledgeBaseID, documentID, records)
	return args.Error(0)
}

func (m *MockChunkIndex) Search(ctx context.Context, knowledgeBaseID string, vector []float32, topK int, tagFilter []string) ([]domain.ScoredChunk, error) {
	args := m.Called(ctx, knowledgeBaseID, vector, topK, tagFilter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ScoredChunk), args.Error(1)
}

// MockBlobDownloader is a mock implementation of BlobDownloader
type MockBlobDownloader struct {
	mock.Mock
}

func (m *MockBlobDownloader) Download(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// fixedTagger returns the same tag set for every span.
type fixedTagger struct {
	tags []string
}

func (t *fixedTagger) GenerateTags(ctx context.Context, text string, n int) []string {
	return t.tags
}

func (t *fixedTagger) GenerateQueryTags(ctx context.Context, query string) []string {
	return t.tags
}

func testDocument() *domain.Document {
	return &domain.Document{
		ID:              "doc-1",
		KnowledgeBaseID: "kb-1",
		FileName:        "policy.txt",
		FileType:        "text/plain",
		RawContent:      strings.Repeat("refund policy text ", 60), // 1140 chars
		Status:          domain.DocumentStatusPending,
	}
}

func newTestIngestion(docs *MockIngestDocumentRepository, index *MockChunkIndex, embedErr error) *IngestionService {
	invoker := new(MockModelInvoker)
	if embedErr != nil {
		invoker.On("Embed", mock.Anything, mock.Anything, mock.Anything).Return(nil, embedErr)
	} else {
		invoker.On("Embed", mock.Anything, mock.Anything, mock.Anything).Return(make([]float32, 768), nil)
	}

	return NewIngestionService(
		docs,
		nil,
		NewTextExtractor(invoker, "deepseek-ocr:latest"),
		&fixedTagger{tags: []string{"refund", "policy"}},
		NewEmbedder(invoker, "nomic-embed-text:latest", 768),
		index,
		ChunkConfig{Size: 500, Overlap: 50},
		3,
	)
}

func TestProcessDocumentSuccess(t *testing.T) {
	docs := new(MockIngestDocumentRepository)
	index := new(MockChunkIndex)
	doc := testDocument()

	docs.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)
	docs.On("SetProcessing", mock.Anything, "doc-1").Return(nil)
	docs.On("MarkDone", mock.Anything, "doc-1", 3, 6).Return(nil)
	index.On("ReplaceDocumentChunks", mock.Anything, "kb-1", "doc-1", mock.MatchedBy(func(records []domain.ChunkRecord) bool {
		return len(records) == 3 && records[0].SourceDocument == "policy.txt" && len(records[0].Embedding) == 768
	})).Return(nil)

	svc := newTestIngestion(docs, index, nil)
	stats, err := svc.ProcessDocument(context.Background(), "doc-1")

	require.NoError(t, err)
	assert.Equal(t, 3, stats.ChunksCreated)
	assert.Equal(t, 6, stats.TagsGenerated)
	assert.GreaterOrEqual(t, stats.ProcessingTime.Nanoseconds(), int64(0))
	docs.AssertExpectations(t)
	index.AssertExpectations(t)
}

func TestProcessDocumentEmbeddingFailureMarksError(t *testing.T) {
	docs := new(MockIngestDocumentRepository)
	index := new(MockChunkIndex)
	doc := testDocument()

	docs.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)
	docs.On("SetProcessing", mock.Anything, "doc-1").Return(nil)
	docs.On("MarkError", mock.Anything, "doc-1", mock.Anything).Return(nil)

	svc := newTestIngestion(docs, index, errors.New("transport error"))
	_, err := svc.ProcessDocument(context.Background(), "doc-1")

	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeIngestionFailed))
	docs.AssertExpectations(t)
	// No partial chunk set may reach the index.
	index.AssertNotCalled(t, "ReplaceDocumentChunks")
	docs.AssertNotCalled(t, "MarkDone")
}

func TestProcessDocumentIndexFailureMarksError(t *testing.T) {
	docs := new(MockIngestDocumentRepository)
	index := new(MockChunkIndex)
	doc := testDocument()

	docs.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)
	docs.On("SetProcessing", mock.Anything, "doc-1").Return(nil)
	docs.On("MarkError", mock.Anything, "doc-1", mock.Anything).Return(nil)
	index.On("ReplaceDocumentChunks", mock.Anything, "kb-1", "doc-1", mock.Anything).
		Return(errors.New("deadlock detected"))

	svc := newTestIngestion(docs, index, nil)
	_, err := svc.ProcessDocument(context.Background(), "doc-1")

	require.Error(t, err)
	assert.True(t, domain.IsErrorCode(err, domain.ErrCodeIngestionFailed))
	docs.AssertExpectations(t)
}

func TestProcessDocumentMarkDoneFailureMarksError(t *testing.T) {
	docs := new(MockIngestDocumentRepository)
	index := new(MockChunkIndex)
	doc := testDocument()

	docs.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)
	docs.On("SetProcessing", mock.Anything, "doc-1").Return(nil)
	docs.On("MarkDone", mock.Anything, "doc-1", 3, 6).Return(errors.New("connection reset"))
	docs.On("MarkError", mock.Anything, "doc-1", mock.MatchedBy(func(msg string) bool {
		return strings.Contains(msg, "connection reset")
	})).Return(nil)
	index.On("ReplaceDocumentChunks", mock.Anything, "kb-1", "doc-1", mock.Anything).Return(nil)

	svc := newTestIngestion(docs, index, nil)
	_, err := svc.ProcessDocument(context.Background(), "doc-1")

	// The document must not stay in processing when the final status write
	// fails after the index swap.
	require.Error(t, err)
	docs.AssertExpectations(t)
}

func TestProcessDocumentShortContentSingleChunk(t *testing.T) {
	docs := new(MockIngestDocumentRepository)
	index := new(MockChunkIndex)
	doc := testDocument()
	doc.RawContent = "   "

	docs.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)
	docs.On("SetProcessing", mock.Anything, "doc-1").Return(nil)
	docs.On("MarkDone", mock.Anything, "doc-1", 1, 2).Return(nil)
	index.On("ReplaceDocumentChunks", mock.Anything, "kb-1", "doc-1", mock.Anything).Return(nil)

	svc := newTestIngestion(docs, index, nil)
	stats, err := svc.ProcessDocument(context.Background(), "doc-1")

	require.NoError(t, err)
	assert.Equal(t, 1, stats.ChunksCreated)
}

func TestProcessDocumentDownloadsFromStorage(t *testing.T) {
	docs := new(MockIngestDocumentRepository)
	index := new(MockChunkIndex)
	blobs := new(MockBlobDownloader)
	doc := testDocument()
	doc.RawContent = ""
	doc.StorageKey = "kb-1/doc-1/policy.txt"

	docs.On("GetByID", mock.Anything, "doc-1").Return(doc, nil)
	docs.On("SetProcessing", mock.Anything, "doc-1").Return(nil)
	docs.On("MarkDone", mock.Anything, "doc-1", 1, 2).Return(nil)
	blobs.On("Download", mock.Anything, "kb-1/doc-1/policy.txt").Return([]byte("short document"), nil)
	index.On("ReplaceDocumentChunks", mock.Anything, "kb-1", "doc-1", mock.Anything).Return(nil)

	invoker := new(MockModelInvoker)
	invoker.On("Embed", mock.Anything, mock.Anything, mock.Anything).Return(make([]float32, 768), nil)

	svc := NewIngestionService(
		docs,
		blobs,
		NewTextExtractor(invoker, "deepseek-ocr:latest"),
		&fixedTagger{tags: []string{"refund", "policy"}},
		NewEmbedder(invoker, "nomic-embed-text:latest", 768),
		index,
		ChunkConfig{Size: 500, Overlap: 50},
		3,
	)

	_, err := svc.ProcessDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	blobs.AssertExpectations(t)
}

func TestProcessDocumentNotFound(t *testing.T) {
	docs := new(MockIngestDocumentRepository)
	docs.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrDocumentNotFound)

	svc := newTestIngestion(docs, new(MockChunkIndex), nil)
	_, err := svc.ProcessDocument(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
}
