package domain

import "time"

// Chunk is a contiguous span of a document's extracted text. Start and End are
// rune offsets into the source text; adjacent chunks overlap by the configured
// amount. Immutable once produced.
type Chunk struct {
	DocumentID string
	Index      int
	Text       string
	Start      int
	End        int
}

// ChunkRecord is the unit stored in the vector index: one chunk with its
// embedding, tag set and source attribution, partitioned by knowledge base.
type ChunkRecord struct {
	ID              int64
	KnowledgeBaseID string
	DocumentID      string
	SourceDocument  string
	ChunkIndex      int
	Content         string
	Tags            []string
	Embedding       []float32
	CreatedAt       time.Time
}

// ScoredChunk pairs a stored chunk record with its relevance score for one
// query. Scores are normalized to [0,1], higher is more similar.
type ScoredChunk struct {
	ChunkRecord
	Score float32
}

// Source attributes one retrieved chunk in an inference result.
type Source struct {
	Chunk          string   `json:"chunk"`
	SourceDocument string   `json:"source_document"`
	RelevanceScore float32  `json:"relevance_score"`
	Tags           []string `json:"tags"`
}

// InferenceResult is the full answer returned to the caller. ReasoningSteps is
// empty in fast mode and whenever the model emitted no explicit steps.
type InferenceResult struct {
	Answer         string        `json:"answer"`
	ReasoningSteps []string      `json:"reasoning_steps"`
	Sources        []Source      `json:"sources"`
	ModelUsed      string        `json:"model_used"`
	Mode           InferenceMode `json:"inference_mode"`
	ProcessingTime time.Duration `json:"-"`
}
