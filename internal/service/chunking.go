package service

import "github.com/veldt-ai/veldt/internal/domain"

// ChunkConfig controls document chunking for the ingestion pipeline.
type ChunkConfig struct {
	Size    int
	Overlap int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    500,
		Overlap: 50,
	}
}

// ChunkText splits text into overlapping fixed-size segments. Each successive
// chunk starts Size-Overlap runes after the previous one; the final chunk may
// be shorter. Every rune of the input appears in at least one chunk, offsets
// are deterministic, and empty input yields no chunks.
func ChunkText(documentID, text string, cfg ChunkConfig) []domain.Chunk {
	if cfg.Size <= 0 || cfg.Overlap < 0 || cfg.Overlap >= cfg.Size {
		cfg = DefaultChunkConfig()
	}

	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := cfg.Size - cfg.Overlap
	chunks := make([]domain.Chunk, 0, (len(runes)+step-1)/step)

	for start := 0; start < len(runes); start += step {
		end := start + cfg.Size
		if end > len(runes) {
			end = len(runes)
		}

		chunks = append(chunks, domain.Chunk{
			DocumentID: documentID,
			Index:      len(chunks),
			Text:       string(runes[start:end]),
			Start:      start,
			End:        end,
		})

		if end >= len(runes) {
			break
		}
	}

	return chunks
}
