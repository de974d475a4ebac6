package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"veldt-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	// Model gateway: any OpenAI-compatible endpoint. Defaults target a local
	// Ollama daemon's /v1 surface.
	ModelBaseURL string `envconfig:"MODEL_BASE_URL" default:"http://localhost:11434/v1"`
	ModelAPIKey  string `envconfig:"MODEL_API_KEY" default:"ollama"`

	OCRModel       string `envconfig:"OCR_MODEL" default:"deepseek-ocr:latest"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL" default:"nomic-embed-text:latest"`
	TaggingModel   string `envconfig:"TAGGING_MODEL" default:"neural-chat:7b"`
	FastModel      string `envconfig:"FAST_MODEL" default:"qwen3:7b"`
	ReasoningModel string `envconfig:"REASONING_MODEL" default:"deepseek-r1:8b"`

	EmbeddingDimensions int `envconfig:"EMBEDDING_DIMENSIONS" default:"768"`
	ChunkSize           int `envconfig:"CHUNK_SIZE" default:"500"`
	ChunkOverlap        int `envconfig:"CHUNK_OVERLAP" default:"50"`
	TopK                int `envconfig:"TOP_K" default:"5"`
	TagsPerChunk        int `envconfig:"TAGS_PER_CHUNK" default:"3"`

	// Bootstrap: create initial tenant and API key on startup
	InitTenantName string `envconfig:"INIT_TENANT_NAME"`
	InitAPIKey     string `envconfig:"INIT_API_KEY"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("VELDT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("chunk overlap must satisfy 0 <= overlap < chunk size, got %d", c.ChunkOverlap)
	}
	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("embedding dimensions must be positive, got %d", c.EmbeddingDimensions)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top-k must be positive, got %d", c.TopK)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}
