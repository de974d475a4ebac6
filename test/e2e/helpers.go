//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/veldt-ai/veldt/internal/api/handlers"
	"github.com/veldt-ai/veldt/internal/repository"
	"github.com/veldt-ai/veldt/internal/server"
	"github.com/veldt-ai/veldt/internal/service"
	"github.com/veldt-ai/veldt/internal/storage"
	"github.com/veldt-ai/veldt/internal/testutil"
)

const (
	stubEmbeddingDim = 768

	stubFastModel      = "stub-fast"
	stubReasoningModel = "stub-reasoning"
	stubTaggingModel   = "stub-tagger"
	stubEmbeddingModel = "stub-embed"
	stubOCRModel       = "stub-ocr"

	stubGroundedAnswer  = "Based on the retrieved context, here is the answer."
	stubNoContextAnswer = "The knowledge base has no information on that."
	stubOCRText         = "Extracted document text."
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T            *testing.T
	Ctx          context.Context
	PostgresC    *testutil.PostgresContainer
	RustFSC      *testutil.RustFSContainer
	Pool         *pgxpool.Pool
	ServerURL    string
	ServerCloser func()
	TenantID     string
	APIKeyToken  string
	HTTPClient   *http.Client
}

// SetupE2EEnv creates a full E2E test environment with containers and server.
// Model calls go through a deterministic stub so the full ingestion and query
// pipeline runs without external model servers.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)

	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        s3C.Endpoint(),
		Region:          "us-east-1",
		AccessKeyID:     "rustfsadmin",
		SecretAccessKey: "rustfsadmin",
		Bucket:          "test-documents",
		UsePathStyle:    true,
	})
	if err != nil {
		t.Fatalf("failed to create S3 client: %v", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		t.Fatalf("failed to create bucket: %v", err)
	}

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	serverURL, serverCloser := startServer(t, pool, s3Client, port)

	return &E2ETestEnv{
		T:            t,
		Ctx:          ctx,
		PostgresC:    pgC,
		RustFSC:      s3C,
		Pool:         pool,
		ServerURL:    serverURL,
		ServerCloser: serverCloser,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.ServerCloser != nil {
		e.ServerCloser()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.RustFSC != nil {
		e.RustFSC.Terminate(e.Ctx)
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(e.Ctx)
	}
}

// Bootstrap creates a tenant and API key for testing
func (e *E2ETestEnv) Bootstrap() {
	e.TenantID, e.APIKeyToken = e.CreateTenantWithKey("E2E Test Tenant")
}

// CreateTenantWithKey creates a tenant plus an API key and returns both.
func (e *E2ETestEnv) CreateTenantWithKey(name string) (string, string) {
	tenantResp, err := e.Post("/tenants", map[string]string{"name": name}, "")
	if err != nil {
		e.T.Fatalf("failed to create tenant: %v", err)
	}

	var tenantData struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal(tenantResp.Data, &tenantData); err != nil {
		e.T.Fatalf("failed to parse tenant response: %v", err)
	}

	keyResp, err := e.Post("/apikeys", map[string]string{
		"tenant_id": tenantData.ID,
		"name":      "e2e-test-key",
	}, "")
	if err != nil {
		e.T.Fatalf("failed to create API key: %v", err)
	}

	var keyData struct {
		Token string `json:"token"`
		Name  string `json:"name"`
	}
	if err := json.Unmarshal(keyResp.Data, &keyData); err != nil {
		e.T.Fatalf("failed to parse key response: %v", err)
	}

	return tenantData.ID, keyData.Token
}

// APIResponse represents a standard API response
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, authToken string) (*APIResponse, error) {
	return e.doRequest("GET", path, nil, authToken)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("POST", path, body, authToken)
}

// Put performs a PUT request
func (e *E2ETestEnv) Put(path string, body interface{}, authToken string) (*APIResponse, error) {
	return e.doRequest("PUT", path, body, authToken)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// startServer starts the HTTP server with all handlers wired against the stub
// model invoker.
func startServer(t *testing.T, pool *pgxpool.Pool, s3Client *storage.S3Client, port int) (string, func()) {
	tenantRepo := repository.NewTenantRepository(pool)
	apiKeyRepo := repository.NewAPIKeyRepository(pool)
	workspaceRepo := repository.NewWorkspaceRepository(pool)
	teammateRepo := repository.NewTeammateRepository(pool)
	assistantRepo := repository.NewAssistantRepository(pool)
	kbRepo := repository.NewKnowledgeBaseRepository(pool)
	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkIndexRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	uuidGen := &service.DefaultUUIDGenerator{}
	authSvc := service.NewAuthService(tenantRepo, apiKeyRepo, uuidGen)

	invoker := &stubModelInvoker{}
	extractor := service.NewTextExtractor(invoker, stubOCRModel)
	tagger := service.NewTagGenerator(invoker, stubTaggingModel, 3)
	embedder := service.NewEmbedder(invoker, stubEmbeddingModel, stubEmbeddingDim)

	chunkCfg := service.ChunkConfig{Size: 400, Overlap: 40}
	ingestSvc := service.NewIngestionService(docRepo, s3Client, extractor, tagger, embedder, chunkRepo, chunkCfg, 3)

	retrievalSvc := service.NewRetrievalService(embedder, tagger, chunkRepo, 5)
	inferenceRouter := service.NewInferenceRouter(retrievalSvc, invoker, stubFastModel, stubReasoningModel, 5)

	tenancySvc := service.NewTenancyService(workspaceRepo, teammateRepo, assistantRepo, uuidGen)
	docSvc := service.NewDocumentService(docRepo, docRepo, kbRepo, txRunner, s3Client, ingestSvc, uuidGen, 0)

	cfg := server.RouterConfig{
		AuthValidator:   authSvc,
		AuthHandler:     handlers.NewAuthHandler(authSvc),
		TenancyHandler:  handlers.NewTenancyHandler(tenancySvc),
		DocumentHandler: handlers.NewDocumentHandler(docSvc, tenancySvc),
		QueryHandler:    handlers.NewQueryHandler(tenancySvc, docSvc, inferenceRouter),
	}

	router := server.NewRouter(cfg)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Logf("server error: %v", err)
		}
	}()

	serverURL := fmt.Sprintf("http://localhost:%d", port)
	waitForServer(t, serverURL, 10*time.Second)

	return serverURL, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}
}

func waitForServer(t *testing.T, url string, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url + "/health")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
}

func getFreePort() (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", "localhost:0")
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// stubModelInvoker answers model calls deterministically. Embeddings are
// normalized bag-of-words vectors, so texts sharing words score high on
// cosine similarity. Tags are the longer words of the tagged text, so chunk
// tags and query tags overlap whenever the texts do.
type stubModelInvoker struct{}

func (s *stubModelInvoker) Generate(ctx context.Context, model, prompt string) (string, error) {
	if strings.Contains(prompt, "comma-separated list of tags") {
		return strings.Join(stubKeywords(tagPromptText(prompt)), ", "), nil
	}
	if strings.Contains(prompt, "(no relevant documents found") {
		return stubNoContextAnswer, nil
	}
	if strings.Contains(prompt, "Think step-by-step") {
		return "<think>\nReview the retrieved context.\nMatch it against the question.\n</think>\n" + stubGroundedAnswer, nil
	}
	return stubGroundedAnswer, nil
}

func (s *stubModelInvoker) GenerateWithImage(ctx context.Context, model, prompt string, image []byte, mimeType string) (string, error) {
	return stubOCRText, nil
}

func (s *stubModelInvoker) Embed(ctx context.Context, model, text string) ([]float32, error) {
	vec := make([]float32, stubEmbeddingDim)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,:;!?\"'()")
		if word == "" {
			continue
		}
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%stubEmbeddingDim]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		vec[0] = 1
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

// tagPromptText pulls the tagged text out of the tagging prompt.
func tagPromptText(prompt string) string {
	_, after, ok := strings.Cut(prompt, "Text:\n")
	if !ok {
		return prompt
	}
	before, _, _ := strings.Cut(after, "\n\nTags:")
	return before
}

// stubKeywords returns the distinct words of at least six letters, in order.
func stubKeywords(text string) []string {
	seen := make(map[string]struct{})
	var keywords []string
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,:;!?\"'()")
		if len(word) < 6 {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		keywords = append(keywords, word)
		if len(keywords) == 8 {
			break
		}
	}
	return keywords
}
