package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"ragcore/internal/config"
	"ragcore/internal/documents"
	"ragcore/internal/domain"
	"ragcore/internal/history"
	"ragcore/internal/modelprovider"
	"ragcore/internal/objectstore"
	"ragcore/internal/qa"
	"ragcore/internal/retrieval"
	"ragcore/internal/vectorstore"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	registry := modelprovider.NewRegistry()
	models := modelprovider.NewManager(registry)
	require.NoError(t, models.AddModel(domain.ModelConfig{
		Name: "embed-mock", ModelType: domain.ModelTypeEmbedding, Provider: "mock", Enabled: true,
	}))
	require.NoError(t, models.AddModel(domain.ModelConfig{
		Name: "llm-mock", ModelType: domain.ModelTypeLLM, Provider: "mock", Enabled: true,
	}))
	ctx := context.Background()
	require.NoError(t, models.SwitchActive(ctx, "embed-mock"))
	require.NoError(t, models.SwitchActive(ctx, "llm-mock"))

	store := vectorstore.NewMemoryStore()
	engine := retrieval.NewEngine(retrieval.ManagerSource(models), store, zerolog.Nop())

	hist := history.NewMemoryStore()
	repo := documents.NewMemoryRepository()
	pipeline := documents.NewPipeline(documents.PipelineOptions{
		Extractor:    documents.NewFactory(),
		Preprocessor: documents.NewPreprocessor(documents.PreprocessConfig{}, zerolog.Nop()),
		Splitter:     documents.NewRecursiveSplitter(documents.SplitConfig{ChunkSize: 200, ChunkOverlap: 20, MinChunkSize: 10, MaxChunkSize: 400}),
		Embedder:     mustEmbedding(t, models),
		Store:        store,
		Repository:   repo,
		Logger:       zerolog.Nop(),
	})

	// A non-existent path makes Load fall back to defaults + env overlay,
	// which is sufficient for the config endpoints under test.
	mgr, err := config.NewManager(t.TempDir()+"/config.yaml", zerolog.Nop())
	require.NoError(t, err)

	orch := qa.New(hist, engine, func(ctx context.Context) (qa.Generator, error) { return models.ActiveGeneration(ctx) }, mgr)

	return NewServer(Deps{
		Pipeline:   pipeline,
		Repository: repo,
		Objects:    objectstore.NewMemoryStore(),
		History:    hist,
		QA:         orch,
		Configs:    mgr,
		Models:     models,
		Log:        zerolog.Nop(),
	})
}

func mustEmbedding(t *testing.T, models *modelprovider.Manager) modelprovider.Embedding {
	t.Helper()
	emb, err := models.ActiveEmbedding(context.Background())
	require.NoError(t, err)
	return emb
}

func TestUploadDocumentEndpoint(t *testing.T) {
	srv := newTestServer(t)

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "note.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("hello world, this is a test document."))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/documents/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["document_id"])
}

func TestListDocumentsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/documents/", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestAskQuestionEndpointMissingQuestion(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/qa/ask", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateAndFetchSessionHistory(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/sessions/", bytes.NewReader([]byte(`{"user_id":"u1"}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	var session domain.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	require.NotEmpty(t, session.ID)

	req2 := httptest.NewRequest(http.MethodGet, "/sessions/"+session.ID+"/history", nil)
	rec2 := httptest.NewRecorder()
	srv.ServeHTTP(rec2, req2)
	require.Equal(t, http.StatusOK, rec2.Code)
}

func TestGetConfigSectionEndpoint(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/config/llm", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestModelConfigsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/models/configs", nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp, "model_configs")
}

func TestSwitchModelEndpointUnknownName(t *testing.T) {
	srv := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/models/switch", bytes.NewReader([]byte(`{"model_type":"llm","model_name":"does-not-exist"}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
