package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/domain"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, "app:\n  name: Test RAG\n")
	cfg, err := Load(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "Test RAG", cfg.App.Name)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, domain.SearchSemantic, cfg.Retrieval.SearchMode)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "mock", cfg.LLM.Provider)
}

func TestEnvVarSubstitution(t *testing.T) {
	t.Setenv("TEST_LLM_MODEL", "gpt-4o")
	path := writeTempConfig(t, "llm:\n  provider: mock\n  model: ${TEST_LLM_MODEL}\n  api_key: ${MISSING_KEY:fallback}\n")
	cfg, err := Load(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, "fallback", cfg.LLM.APIKey)
}

func TestEmbeddingAliasAccepted(t *testing.T) {
	path := writeTempConfig(t, "embedding:\n  provider: mock\n  chunk_size: 500\n")
	cfg, err := Load(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Embeddings.ChunkSize)
}

func TestVectorDBAliasAccepted(t *testing.T) {
	path := writeTempConfig(t, "vector_db:\n  type: qdrant\n  collection_name: aliased\n")
	cfg, err := Load(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "aliased", cfg.VectorStore.CollectionName)
}

func TestChunkOverlapGreaterThanChunkSizeRejected(t *testing.T) {
	path := writeTempConfig(t, "embeddings:\n  provider: mock\n  chunk_size: 100\n  chunk_overlap: 150\n")
	_, err := Load(path, zerolog.Nop())
	require.Error(t, err)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := writeTempConfig(t, "app:\n  name: RoundTrip\n")
	mgr, err := NewManager(path, zerolog.Nop())
	require.NoError(t, err)

	updated, err := mgr.UpdateSection("retrieval", map[string]any{"top_k": 9})
	require.NoError(t, err)
	assert.Equal(t, 9, updated.Retrieval.TopK)

	reloaded, err := Load(path, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 9, reloaded.Retrieval.TopK)
}

func TestUpdateSectionRejectsInvalidChange(t *testing.T) {
	path := writeTempConfig(t, "retrieval:\n  top_k: 5\n")
	mgr, err := NewManager(path, zerolog.Nop())
	require.NoError(t, err)

	before := mgr.Current()
	_, err = mgr.UpdateSection("retrieval", map[string]any{"search_mode": "bogus"})
	require.Error(t, err)

	after := mgr.Current()
	assert.Equal(t, before.Retrieval.SearchMode, after.Retrieval.SearchMode)
}

func TestUpdateSectionPublishesToSubscribers(t *testing.T) {
	path := writeTempConfig(t, "retrieval:\n  top_k: 5\n")
	mgr, err := NewManager(path, zerolog.Nop())
	require.NoError(t, err)

	var received AppConfig
	mgr.Subscribe(func(cfg AppConfig) { received = cfg })

	_, err = mgr.UpdateSection("retrieval", map[string]any{"top_k": 11})
	require.NoError(t, err)
	assert.Equal(t, 11, received.Retrieval.TopK)
}

func TestValidateUpdateDoesNotApply(t *testing.T) {
	path := writeTempConfig(t, "retrieval:\n  top_k: 5\n")
	mgr, err := NewManager(path, zerolog.Nop())
	require.NoError(t, err)

	result := mgr.ValidateUpdate("retrieval", map[string]any{"top_k": -1})
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Errors)

	assert.Equal(t, 5, mgr.Current().Retrieval.TopK)
}
