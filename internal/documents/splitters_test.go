package documents

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/domain"
)

func testSplitConfig() SplitConfig {
	return SplitConfig{
		ChunkSize:    200,
		ChunkOverlap: 20,
		MinChunkSize: 20,
		MaxChunkSize: 400,
	}
}

func TestFixedSizeSplitterProducesContiguousIndicesAndNonEmptyChunks(t *testing.T) {
	splitter := fixedSizeSplitter{cfg: testSplitConfig()}
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)

	chunks, err := splitter.Split(text, "doc-1")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.NotEmpty(t, strings.TrimSpace(c.Content))
		assert.Equal(t, "fixed_size", c.Metadata.SplitMethod)
		assert.Equal(t, "doc-1", c.DocumentID)
	}
}

func TestFixedSizeSplitterRejectsEmptyText(t *testing.T) {
	splitter := fixedSizeSplitter{cfg: testSplitConfig()}
	_, err := splitter.Split("   ", "doc-1")
	require.Error(t, err)
}

func TestStructureSplitterBreaksOnHeaders(t *testing.T) {
	splitter := structureSplitter{cfg: testSplitConfig()}
	text := "# Introduction\n\nThis is the intro paragraph.\n\n# Conclusion\n\nThis is the conclusion paragraph."

	chunks, err := splitter.Split(text, "doc-2")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.True(t, chunks[0].Metadata.HasHeader)
	assert.Contains(t, chunks[0].Content, "Introduction")
	assert.Contains(t, chunks[1].Content, "Conclusion")
}

func TestHierarchicalSplitterBuildsNestedSections(t *testing.T) {
	splitter := hierarchicalSplitter{cfg: testSplitConfig()}
	text := "# Chapter One\n\nChapter one body text.\n\n## Section A\n\nSection A body text."

	chunks, err := splitter.Split(text, "doc-3")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, "hierarchical", c.Metadata.SplitMethod)
	}
}

func TestSemanticSplitterGroupsAroundDiscourseMarkers(t *testing.T) {
	splitter := semanticSplitter{cfg: testSplitConfig()}
	text := "This is the first important sentence about the topic. " +
		"This is a second sentence continuing the same topic in detail. " +
		"然而这是一个完全不同的话题需要另外讨论一下这个问题。" +
		"这里继续讨论这个新话题的更多细节内容。"

	chunks, err := splitter.Split(text, "doc-4")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Equal(t, "semantic", c.Metadata.SplitMethod)
	}
}

func TestSemanticSplitterSingleSentenceReturnsOneChunk(t *testing.T) {
	splitter := semanticSplitter{cfg: testSplitConfig()}
	chunks, err := splitter.Split("Just one short sentence here without terminators", "doc-5")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
}

func TestSelectBestStrategyPicksHierarchicalForLongCJKChapters(t *testing.T) {
	text := "第一章 引言\n\n" + strings.Repeat("这是一段很长的正文内容用于测试层级分割器的选择逻辑。", 80)
	strategy := selectBestStrategy(text, testSplitConfig())
	assert.Equal(t, "hierarchical", strategy)
}

func TestSelectBestStrategyPicksStructureForManyHeaderedParagraphs(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 6; i++ {
		sb.WriteString("# Heading\n\nSome paragraph body text here.\n\n")
	}
	strategy := selectBestStrategy(sb.String(), testSplitConfig())
	assert.Equal(t, "structure", strategy)
}

func TestSelectBestStrategyDefaultsToFixed(t *testing.T) {
	strategy := selectBestStrategy("just a short plain sentence.", testSplitConfig())
	assert.Equal(t, "fixed", strategy)
}

func TestRecursiveSplitterReindexesAfterPostProcessing(t *testing.T) {
	cfg := SplitConfig{ChunkSize: 50, ChunkOverlap: 5, MinChunkSize: 10, MaxChunkSize: 100}
	r := NewRecursiveSplitter(cfg)
	text := strings.Repeat("A modestly long sentence for testing purposes here. ", 20)

	chunks, err := r.Split(text, "doc-6")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
		assert.LessOrEqual(t, len([]rune(c.Content)), cfg.MaxChunkSize*2) // merged chunks may exceed chunk size but post-process caps at max
	}
}

func TestRecursiveSplitterMergesUndersizedTrailingChunk(t *testing.T) {
	cfg := SplitConfig{ChunkSize: 1000, ChunkOverlap: 0, MinChunkSize: 50, MaxChunkSize: 2000}
	r := &RecursiveSplitter{cfg: cfg}

	big := domain.TextChunk{
		ID:         "chunk-0",
		ChunkIndex: 0,
		Content:    "first chunk with plenty of content to exceed the minimum size threshold easily",
		Metadata:   domain.ChunkMetadata{SplitMethod: "fixed_size"},
	}
	small := domain.TextChunk{
		ID:         "chunk-1",
		ChunkIndex: 1,
		Content:    "tiny",
		Metadata:   domain.ChunkMetadata{SplitMethod: "fixed_size"},
	}

	final := r.postProcess([]domain.TextChunk{big, small}, "doc-7")
	require.Len(t, final, 1)
	assert.Contains(t, final[0].Content, "tiny")
	assert.Equal(t, 1, final[0].Metadata.MergedChunks)
}

func TestRecursiveSplitterKeepsSoleSubMinChunkInstead(t *testing.T) {
	cfg := SplitConfig{ChunkSize: 1000, ChunkOverlap: 0, MinChunkSize: 100, MaxChunkSize: 2000}
	r := &RecursiveSplitter{cfg: cfg}

	lone := domain.TextChunk{
		ID:         "chunk-0",
		ChunkIndex: 0,
		Content:    "too short for the minimum",
		Metadata:   domain.ChunkMetadata{SplitMethod: "fixed_size"},
	}

	final := r.postProcess([]domain.TextChunk{lone}, "doc-8")
	require.Len(t, final, 1)
	assert.Equal(t, "too short for the minimum", final[0].Content)
	assert.Equal(t, 0, final[0].ChunkIndex)
}

func TestRecursiveSplitterShortDocumentProducesOneChunk(t *testing.T) {
	cfg := SplitConfig{ChunkSize: 1000, ChunkOverlap: 200, MinChunkSize: 100, MaxChunkSize: 2000}
	r := NewRecursiveSplitter(cfg)
	text := "Python was created by Guido van Rossum in 1991.\n\nMachine learning is a subset of AI."

	chunks, err := r.Split(text, "doc-9")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, text, chunks[0].Content)
}
