package biz_test

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docchat/internal/docchat/biz"
	"github.com/kart-io/docchat/internal/docchat/extract"
	"github.com/kart-io/docchat/internal/docchat/store"
	"github.com/kart-io/docchat/pkg/llm"
	"github.com/kart-io/docchat/pkg/utils/errors"
)

// mockEmbedProvider 按调用顺序生成固定维度的向量，可指定失败的调用序号。
type mockEmbedProvider struct {
	dim    int
	failOn map[int]bool
	calls  int
}

func (m *mockEmbedProvider) Name() string { return "mock-embed" }

func (m *mockEmbedProvider) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	call := m.calls
	m.calls++
	if m.failOn[call] {
		return nil, fmt.Errorf("embed call %d failed", call)
	}
	v := make([]float32, m.dim)
	v[0] = 1
	return v, nil
}

func (m *mockEmbedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		v, err := m.EmbedSingle(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// mockChatProvider 记录收到的提示词并返回固定回答。
type mockChatProvider struct {
	answer     string
	err        error
	lastPrompt string
}

func (m *mockChatProvider) Name() string { return "mock-chat" }

func (m *mockChatProvider) Generate(_ context.Context, prompt, _ string) (string, error) {
	m.lastPrompt = prompt
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func (m *mockChatProvider) Chat(_ context.Context, messages []llm.Message) (string, error) {
	if len(messages) > 0 {
		m.lastPrompt = messages[len(messages)-1].Content
	}
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func newService(s store.VectorStore, e llm.EmbeddingProvider, c llm.ChatProvider, cfg *biz.ServiceConfig) biz.Service {
	return biz.NewDocChatService(s, e, c, cfg)
}

func testConfig() *biz.ServiceConfig {
	return &biz.ServiceConfig{
		IngesterConfig: &biz.IngesterConfig{
			ChunkSize:        1500,
			ChunkOverlap:     300,
			MinChunkLength:   50,
			UpsertBatchSize:  8,
			EmbedPacingEvery: 5,
			EmbedPacingDelay: time.Millisecond,
			ReadyMaxAttempts: 3,
			ReadyBaseDelay:   time.Millisecond,
		},
		RetrieverConfig: &biz.RetrieverConfig{TopK: 10},
		GeneratorConfig: &biz.GeneratorConfig{
			SystemPrompt: "Collection: {{collection}}\nContext:\n{{context}}\nQuestion: {{question}}",
		},
	}
}

func TestIngestPastedContent(t *testing.T) {
	memStore := store.NewMemoryStore()
	embed := &mockEmbedProvider{dim: 8}
	svc := newService(memStore, embed, &mockChatProvider{answer: "ok"}, testConfig())

	content := strings.Repeat("This sentence carries enough substance to survive filtering. ", 10)
	report, err := svc.Ingest(context.Background(), &extract.Input{Content: content})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(report.Collection, "pasted_content_"))
	assert.Equal(t, "uploaded file/content", report.Source)
	assert.Equal(t, 1, report.DocumentsLoaded)
	assert.Greater(t, report.ChunksCreated, 0)
	assert.Equal(t, report.ChunksCreated, report.VectorsCreated)
	assert.Equal(t, report.VectorsCreated, report.VectorsUpserted)
	assert.Zero(t, report.FailedEmbeddings)
	assert.True(t, strings.HasSuffix(report.ContentPreview, "..."))
	assert.NotEmpty(t, report.Timestamp)

	count, err := memStore.Stats(context.Background(), report.Collection)
	require.NoError(t, err)
	assert.Equal(t, int64(report.VectorsUpserted), count)
}

func TestIngestShortContentSingleChunk(t *testing.T) {
	// 500 字符且无分段符的内容恰好产出一个块、一个向量。
	memStore := store.NewMemoryStore()
	svc := newService(memStore, &mockEmbedProvider{dim: 8}, &mockChatProvider{}, testConfig())

	content := strings.Repeat("Retrieval quality depends on consistent chunking. ", 10)
	require.Len(t, content, 500)

	report, err := svc.Ingest(context.Background(), &extract.Input{Content: content})
	require.NoError(t, err)

	assert.Equal(t, 1, report.ChunksCreated)
	assert.Equal(t, 1, report.VectorsCreated)
	assert.Equal(t, 1, report.VectorsUpserted)
	assert.Zero(t, report.FailedEmbeddings)

	count, err := memStore.Stats(context.Background(), report.Collection)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestIngestReusesExistingCollection(t *testing.T) {
	// 第二次入库同名集合时复用已有集合，向量数量累加。
	memStore := store.NewMemoryStore()
	svc := newService(memStore, &mockEmbedProvider{dim: 8}, &mockChatProvider{}, testConfig())
	ctx := context.Background()

	first := strings.Repeat("The opening report establishes the collection contents. ", 10)
	report1, err := svc.Ingest(ctx, &extract.Input{Content: first, Collection: "quarterly_notes"})
	require.NoError(t, err)
	require.Equal(t, "quarterly_notes", report1.Collection)

	count1, err := memStore.Stats(ctx, "quarterly_notes")
	require.NoError(t, err)
	require.Positive(t, count1)

	second := strings.Repeat("A follow-up report extends the same collection later on. ", 10)
	report2, err := svc.Ingest(ctx, &extract.Input{Content: second, Collection: "quarterly_notes"})
	require.NoError(t, err)
	assert.Equal(t, "quarterly_notes", report2.Collection)

	count2, err := memStore.Stats(ctx, "quarterly_notes")
	require.NoError(t, err)
	assert.Equal(t, count1+int64(report2.VectorsUpserted), count2)

	dim, err := memStore.Dimension(ctx, "quarterly_notes")
	require.NoError(t, err)
	assert.Equal(t, 8, dim)
}

func TestIngestTooShortContent(t *testing.T) {
	svc := newService(store.NewMemoryStore(), &mockEmbedProvider{dim: 8}, &mockChatProvider{}, testConfig())

	_, err := svc.Ingest(context.Background(), &extract.Input{Content: "tiny"})
	assert.ErrorIs(t, err, errors.ErrNoSubstantialContent)
}

func TestIngestPartialEmbedFailure(t *testing.T) {
	// 12 个块，第 6 个嵌入失败：11 个向量入库，流程不中断。
	cfg := testConfig()
	cfg.IngesterConfig.ChunkSize = 80
	cfg.IngesterConfig.ChunkOverlap = 0

	memStore := store.NewMemoryStore()
	embed := &mockEmbedProvider{dim: 4, failOn: map[int]bool{5: true}}
	svc := newService(memStore, embed, &mockChatProvider{}, cfg)

	paragraphs := make([]string, 12)
	for i := range paragraphs {
		paragraphs[i] = fmt.Sprintf("Paragraph %02d holds sixty plus characters of meaningful text body.", i)
	}
	content := strings.Join(paragraphs, "\n\n")

	report, err := svc.Ingest(context.Background(), &extract.Input{Content: content})
	require.NoError(t, err)

	assert.Equal(t, 12, report.ChunksCreated)
	assert.Equal(t, 11, report.VectorsCreated)
	assert.Equal(t, 11, report.VectorsUpserted)
	assert.Equal(t, 1, report.FailedEmbeddings)
}

func TestIngestAllEmbedsFail(t *testing.T) {
	failAll := map[int]bool{}
	for i := 0; i < 64; i++ {
		failAll[i] = true
	}
	svc := newService(store.NewMemoryStore(), &mockEmbedProvider{dim: 4, failOn: failAll}, &mockChatProvider{}, testConfig())

	content := strings.Repeat("Plenty of content that will chunk but never embed correctly. ", 10)
	_, err := svc.Ingest(context.Background(), &extract.Input{Content: content})
	assert.ErrorIs(t, err, errors.ErrNoValidVectors)
}

func TestIngestDimensionMismatch(t *testing.T) {
	memStore := store.NewMemoryStore()
	_, err := memStore.EnsureCollection(context.Background(), &store.CollectionConfig{
		Name:      "existing",
		Dimension: 4,
	})
	require.NoError(t, err)

	svc := newService(memStore, &mockEmbedProvider{dim: 8}, &mockChatProvider{}, testConfig())

	content := strings.Repeat("Substantial content destined for a mismatched collection. ", 10)
	_, err = svc.Ingest(context.Background(), &extract.Input{
		Content:    content,
		Collection: "existing",
	})
	assert.ErrorIs(t, err, errors.ErrDimensionMismatch)
}

func TestQueryAnswersWithDedupedSources(t *testing.T) {
	memStore := store.NewMemoryStore()
	ctx := context.Background()
	seedCollection(t, memStore, "docs", []*store.Chunk{
		{Content: "exact chunk", Source: "report.pdf", Embedding: unit(1)},
		{Content: "close chunk", Source: "report.pdf", Embedding: unit(0.9)},
		{Content: "medium chunk", Source: "notes.txt", Embedding: unit(0.7)},
		{Content: "weak chunk", Source: "", Embedding: unit(0.3)},
	})

	chat := &mockChatProvider{answer: "the answer"}
	svc := newService(memStore, &mockEmbedProvider{dim: 3}, chat, testConfig())

	result, err := svc.Query(ctx, "docs", "what is in the report?")
	require.NoError(t, err)

	assert.Equal(t, "docs", result.Collection)
	assert.Equal(t, "what is in the report?", result.Question)
	assert.Equal(t, "the answer", result.Answer)
	assert.True(t, result.ContextFound)
	assert.NotEmpty(t, result.Timestamp)

	// report.pdf 出现两次，保留分数更高的第一条；空来源回退为集合名。
	require.Len(t, result.Sources, 3)
	assert.Equal(t, 3, result.TotalSources)

	assert.Equal(t, "report.pdf", result.Sources[0].Source)
	assert.Equal(t, "high", result.Sources[0].Relevance)
	assert.InDelta(t, 1.0, result.Sources[0].Score, 0.001)

	assert.Equal(t, "notes.txt", result.Sources[1].Source)
	assert.Equal(t, "medium", result.Sources[1].Relevance)

	assert.Equal(t, "docs", result.Sources[2].Source)
	assert.Equal(t, "low", result.Sources[2].Relevance)

	// 提示词中的占位符被替换。
	assert.Contains(t, chat.lastPrompt, "Collection: docs")
	assert.Contains(t, chat.lastPrompt, "exact chunk")
	assert.Contains(t, chat.lastPrompt, "what is in the report?")
	assert.NotContains(t, chat.lastPrompt, "{{")
}

func TestQueryEmptyCollectionStillAnswers(t *testing.T) {
	memStore := store.NewMemoryStore()
	seedCollection(t, memStore, "empty", nil)

	svc := newService(memStore, &mockEmbedProvider{dim: 3}, &mockChatProvider{answer: "nothing found"}, testConfig())

	result, err := svc.Query(context.Background(), "empty", "anything?")
	require.NoError(t, err)
	assert.False(t, result.ContextFound)
	assert.Zero(t, result.TotalSources)
	assert.Empty(t, result.Sources)
}

func TestQueryEmbedFailure(t *testing.T) {
	memStore := store.NewMemoryStore()
	seedCollection(t, memStore, "docs", nil)

	embed := &mockEmbedProvider{dim: 3, failOn: map[int]bool{0: true}}
	svc := newService(memStore, embed, &mockChatProvider{}, testConfig())

	_, err := svc.Query(context.Background(), "docs", "question")
	assert.ErrorIs(t, err, errors.ErrQuestionEmbedFailed)
}

func TestQueryRetrievalFailure(t *testing.T) {
	// 集合不存在时检索失败。
	svc := newService(store.NewMemoryStore(), &mockEmbedProvider{dim: 3}, &mockChatProvider{}, testConfig())

	_, err := svc.Query(context.Background(), "missing", "question")
	assert.ErrorIs(t, err, errors.ErrRetrievalFailed)
}

func TestQueryChatFailure(t *testing.T) {
	memStore := store.NewMemoryStore()
	seedCollection(t, memStore, "docs", []*store.Chunk{
		{Content: "chunk", Source: "a.pdf", Embedding: unit(1)},
	})

	chat := &mockChatProvider{err: fmt.Errorf("upstream 503")}
	svc := newService(memStore, &mockEmbedProvider{dim: 3}, chat, testConfig())

	_, err := svc.Query(context.Background(), "docs", "question")
	assert.ErrorIs(t, err, errors.ErrProviderUnavailable)
}

func TestStats(t *testing.T) {
	memStore := store.NewMemoryStore()
	seedCollection(t, memStore, "docs", []*store.Chunk{
		{Content: "chunk", Source: "a.pdf", Embedding: unit(1)},
	})

	svc := newService(memStore, &mockEmbedProvider{dim: 3}, &mockChatProvider{}, testConfig())

	stats, err := svc.Stats(context.Background(), "docs")
	require.NoError(t, err)
	assert.Equal(t, "docs", stats["collection"])
	assert.Equal(t, int64(1), stats["vector_count"])
	assert.Equal(t, "mock-embed", stats["embed_provider"])
	assert.Equal(t, "mock-chat", stats["chat_provider"])
}

func TestDeleteCollection(t *testing.T) {
	memStore := store.NewMemoryStore()
	seedCollection(t, memStore, "docs", []*store.Chunk{
		{Content: "chunk", Source: "a.pdf", Embedding: unit(1)},
	})

	svc := newService(memStore, &mockEmbedProvider{dim: 3}, &mockChatProvider{}, testConfig())
	ctx := context.Background()

	require.NoError(t, svc.DeleteCollection(ctx, "docs"))

	_, err := memStore.Stats(ctx, "docs")
	assert.Error(t, err)

	assert.Error(t, svc.DeleteCollection(ctx, "docs"))
}

func seedCollection(t *testing.T, s *store.MemoryStore, name string, chunks []*store.Chunk) {
	t.Helper()
	ctx := context.Background()
	_, err := s.EnsureCollection(ctx, &store.CollectionConfig{Name: name, Dimension: 3})
	require.NoError(t, err)
	if len(chunks) > 0 {
		_, err = s.Upsert(ctx, name, chunks)
		require.NoError(t, err)
	}
}

// unit 构造与 [1,0,0] 的余弦相似度为 cos 的单位向量。
func unit(cos float64) []float32 {
	if cos >= 1 {
		return []float32{1, 0, 0}
	}
	sin := math.Sqrt(1 - cos*cos)
	return []float32{float32(cos), float32(sin), 0}
}
