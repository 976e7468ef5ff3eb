package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docchat/internal/docchat/biz"
	"github.com/kart-io/docchat/internal/docchat/handler"
	"github.com/kart-io/docchat/internal/docchat/router"
	"github.com/kart-io/docchat/internal/docchat/session"
	"github.com/kart-io/docchat/internal/docchat/store"
	"github.com/kart-io/docchat/internal/pkg/middleware"
	"github.com/kart-io/docchat/pkg/id"
	"github.com/kart-io/docchat/pkg/llm"
)

type stubEmbedProvider struct {
	dim  int
	fail bool
}

func (s *stubEmbedProvider) Name() string { return "stub-embed" }

func (s *stubEmbedProvider) EmbedSingle(_ context.Context, _ string) ([]float32, error) {
	if s.fail {
		return nil, fmt.Errorf("embed backend down")
	}
	v := make([]float32, s.dim)
	v[0] = 1
	return v, nil
}

func (s *stubEmbedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for range texts {
		v, err := s.EmbedSingle(ctx, "")
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

type stubChatProvider struct {
	answer string
	fail   bool
}

func (s *stubChatProvider) Name() string { return "stub-chat" }

func (s *stubChatProvider) Generate(_ context.Context, _, _ string) (string, error) {
	if s.fail {
		return "", fmt.Errorf("chat backend down")
	}
	return s.answer, nil
}

func (s *stubChatProvider) Chat(ctx context.Context, _ []llm.Message) (string, error) {
	return s.Generate(ctx, "", "")
}

type testEnv struct {
	engine   *gin.Engine
	store    *store.MemoryStore
	sessions session.Store
}

func newTestEnv(t *testing.T, embed *stubEmbedProvider, chat *stubChatProvider) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	memStore := store.NewMemoryStore()
	svc := biz.NewDocChatService(memStore, embed, chat, &biz.ServiceConfig{
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
			SystemPrompt: "{{collection}} {{context}} {{question}}",
		},
	})

	sessions := session.NewMemoryStore()
	idgen := id.NewGenerator("ulid")
	// nil pool keeps session persistence synchronous for assertions below.
	h := handler.NewDocChatHandler(svc, sessions, idgen, nil, &handler.Config{
		MaxUploadSize: 32 << 20,
		QueryTimeout:  5 * time.Second,
	})

	return &testEnv{
		engine:   router.New(h, id.NewGenerator("uuid")),
		store:    memStore,
		sessions: sessions,
	}
}

func (e *testEnv) doJSON(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, &stubEmbedProvider{dim: 4}, &stubChatProvider{answer: "ok"})

	w := env.doJSON(http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXRequestID))
}

func TestIngestPasted(t *testing.T) {
	env := newTestEnv(t, &stubEmbedProvider{dim: 4}, &stubChatProvider{answer: "ok"})

	content := strings.Repeat("Pasted material with more than enough substance to index. ", 10)
	w := env.doJSON(http.MethodPost, "/api/v1/ingest", map[string]string{"content": content}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Contains(t, body["collection"], "pasted_content_")
	assert.Equal(t, "uploaded file/content", body["source"])
	assert.EqualValues(t, 1, body["documentsLoaded"])
	assert.Greater(t, body["vectorsCreated"], float64(0))
	assert.EqualValues(t, 0, body["failedEmbeddings"])
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderXSessionID))
}

func TestIngestUpdatesSession(t *testing.T) {
	env := newTestEnv(t, &stubEmbedProvider{dim: 4}, &stubChatProvider{answer: "ok"})

	content := strings.Repeat("Session tracked content with plenty of length to index. ", 10)
	headers := map[string]string{middleware.HeaderXSessionID: "sess-fixed"}
	w := env.doJSON(http.MethodPost, "/api/v1/ingest", map[string]string{"content": content}, headers)
	require.Equal(t, http.StatusOK, w.Code)

	state, err := env.sessions.Load(context.Background(), "sess-fixed")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(state.CollectionName, "pasted_content_"))
	require.Len(t, state.Contents, 1)
	assert.Equal(t, "content-1", state.Contents[0].Name)
}

func TestIngestEmptyBody(t *testing.T) {
	env := newTestEnv(t, &stubEmbedProvider{dim: 4}, &stubChatProvider{answer: "ok"})

	w := env.doJSON(http.MethodPost, "/api/v1/ingest", map[string]string{}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "No file, content, or URL provided", body["error"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestIngestInvalidURL(t *testing.T) {
	env := newTestEnv(t, &stubEmbedProvider{dim: 4}, &stubChatProvider{answer: "ok"})

	w := env.doJSON(http.MethodPost, "/api/v1/ingest", map[string]string{"url": "not a url"}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid URL format", decode(t, w)["error"])
}

func TestIngestMultipartWithoutFile(t *testing.T) {
	env := newTestEnv(t, &stubEmbedProvider{dim: 4}, &stubChatProvider{answer: "ok"})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("note", "no file here"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No file uploaded", decode(t, w)["error"])
}

func TestChatMissingParams(t *testing.T) {
	env := newTestEnv(t, &stubEmbedProvider{dim: 4}, &stubChatProvider{answer: "ok"})

	tests := []struct {
		name string
		body map[string]string
	}{
		{"both missing", map[string]string{}},
		{"question missing", map[string]string{"collectionName": "docs"}},
		{"collection missing", map[string]string{"question": "hi"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.doJSON(http.MethodPost, "/api/v1/chat", tt.body, nil)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Question and collectionName are required", decode(t, w)["error"])
		})
	}
}

func TestChatAnswers(t *testing.T) {
	env := newTestEnv(t, &stubEmbedProvider{dim: 3}, &stubChatProvider{answer: "grounded answer"})

	ctx := context.Background()
	_, err := env.store.EnsureCollection(ctx, &store.CollectionConfig{Name: "docs", Dimension: 3})
	require.NoError(t, err)
	_, err = env.store.Upsert(ctx, "docs", []*store.Chunk{
		{Content: "relevant chunk", Source: "guide.pdf", Embedding: []float32{1, 0, 0}},
	})
	require.NoError(t, err)

	w := env.doJSON(http.MethodPost, "/api/v1/chat", map[string]string{
		"question":       "what does the guide say?",
		"collectionName": "docs",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "docs", body["collection"])
	assert.Equal(t, "grounded answer", body["answer"])
	assert.Equal(t, true, body["context_found"])
	assert.EqualValues(t, 1, body["total_sources"])

	sources, ok := body["sources"].([]any)
	require.True(t, ok)
	require.Len(t, sources, 1)
	first := sources[0].(map[string]any)
	assert.Equal(t, "guide.pdf", first["source"])
	assert.Equal(t, "high", first["relevance"])
}

func TestChatProviderUnavailable(t *testing.T) {
	env := newTestEnv(t, &stubEmbedProvider{dim: 3}, &stubChatProvider{fail: true})

	ctx := context.Background()
	_, err := env.store.EnsureCollection(ctx, &store.CollectionConfig{Name: "docs", Dimension: 3})
	require.NoError(t, err)
	_, err = env.store.Upsert(ctx, "docs", []*store.Chunk{
		{Content: "chunk", Source: "a.pdf", Embedding: []float32{1, 0, 0}},
	})
	require.NoError(t, err)

	w := env.doJSON(http.MethodPost, "/api/v1/chat", map[string]string{
		"question":       "hello",
		"collectionName": "docs",
	}, nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "AI service temporarily unavailable. Please try again in a moment.", decode(t, w)["error"])
}

func TestChatRetrievalFailure(t *testing.T) {
	env := newTestEnv(t, &stubEmbedProvider{dim: 3}, &stubChatProvider{answer: "ok"})

	w := env.doJSON(http.MethodPost, "/api/v1/chat", map[string]string{
		"question":       "hello",
		"collectionName": "missing",
	}, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Unable to search your document collection. Please try again.", decode(t, w)["error"])
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, &stubEmbedProvider{dim: 4}, &stubChatProvider{answer: "ok"})
	headers := map[string]string{middleware.HeaderXSessionID: "sess-life"}

	// Fresh session is empty.
	w := env.doJSON(http.MethodGet, "/api/v1/session", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "", body["collectionName"])

	// Ingest populates it.
	content := strings.Repeat("Stateful content carrying ample length for the chunker. ", 10)
	w = env.doJSON(http.MethodPost, "/api/v1/ingest", map[string]string{"content": content}, headers)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.doJSON(http.MethodGet, "/api/v1/session", nil, headers)
	body = decode(t, w)
	assert.Contains(t, body["collectionName"], "pasted_content_")

	// Reset clears it.
	w = env.doJSON(http.MethodDelete, "/api/v1/session", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.doJSON(http.MethodGet, "/api/v1/session", nil, headers)
	body = decode(t, w)
	assert.Equal(t, "", body["collectionName"])
}

func TestSaveSessionReplacesState(t *testing.T) {
	env := newTestEnv(t, &stubEmbedProvider{dim: 4}, &stubChatProvider{answer: "ok"})
	headers := map[string]string{middleware.HeaderXSessionID: "sess-put"}

	w := env.doJSON(http.MethodPut, "/api/v1/session", map[string]any{
		"collectionName": "report_pdf",
		"plan":           "pro",
	}, headers)
	require.Equal(t, http.StatusOK, w.Code)

	state, err := env.sessions.Load(context.Background(), "sess-put")
	require.NoError(t, err)
	assert.Equal(t, "report_pdf", state.CollectionName)
	assert.Equal(t, "pro", state.Plan)

	// The plan choice survives a read back through the API.
	w = env.doJSON(http.MethodGet, "/api/v1/session", nil, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pro", decode(t, w)["plan"])
}

func TestSessionPreflightAllowsPut(t *testing.T) {
	env := newTestEnv(t, &stubEmbedProvider{dim: 4}, &stubChatProvider{answer: "ok"})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/session", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)

	w := httptest.NewRecorder()
	env.engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PUT")
}

func TestDeleteCollection(t *testing.T) {
	env := newTestEnv(t, &stubEmbedProvider{dim: 3}, &stubChatProvider{answer: "ok"})

	ctx := context.Background()
	_, err := env.store.EnsureCollection(ctx, &store.CollectionConfig{Name: "docs", Dimension: 3})
	require.NoError(t, err)
	_, err = env.store.Upsert(ctx, "docs", []*store.Chunk{
		{Content: "chunk", Source: "a.pdf", Embedding: []float32{1, 0, 0}},
	})
	require.NoError(t, err)

	w := env.doJSON(http.MethodDelete, "/api/v1/collections/docs", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Collection deleted", body["message"])
	assert.Equal(t, "docs", body["collection"])

	_, err = env.store.Stats(ctx, "docs")
	assert.Error(t, err)
}

func TestDeleteCollectionUnknown(t *testing.T) {
	env := newTestEnv(t, &stubEmbedProvider{dim: 3}, &stubChatProvider{answer: "ok"})

	w := env.doJSON(http.MethodDelete, "/api/v1/collections/nope", nil, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to delete collection", decode(t, w)["error"])
}

func TestStatsUnknownCollection(t *testing.T) {
	env := newTestEnv(t, &stubEmbedProvider{dim: 4}, &stubChatProvider{answer: "ok"})

	w := env.doJSON(http.MethodGet, "/api/v1/collections/nope/stats", nil, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Statistics unavailable", decode(t, w)["error"])
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, &stubEmbedProvider{dim: 3}, &stubChatProvider{answer: "ok"})

	ctx := context.Background()
	_, err := env.store.EnsureCollection(ctx, &store.CollectionConfig{Name: "docs", Dimension: 3})
	require.NoError(t, err)
	_, err = env.store.Upsert(ctx, "docs", []*store.Chunk{
		{Content: "chunk", Source: "a.pdf", Embedding: []float32{1, 0, 0}},
	})
	require.NoError(t, err)

	w := env.doJSON(http.MethodGet, "/api/v1/collections/docs/stats", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "docs", body["collection"])
	assert.EqualValues(t, 1, body["vector_count"])
	assert.Equal(t, "stub-embed", body["embed_provider"])
}
