package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/docchat/internal/docchat/store"
)

func newTestCollection(t *testing.T, s *store.MemoryStore, name string, dim int) {
	t.Helper()
	created, err := s.EnsureCollection(context.Background(), &store.CollectionConfig{
		Name:      name,
		Dimension: dim,
	})
	require.NoError(t, err)
	require.True(t, created)
}

func TestMemoryStoreEnsureCollection(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()

	created, err := s.EnsureCollection(ctx, &store.CollectionConfig{Name: "docs", Dimension: 4})
	require.NoError(t, err)
	assert.True(t, created)

	// 重复创建不报错，返回未新建。
	created, err = s.EnsureCollection(ctx, &store.CollectionConfig{Name: "docs", Dimension: 4})
	require.NoError(t, err)
	assert.False(t, created)

	dim, err := s.Dimension(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, 4, dim)

	ready, err := s.Ready(ctx, "docs")
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestMemoryStoreDimensionNotFound(t *testing.T) {
	s := store.NewMemoryStore()
	_, err := s.Dimension(context.Background(), "missing")
	assert.Error(t, err)
}

func TestMemoryStoreUpsertAndStats(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	newTestCollection(t, s, "docs", 3)

	ids, err := s.Upsert(ctx, "docs", []*store.Chunk{
		{Content: "first", Source: "a.pdf", Embedding: []float32{1, 0, 0}},
		{Content: "second", Source: "a.pdf", Embedding: []float32{0, 1, 0}},
	})
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	assert.NotEqual(t, ids[0], ids[1])

	count, err := s.Stats(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestMemoryStoreUpsertDimensionMismatch(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	newTestCollection(t, s, "docs", 3)

	_, err := s.Upsert(ctx, "docs", []*store.Chunk{
		{Content: "bad", Embedding: []float32{1, 0}},
	})
	assert.Error(t, err)
}

func TestMemoryStoreSearchRanksByCosineSimilarity(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	newTestCollection(t, s, "docs", 3)

	_, err := s.Upsert(ctx, "docs", []*store.Chunk{
		{Content: "exact match", Source: "a.pdf", ChunkIndex: 0, Embedding: []float32{1, 0, 0}},
		{Content: "orthogonal", Source: "b.pdf", ChunkIndex: 1, Embedding: []float32{0, 1, 0}},
		{Content: "close match", Source: "c.pdf", ChunkIndex: 2, Embedding: []float32{0.9, 0.1, 0}},
	})
	require.NoError(t, err)

	results, err := s.Search(ctx, "docs", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "exact match", results[0].Content)
	assert.Equal(t, "close match", results[1].Content)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestMemoryStoreSearchTopKLargerThanCollection(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	newTestCollection(t, s, "docs", 2)

	_, err := s.Upsert(ctx, "docs", []*store.Chunk{
		{Content: "only one", Embedding: []float32{1, 0}},
	})
	require.NoError(t, err)

	results, err := s.Search(ctx, "docs", []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestMemoryStoreSearchUnknownCollection(t *testing.T) {
	s := store.NewMemoryStore()
	_, err := s.Search(context.Background(), "missing", []float32{1}, 5)
	assert.Error(t, err)
}

func TestMemoryStoreUpsertContinuesIDs(t *testing.T) {
	// 同一集合多次写入时记录 ID 持续递增，不因批次重置。
	s := store.NewMemoryStore()
	ctx := context.Background()
	newTestCollection(t, s, "docs", 2)

	first, err := s.Upsert(ctx, "docs", []*store.Chunk{
		{Content: "one", Embedding: []float32{1, 0}},
		{Content: "two", Embedding: []float32{0, 1}},
	})
	require.NoError(t, err)

	second, err := s.Upsert(ctx, "docs", []*store.Chunk{
		{Content: "three", Embedding: []float32{1, 0}},
	})
	require.NoError(t, err)

	require.Len(t, first, 2)
	require.Len(t, second, 1)
	assert.Equal(t, "1", first[0])
	assert.Equal(t, "2", first[1])
	assert.Equal(t, "3", second[0])
}

func TestMemoryStoreDropCollection(t *testing.T) {
	s := store.NewMemoryStore()
	ctx := context.Background()
	newTestCollection(t, s, "docs", 2)

	_, err := s.Upsert(ctx, "docs", []*store.Chunk{
		{Content: "one", Embedding: []float32{1, 0}},
	})
	require.NoError(t, err)

	require.NoError(t, s.DropCollection(ctx, "docs"))

	_, err = s.Stats(ctx, "docs")
	assert.Error(t, err)
	assert.Error(t, s.DropCollection(ctx, "docs"))
}
