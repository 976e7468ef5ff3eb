package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kart-io/docchat/internal/pkg/textutil"
)

// MemoryStore 实现内存向量存储，用于开发与测试环境。
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
	nextID      int64
}

type memoryCollection struct {
	dimension int
	chunks    []*Chunk
	ids       []int64
}

// NewMemoryStore 创建内存存储实例。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]*memoryCollection),
	}
}

// EnsureCollection 确保集合存在。
func (s *MemoryStore) EnsureCollection(_ context.Context, config *CollectionConfig) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[config.Name]; ok {
		return false, nil
	}
	s.collections[config.Name] = &memoryCollection{dimension: config.Dimension}
	return true, nil
}

// Dimension 返回集合的向量维度。
func (s *MemoryStore) Dimension(_ context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return 0, fmt.Errorf("collection %s not found", collection)
	}
	return coll.dimension, nil
}

// Ready 内存集合创建即可用。
func (s *MemoryStore) Ready(_ context.Context, collection string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.collections[collection]
	return ok, nil
}

// Upsert 批量写入文档块。
func (s *MemoryStore) Upsert(_ context.Context, collection string, chunks []*Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", collection)
	}

	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
		if len(chunk.Embedding) != coll.dimension {
			return nil, fmt.Errorf("embedding dimension %d does not match collection dimension %d",
				len(chunk.Embedding), coll.dimension)
		}
		s.nextID++
		coll.chunks = append(coll.chunks, chunk)
		coll.ids = append(coll.ids, s.nextID)
		ids[i] = fmt.Sprintf("%d", s.nextID)
	}
	return ids, nil
}

// Search 按余弦相似度检索最相近的文档块。
func (s *MemoryStore) Search(_ context.Context, collection string, embedding []float32, topK int) ([]*SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("collection %s not found", collection)
	}

	results := make([]*SearchResult, 0, len(coll.chunks))
	for i, chunk := range coll.chunks {
		score := textutil.CosineSimilarity(embedding, chunk.Embedding)
		results = append(results, &SearchResult{
			ID:         fmt.Sprintf("%d", coll.ids[i]),
			Content:    chunk.Content,
			Source:     chunk.Source,
			Type:       chunk.Type,
			Title:      chunk.Title,
			Page:       chunk.Page,
			ChunkIndex: chunk.ChunkIndex,
			Score:      float32(score),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Stats 返回集合中的向量数量。
func (s *MemoryStore) Stats(_ context.Context, collection string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, ok := s.collections[collection]
	if !ok {
		return 0, fmt.Errorf("collection %s not found", collection)
	}
	return int64(len(coll.chunks)), nil
}

// DropCollection 删除集合及其全部向量。
func (s *MemoryStore) DropCollection(_ context.Context, collection string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection]; !ok {
		return fmt.Errorf("collection %s not found", collection)
	}
	delete(s.collections, collection)
	return nil
}

// Close 释放全部集合。
func (s *MemoryStore) Close(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.collections = make(map[string]*memoryCollection)
	return nil
}

// 确保 MemoryStore 实现了 VectorStore 接口。
var _ VectorStore = (*MemoryStore)(nil)
