package store

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus/client/v2/entity"

	"github.com/kart-io/docchat/pkg/component/milvus"
)

// MilvusStore 实现基于 Milvus 的向量存储。
type MilvusStore struct {
	client *milvus.Client
}

// NewMilvusStore 创建 Milvus 存储实例。
func NewMilvusStore(client *milvus.Client) *MilvusStore {
	return &MilvusStore{client: client}
}

// EnsureCollection 确保集合存在，不存在时按余弦度量创建。
func (s *MilvusStore) EnsureCollection(ctx context.Context, config *CollectionConfig) (bool, error) {
	exists, err := s.client.HasCollection(ctx, config.Name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	schema := &milvus.CollectionSchema{
		Name:        config.Name,
		Description: config.Description,
		Dimension:   config.Dimension,
		Metric:      entity.COSINE,
		MetaFields: []milvus.MetaField{
			{Name: "content", DataType: entity.FieldTypeVarChar, MaxLen: 65535},
			{Name: "source", DataType: entity.FieldTypeVarChar, MaxLen: 1024},
			{Name: "type", DataType: entity.FieldTypeVarChar, MaxLen: 32},
			{Name: "domain", DataType: entity.FieldTypeVarChar, MaxLen: 255},
			{Name: "title", DataType: entity.FieldTypeVarChar, MaxLen: 512},
			{Name: "path", DataType: entity.FieldTypeVarChar, MaxLen: 1024},
			{Name: "timestamp", DataType: entity.FieldTypeVarChar, MaxLen: 64},
			{Name: "page", DataType: entity.FieldTypeInt64},
			{Name: "chunk_index", DataType: entity.FieldTypeInt64},
		},
	}
	if err := s.client.CreateCollection(ctx, schema); err != nil {
		return false, err
	}
	return true, nil
}

// Dimension 返回集合的向量维度。
func (s *MilvusStore) Dimension(ctx context.Context, collection string) (int, error) {
	return s.client.Dimension(ctx, collection)
}

// Ready 返回集合是否已加载完成。
func (s *MilvusStore) Ready(ctx context.Context, collection string) (bool, error) {
	return s.client.Ready(ctx, collection)
}

// Upsert 批量写入文档块到 Milvus。
func (s *MilvusStore) Upsert(ctx context.Context, collection string, chunks []*Chunk) ([]string, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, len(chunks))
	metadata := map[string][]any{
		"content":     make([]any, len(chunks)),
		"source":      make([]any, len(chunks)),
		"type":        make([]any, len(chunks)),
		"domain":      make([]any, len(chunks)),
		"title":       make([]any, len(chunks)),
		"path":        make([]any, len(chunks)),
		"timestamp":   make([]any, len(chunks)),
		"page":        make([]any, len(chunks)),
		"chunk_index": make([]any, len(chunks)),
	}

	for i, chunk := range chunks {
		embeddings[i] = chunk.Embedding
		metadata["content"][i] = chunk.Content
		metadata["source"][i] = chunk.Source
		metadata["type"][i] = chunk.Type
		metadata["domain"][i] = chunk.Domain
		metadata["title"][i] = chunk.Title
		metadata["path"][i] = chunk.Path
		metadata["timestamp"][i] = chunk.Timestamp
		metadata["page"][i] = int64(chunk.Page)
		metadata["chunk_index"][i] = int64(chunk.ChunkIndex)
	}

	data := &milvus.InsertData{
		Embeddings: embeddings,
		Metadata:   metadata,
	}

	ids, err := s.client.Insert(ctx, collection, data)
	if err != nil {
		return nil, fmt.Errorf("failed to insert into milvus: %w", err)
	}

	stringIDs := make([]string, len(ids))
	for i, id := range ids {
		stringIDs[i] = fmt.Sprintf("%d", id)
	}
	return stringIDs, nil
}

// Search 执行向量相似度搜索。
func (s *MilvusStore) Search(ctx context.Context, collection string, embedding []float32, topK int) ([]*SearchResult, error) {
	outputFields := []string{"content", "source", "type", "title", "page", "chunk_index"}
	results, err := s.client.Search(ctx, collection, embedding, topK, outputFields)
	if err != nil {
		return nil, fmt.Errorf("failed to search milvus: %w", err)
	}

	searchResults := make([]*SearchResult, len(results))
	for i, r := range results {
		sr := &SearchResult{
			ID:    fmt.Sprintf("%d", r.ID),
			Score: r.Score,
		}
		if v, ok := r.Metadata["content"].(string); ok {
			sr.Content = v
		}
		if v, ok := r.Metadata["source"].(string); ok {
			sr.Source = v
		}
		if v, ok := r.Metadata["type"].(string); ok {
			sr.Type = v
		}
		if v, ok := r.Metadata["title"].(string); ok {
			sr.Title = v
		}
		if v, ok := r.Metadata["page"].(int64); ok {
			sr.Page = int(v)
		}
		if v, ok := r.Metadata["chunk_index"].(int64); ok {
			sr.ChunkIndex = int(v)
		}
		searchResults[i] = sr
	}

	return searchResults, nil
}

// Stats 返回集合中的向量数量。
func (s *MilvusStore) Stats(ctx context.Context, collection string) (int64, error) {
	return s.client.GetCollectionStats(ctx, collection)
}

// DropCollection 删除 Milvus 集合及其全部向量。
func (s *MilvusStore) DropCollection(ctx context.Context, collection string) error {
	exists, err := s.client.HasCollection(ctx, collection)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("collection %s not found", collection)
	}
	return s.client.DropCollection(ctx, collection)
}

// Close 关闭 Milvus 连接。
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// 确保 MilvusStore 实现了 VectorStore 接口。
var _ VectorStore = (*MilvusStore)(nil)
