// Package store 提供文档向量的存储与检索抽象。
package store

import (
	"context"
)

// Chunk 表示一个待入库的文档块。
type Chunk struct {
	// Content 文档块文本内容。
	Content string
	// Source 来源标识（文件名、URL 或 pasted）。
	Source string
	// Type 来源类型（pdf、text、website）。
	Type string
	// Domain 网页来源的域名，其他来源为空。
	Domain string
	// Title 网页标题或文档标题。
	Title string
	// Path 网页来源的路径，其他来源为空。
	Path string
	// Page PDF 来源的页码，从 1 开始，其他来源为 0。
	Page int
	// ChunkIndex 文档块在本次入库中的序号。
	ChunkIndex int
	// Timestamp 入库时间，RFC3339 格式。
	Timestamp string
	// Embedding 嵌入向量。
	Embedding []float32
}

// SearchResult 表示一次相似度检索命中。
type SearchResult struct {
	// ID 向量记录 ID。
	ID string
	// Content 文档块文本内容。
	Content string
	// Source 来源标识。
	Source string
	// Type 来源类型。
	Type string
	// Title 文档标题。
	Title string
	// Page 页码。
	Page int
	// ChunkIndex 文档块序号。
	ChunkIndex int
	// Score 相似度分数。
	Score float32
}

// CollectionConfig 集合配置。
type CollectionConfig struct {
	// Name 集合名称。
	Name string
	// Description 集合描述。
	Description string
	// Dimension 向量维度。
	Dimension int
}

// VectorStore 定义向量存储接口。
type VectorStore interface {
	// EnsureCollection 确保集合存在，返回本次是否新建了集合。
	EnsureCollection(ctx context.Context, config *CollectionConfig) (bool, error)

	// Dimension 返回已有集合的向量维度。
	Dimension(ctx context.Context, collection string) (int, error)

	// Ready 返回集合是否已加载并可提供检索。
	Ready(ctx context.Context, collection string) (bool, error)

	// Upsert 批量写入文档块，返回生成的记录 ID。
	Upsert(ctx context.Context, collection string, chunks []*Chunk) ([]string, error)

	// Search 向量相似度搜索。
	Search(ctx context.Context, collection string, embedding []float32, topK int) ([]*SearchResult, error)

	// Stats 返回集合中的向量数量。
	Stats(ctx context.Context, collection string) (int64, error)

	// DropCollection 删除集合及其全部向量。
	DropCollection(ctx context.Context, collection string) error

	// Close 关闭连接。
	Close(ctx context.Context) error
}
