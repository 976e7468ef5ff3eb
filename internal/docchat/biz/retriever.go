package biz

import (
	"context"

	"github.com/kart-io/docchat/internal/docchat/store"
	"github.com/kart-io/docchat/pkg/llm"
	"github.com/kart-io/docchat/pkg/utils/errors"
)

// RetrieverConfig 检索器配置。
type RetrieverConfig struct {
	// TopK 返回的结果数量。
	TopK int
}

// Retriever 负责将问题嵌入并检索最相关的文档块。
type Retriever struct {
	store         store.VectorStore
	embedProvider llm.EmbeddingProvider
	config        *RetrieverConfig
}

// NewRetriever 创建检索器实例。
func NewRetriever(vectorStore store.VectorStore, embedProvider llm.EmbeddingProvider, config *RetrieverConfig) *Retriever {
	return &Retriever{
		store:         vectorStore,
		embedProvider: embedProvider,
		config:        config,
	}
}

// Retrieve 嵌入问题并在指定集合中做相似度检索。
func (r *Retriever) Retrieve(ctx context.Context, collection, question string) ([]*store.SearchResult, error) {
	vector, err := r.embedProvider.EmbedSingle(ctx, question)
	if err != nil {
		return nil, errors.ErrQuestionEmbedFailed.WithCause(err)
	}

	results, err := r.store.Search(ctx, collection, vector, r.config.TopK)
	if err != nil {
		return nil, errors.ErrRetrievalFailed.WithCause(err)
	}
	return results, nil
}
