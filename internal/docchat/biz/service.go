package biz

import (
	"context"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/docchat/internal/docchat/extract"
	"github.com/kart-io/docchat/internal/docchat/store"
	"github.com/kart-io/docchat/internal/model"
	"github.com/kart-io/docchat/internal/pkg/textutil"
	"github.com/kart-io/docchat/pkg/llm"
)

// Service 定义文档问答服务接口。
type Service interface {
	// Ingest 抽取输入内容并入库，返回入库报告。
	Ingest(ctx context.Context, in *extract.Input) (*model.IngestReport, error)
	// Query 在指定集合上回答问题。
	Query(ctx context.Context, collection, question string) (*model.QueryResult, error)
	// Stats 返回集合统计信息。
	Stats(ctx context.Context, collection string) (map[string]any, error)
	// DeleteCollection 删除集合及其全部向量。
	DeleteCollection(ctx context.Context, collection string) error
}

// ServiceConfig 服务配置。
type ServiceConfig struct {
	IngesterConfig  *IngesterConfig
	RetrieverConfig *RetrieverConfig
	GeneratorConfig *GeneratorConfig
}

// DocChatService 组合抽取、入库、检索与生成，提供完整的文档问答服务。
type DocChatService struct {
	extractor     *extract.Extractor
	ingester      *Ingester
	retriever     *Retriever
	generator     *Generator
	store         store.VectorStore
	embedProvider llm.EmbeddingProvider
	chatProvider  llm.ChatProvider
	now           func() time.Time
}

// NewDocChatService 创建文档问答服务实例。
func NewDocChatService(
	vectorStore store.VectorStore,
	embedProvider llm.EmbeddingProvider,
	chatProvider llm.ChatProvider,
	config *ServiceConfig,
) *DocChatService {
	return &DocChatService{
		extractor:     extract.NewExtractor(),
		ingester:      NewIngester(vectorStore, embedProvider, config.IngesterConfig),
		retriever:     NewRetriever(vectorStore, embedProvider, config.RetrieverConfig),
		generator:     NewGenerator(chatProvider, config.GeneratorConfig),
		store:         vectorStore,
		embedProvider: embedProvider,
		chatProvider:  chatProvider,
		now:           time.Now,
	}
}

// Ingest 抽取输入内容并入库。
func (s *DocChatService) Ingest(ctx context.Context, in *extract.Input) (*model.IngestReport, error) {
	result, err := s.extractor.Extract(ctx, in)
	if err != nil {
		return nil, err
	}

	report, err := s.ingester.Ingest(ctx, result)
	if err != nil {
		return nil, err
	}

	logger.Infow("ingestion completed",
		"collection", report.Collection,
		"vectors_created", report.VectorsCreated,
		"vectors_upserted", report.VectorsUpserted,
		"failed_embeddings", report.FailedEmbeddings,
	)
	return report, nil
}

// Query 在指定集合上回答问题。
func (s *DocChatService) Query(ctx context.Context, collection, question string) (*model.QueryResult, error) {
	results, err := s.retriever.Retrieve(ctx, collection, question)
	if err != nil {
		return nil, err
	}

	answer, err := s.generator.GenerateAnswer(ctx, collection, question, results)
	if err != nil {
		return nil, err
	}

	sources := dedupSources(collection, results)

	return &model.QueryResult{
		Collection:   collection,
		Question:     question,
		Answer:       answer,
		Sources:      sources,
		ContextFound: len(results) > 0,
		TotalSources: len(sources),
		Timestamp:    s.now().UTC().Format(time.RFC3339),
	}, nil
}

// dedupSources 按来源去重。检索结果按分数降序排列，
// 保留首次出现的条目即保留该来源的最高分。
func dedupSources(collection string, results []*store.SearchResult) []model.SourceRef {
	seen := make(map[string]struct{}, len(results))
	sources := make([]model.SourceRef, 0, len(results))

	for _, r := range results {
		source := r.Source
		if source == "" {
			source = collection
		}
		if _, ok := seen[source]; ok {
			continue
		}
		seen[source] = struct{}{}

		score := float64(r.Score)
		sources = append(sources, model.SourceRef{
			Source:    source,
			Score:     textutil.RoundScore(score),
			Relevance: textutil.RelevanceTier(score),
		})
	}
	return sources
}

// Stats 返回集合统计信息。
func (s *DocChatService) Stats(ctx context.Context, collection string) (map[string]any, error) {
	count, err := s.store.Stats(ctx, collection)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"collection":     collection,
		"vector_count":   count,
		"embed_provider": s.embedProvider.Name(),
		"chat_provider":  s.chatProvider.Name(),
	}, nil
}

// DeleteCollection 删除集合及其全部向量。
func (s *DocChatService) DeleteCollection(ctx context.Context, collection string) error {
	if err := s.store.DropCollection(ctx, collection); err != nil {
		return err
	}
	logger.Infow("collection deleted", "collection", collection)
	return nil
}

// 确保 DocChatService 实现了 Service 接口。
var _ Service = (*DocChatService)(nil)
