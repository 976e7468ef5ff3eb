package biz

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/docchat/internal/docchat/extract"
	"github.com/kart-io/docchat/internal/docchat/store"
	"github.com/kart-io/docchat/internal/model"
	"github.com/kart-io/docchat/internal/pkg/textutil"
	"github.com/kart-io/docchat/pkg/llm"
	"github.com/kart-io/docchat/pkg/utils/errors"
)

// contentPreviewLength 响应中内容预览的最大字符数。
const contentPreviewLength = 200

// IngesterConfig 入库器配置。
type IngesterConfig struct {
	// ChunkSize 文本块大小（Unicode 字符数）。
	ChunkSize int
	// ChunkOverlap 相邻块的重叠大小。
	ChunkOverlap int
	// MinChunkLength 低于该长度的块被丢弃。
	MinChunkLength int
	// UpsertBatchSize 写入向量库的批大小。
	UpsertBatchSize int
	// EmbedPacingEvery 每成功嵌入多少块后暂停一次。
	EmbedPacingEvery int
	// EmbedPacingDelay 嵌入节流的暂停时长。
	EmbedPacingDelay time.Duration
	// ReadyMaxAttempts 等待新集合就绪的最大轮询次数。
	ReadyMaxAttempts int
	// ReadyBaseDelay 就绪轮询的初始间隔，按指数退避递增。
	ReadyBaseDelay time.Duration
}

// Ingester 负责文档入库：切分、嵌入、建集合、批量写入。
type Ingester struct {
	store         store.VectorStore
	embedProvider llm.EmbeddingProvider
	config        *IngesterConfig
	now           func() time.Time
}

// NewIngester 创建入库器实例。
func NewIngester(vectorStore store.VectorStore, embedProvider llm.EmbeddingProvider, config *IngesterConfig) *Ingester {
	return &Ingester{
		store:         vectorStore,
		embedProvider: embedProvider,
		config:        config,
		now:           time.Now,
	}
}

// embeddedChunk 记录一个成功嵌入的文档块。
type embeddedChunk struct {
	chunk  *store.Chunk
	vector []float32
}

// Ingest 将抽取结果切分、嵌入并写入向量库，返回入库报告。
// 单个块的嵌入失败不会终止流程，失败数量记入报告。
func (i *Ingester) Ingest(ctx context.Context, result *extract.Result) (*model.IngestReport, error) {
	chunks := i.chunk(result)
	logger.Infow("chunking completed",
		"collection", result.Collection,
		"documents", len(result.Documents),
		"chunks", len(chunks),
	)

	if len(chunks) == 0 {
		return nil, errors.ErrNoSubstantialContent
	}

	embedded, failed, err := i.embed(ctx, chunks)
	if err != nil {
		return nil, err
	}
	if len(embedded) == 0 {
		return nil, errors.ErrNoValidVectors.WithCause(fmt.Errorf("%d chunks failed to embed", failed))
	}

	dimension := len(embedded[0].vector)
	if err := i.provisionCollection(ctx, result.Collection, dimension); err != nil {
		return nil, err
	}

	upserted := i.upsert(ctx, result.Collection, embedded)

	report := &model.IngestReport{
		Message:          "Content uploaded & embedded successfully",
		Collection:       result.Collection,
		Source:           "uploaded file/content",
		DocumentsLoaded:  len(result.Documents),
		ChunksCreated:    len(chunks),
		VectorsCreated:   len(embedded),
		VectorsUpserted:  upserted,
		FailedEmbeddings: failed,
		ContentPreview:   textutil.Preview(result.Documents[0].Content, contentPreviewLength),
		Timestamp:        i.now().UTC().Format(time.RFC3339),
	}
	if result.SourceURL != "" {
		report.Message = fmt.Sprintf("Website content from %s successfully processed and embedded", result.SourceURL)
		report.Source = result.SourceURL
	}
	return report, nil
}

// chunk 切分全部文档并过滤过短的块。
func (i *Ingester) chunk(result *extract.Result) []*store.Chunk {
	timestamp := i.now().UTC().Format(time.RFC3339)

	var chunks []*store.Chunk
	for _, doc := range result.Documents {
		pieces := textutil.SplitRecursive(doc.Content, i.config.ChunkSize, i.config.ChunkOverlap, textutil.DefaultSeparators)
		for _, piece := range pieces {
			if len(strings.TrimSpace(piece)) < i.config.MinChunkLength {
				continue
			}
			chunks = append(chunks, &store.Chunk{
				Content:   piece,
				Source:    doc.Source,
				Type:      doc.Type,
				Domain:    doc.Domain,
				Title:     doc.Title,
				Path:      doc.Path,
				Page:      doc.Page,
				Timestamp: timestamp,
			})
		}
	}
	return chunks
}

// embed 逐块生成嵌入向量。块序号只对成功嵌入的块连续分配，
// 每成功若干块后暂停一次以避免触发供应商限流。
func (i *Ingester) embed(ctx context.Context, chunks []*store.Chunk) ([]*embeddedChunk, int, error) {
	var embedded []*embeddedChunk
	failed := 0

	for idx, chunk := range chunks {
		if strings.TrimSpace(chunk.Content) == "" {
			continue
		}

		vector, err := i.embedProvider.EmbedSingle(ctx, chunk.Content)
		if err != nil {
			if ctx.Err() != nil {
				return nil, failed, ctx.Err()
			}
			logger.Warnw("failed to embed chunk", "index", idx, "error", err.Error())
			failed++
			continue
		}

		chunk.ChunkIndex = len(embedded)
		embedded = append(embedded, &embeddedChunk{chunk: chunk, vector: vector})

		if i.config.EmbedPacingEvery > 0 && len(embedded)%i.config.EmbedPacingEvery == 0 {
			select {
			case <-ctx.Done():
				return nil, failed, ctx.Err()
			case <-time.After(i.config.EmbedPacingDelay):
			}
		}
	}
	return embedded, failed, nil
}

// provisionCollection 确保集合存在且维度匹配。
// 新建集合时按指数退避轮询直到集合就绪。
func (i *Ingester) provisionCollection(ctx context.Context, collection string, dimension int) error {
	created, err := i.store.EnsureCollection(ctx, &store.CollectionConfig{
		Name:        collection,
		Description: "document chat collection",
		Dimension:   dimension,
	})
	if err != nil {
		return errors.ErrIngestFailed.WithCause(err)
	}

	if !created {
		existing, err := i.store.Dimension(ctx, collection)
		if err != nil {
			return errors.ErrIngestFailed.WithCause(err)
		}
		if existing != dimension {
			return errors.ErrDimensionMismatch.WithCause(
				fmt.Errorf("collection %s has dimension %d, embeddings have %d", collection, existing, dimension))
		}
		return nil
	}

	logger.Infow("created collection", "collection", collection, "dimension", dimension)
	return i.awaitReady(ctx, collection)
}

// awaitReady 轮询集合加载状态，间隔按指数退避递增。
func (i *Ingester) awaitReady(ctx context.Context, collection string) error {
	delay := i.config.ReadyBaseDelay
	for attempt := 0; attempt < i.config.ReadyMaxAttempts; attempt++ {
		ready, err := i.store.Ready(ctx, collection)
		if err != nil {
			return errors.ErrIngestFailed.WithCause(err)
		}
		if ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return errors.ErrIngestFailed.WithCause(fmt.Errorf("collection %s not ready after %d attempts", collection, i.config.ReadyMaxAttempts))
}

// upsert 分批写入向量，失败的批次记录后跳过。
func (i *Ingester) upsert(ctx context.Context, collection string, embedded []*embeddedChunk) int {
	batchSize := i.config.UpsertBatchSize
	if batchSize <= 0 {
		batchSize = len(embedded)
	}

	upserted := 0
	for start := 0; start < len(embedded); start += batchSize {
		end := start + batchSize
		if end > len(embedded) {
			end = len(embedded)
		}

		batch := make([]*store.Chunk, 0, end-start)
		for _, e := range embedded[start:end] {
			e.chunk.Embedding = e.vector
			batch = append(batch, e.chunk)
		}

		if _, err := i.store.Upsert(ctx, collection, batch); err != nil {
			logger.Warnw("failed to upsert batch",
				"collection", collection,
				"batch_start", start,
				"batch_end", end,
				"error", err.Error(),
			)
			continue
		}
		upserted += len(batch)
	}
	return upserted
}
