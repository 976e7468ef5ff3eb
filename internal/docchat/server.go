// Package docchat provides the document chat server implementation.
package docchat

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kart-io/logger"

	"github.com/kart-io/docchat/internal/docchat/biz"
	"github.com/kart-io/docchat/internal/docchat/handler"
	"github.com/kart-io/docchat/internal/docchat/router"
	"github.com/kart-io/docchat/internal/docchat/session"
	"github.com/kart-io/docchat/internal/docchat/store"
	"github.com/kart-io/docchat/pkg/app"
	"github.com/kart-io/docchat/pkg/component/milvus"
	"github.com/kart-io/docchat/pkg/id"
	"github.com/kart-io/docchat/pkg/llm"
	"github.com/kart-io/docchat/pkg/pool"

	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/docchat/pkg/llm/gemini"
	_ "github.com/kart-io/docchat/pkg/llm/ollama"
	_ "github.com/kart-io/docchat/pkg/llm/openai"

	httpopts "github.com/kart-io/docchat/pkg/options/http"
	llmopts "github.com/kart-io/docchat/pkg/options/llm"
	logopts "github.com/kart-io/docchat/pkg/options/logger"
	milvusopts "github.com/kart-io/docchat/pkg/options/milvus"
	pipelineopts "github.com/kart-io/docchat/pkg/options/pipeline"
	redisopts "github.com/kart-io/docchat/pkg/options/redis"
	storeopts "github.com/kart-io/docchat/pkg/options/store"
)

// Name is the name of the application.
const Name = "docchat"

// Config contains application-related configurations.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	MilvusOptions    *milvusopts.Options
	RedisOptions     *redisopts.Options
	StoreOptions     *storeopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	ChatOptions      *llmopts.ProviderOptions
	PipelineOptions  *pipelineopts.Options
}

// Server represents the docchat server.
type Server struct {
	srv         *http.Server
	cfg         *Config
	sessionPool *pool.Pool
	storeClose  func()
	sessClose   func()
}

// NewServer initializes and returns a new Server instance.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	printBanner(cfg)

	// 1. 初始化日志
	cfg.LogOptions.AddInitialField("service.name", Name)
	cfg.LogOptions.AddInitialField("service.version", app.GetVersion())
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting docchat service...")

	// 2. 初始化向量存储
	vectorStore, storeClose, err := cfg.newVectorStore()
	if err != nil {
		return nil, err
	}
	logger.Infow("Vector store initialized", "driver", cfg.StoreOptions.Driver)

	// 3. 初始化会话存储，Redis 不可用时降级为内存存储
	sessions, sessClose := cfg.newSessionStore(ctx)

	// 4. 初始化 LLM 供应商
	embedProvider, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	logger.Infow("Embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model,
	)

	chatProvider, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("Chat provider initialized",
		"provider", cfg.ChatOptions.Provider,
		"model", cfg.ChatOptions.Model,
	)

	// 5. 初始化 Biz 层
	serviceConfig := &biz.ServiceConfig{
		IngesterConfig: &biz.IngesterConfig{
			ChunkSize:        cfg.PipelineOptions.ChunkSize,
			ChunkOverlap:     cfg.PipelineOptions.ChunkOverlap,
			MinChunkLength:   cfg.PipelineOptions.MinChunkLength,
			UpsertBatchSize:  cfg.PipelineOptions.UpsertBatchSize,
			EmbedPacingEvery: cfg.PipelineOptions.EmbedPacingEvery,
			EmbedPacingDelay: cfg.PipelineOptions.EmbedPacingDelay,
			ReadyMaxAttempts: cfg.PipelineOptions.ReadyMaxAttempts,
			ReadyBaseDelay:   cfg.PipelineOptions.ReadyBaseDelay,
		},
		RetrieverConfig: &biz.RetrieverConfig{
			TopK: cfg.PipelineOptions.TopK,
		},
		GeneratorConfig: &biz.GeneratorConfig{
			SystemPrompt: cfg.PipelineOptions.SystemPrompt,
		},
	}
	docchatService := biz.NewDocChatService(vectorStore, embedProvider, chatProvider, serviceConfig)
	logger.Info("DocChat service initialized")

	// 6. 初始化后台任务池（会话持久化）
	sessionPool, err := pool.NewPool("session", pool.BackgroundPool, pool.BackgroundPoolConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create session pool: %w", err)
	}

	// 7. 初始化 Handler 层，会话 ID 使用 ULID，请求 ID 使用 UUID
	docchatHandler := handler.NewDocChatHandler(docchatService, sessions, id.NewGenerator("ulid"), sessionPool, &handler.Config{
		MaxUploadSize: cfg.HTTPOptions.MaxUploadSize,
		QueryTimeout:  cfg.PipelineOptions.QueryTimeout,
	})
	logger.Info("Handler layer initialized")

	// 8. 初始化 HTTP 服务器
	engine := router.New(docchatHandler, id.NewGenerator("uuid"))
	srv := &http.Server{
		Addr:         cfg.HTTPOptions.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.HTTPOptions.ReadTimeout,
		WriteTimeout: cfg.HTTPOptions.WriteTimeout,
		IdleTimeout:  cfg.HTTPOptions.IdleTimeout,
	}

	logger.Info("DocChat service is ready")
	return &Server{
		srv:         srv,
		cfg:         cfg,
		sessionPool: sessionPool,
		storeClose:  storeClose,
		sessClose:   sessClose,
	}, nil
}

// newVectorStore 根据 store.driver 创建向量存储。
func (cfg *Config) newVectorStore() (store.VectorStore, func(), error) {
	if cfg.StoreOptions.Driver == storeopts.DriverMemory {
		return store.NewMemoryStore(), func() {}, nil
	}

	milvusClient, err := milvus.New(cfg.MilvusOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize milvus: %w", err)
	}
	milvusStore := store.NewMilvusStore(milvusClient)
	return milvusStore, func() { _ = milvusClient.Close(context.Background()) }, nil
}

// newSessionStore 创建会话存储。Redis 连接失败只降级，不阻止启动。
func (cfg *Config) newSessionStore(_ context.Context) (session.Store, func()) {
	redisStore, err := session.NewRedisStore(cfg.RedisOptions)
	if err != nil {
		logger.Warnw("failed to connect to redis, falling back to in-memory sessions",
			"addr", cfg.RedisOptions.Addr(),
			"error", err.Error(),
		)
		memStore := session.NewMemoryStore()
		return memStore, func() { _ = memStore.Close() }
	}

	logger.Infow("Redis session store initialized", "addr", cfg.RedisOptions.Addr())
	return redisStore, func() { _ = redisStore.Close() }
}

// Run starts the server and listens for termination signals.
func (s *Server) Run(ctx context.Context) error {
	defer func() {
		if s.sessionPool != nil {
			// 等待在途的会话持久化任务完成后再关闭
			if err := s.sessionPool.ReleaseTimeout(s.cfg.HTTPOptions.ShutdownTimeout); err != nil {
				logger.Warnw("session pool did not drain in time", "error", err.Error())
			}
		}
		if s.storeClose != nil {
			s.storeClose()
		}
		if s.sessClose != nil {
			s.sessClose()
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.HTTPOptions.ShutdownTimeout)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Info("Server exited")
	return nil
}

func printBanner(cfg *Config) {
	fmt.Printf("Starting %s...\n", Name)
	fmt.Printf("  Embedding: %s (%s)\n", cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.Model)
	fmt.Printf("  Chat: %s (%s)\n", cfg.ChatOptions.Provider, cfg.ChatOptions.Model)
	fmt.Printf("  Vector store: %s\n", cfg.StoreOptions.Driver)
}
