package dochub

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/kart-io/version"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/dochub/internal/dochub/biz"
	"github.com/kart-io/dochub/internal/dochub/handler"
	"github.com/kart-io/dochub/internal/dochub/router"
	"github.com/kart-io/dochub/internal/dochub/store"
	"github.com/kart-io/dochub/internal/model"
	"github.com/kart-io/dochub/pkg/component/milvus"
	"github.com/kart-io/dochub/pkg/llm"

	// 导入 LLM 供应商以自动注册
	_ "github.com/kart-io/dochub/pkg/llm/deepseek"
	_ "github.com/kart-io/dochub/pkg/llm/gemini"
	_ "github.com/kart-io/dochub/pkg/llm/ollama"
	_ "github.com/kart-io/dochub/pkg/llm/openai"
)

// Run builds the document hub from the options and serves it until a
// termination signal arrives.
func Run(opts *Options) error {
	// 1. 初始化日志
	opts.Log.AddInitialField("service.name", appName)
	opts.Log.AddInitialField("service.version", version.Get().GitVersion)
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting document hub service...")

	// 2. 初始化 Milvus 客户端和向量存储
	milvusClient, err := milvus.New(opts.Milvus)
	if err != nil {
		return fmt.Errorf("failed to initialize milvus: %w", err)
	}
	defer func() { _ = milvusClient.Close(context.Background()) }()

	vectorStore := store.NewMilvusStore(milvusClient, opts.Hub.Collection, opts.Hub.EmbeddingDim)
	if err := vectorStore.EnsureReady(context.Background()); err != nil {
		return fmt.Errorf("failed to prepare vector store: %w", err)
	}
	logger.Infow("Vector store initialized",
		"collection", opts.Hub.Collection,
		"dimension", opts.Hub.EmbeddingDim,
	)

	// 3. 初始化 Redis 客户端（用于缓存）
	var answerCache *biz.AnswerCache
	if opts.Cache.Enabled {
		redisClient := goredis.NewClient(&goredis.Options{
			Addr:         opts.Cache.Redis.Addr(),
			Password:     opts.Cache.Redis.Password,
			DB:           opts.Cache.Redis.Database,
			MaxRetries:   opts.Cache.Redis.MaxRetries,
			PoolSize:     opts.Cache.Redis.PoolSize,
			DialTimeout:  opts.Cache.Redis.DialTimeout,
			ReadTimeout:  opts.Cache.Redis.ReadTimeout,
			WriteTimeout: opts.Cache.Redis.WriteTimeout,
		})

		// 连接失败降级为禁用缓存，不阻塞启动
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warnw("failed to connect to redis, cache will be disabled", "error", err.Error())
			_ = redisClient.Close()
		} else {
			answerCache = biz.NewAnswerCache(redisClient, &biz.AnswerCacheConfig{
				Enabled:   true,
				TTL:       opts.Cache.TTL,
				KeyPrefix: opts.Cache.KeyPrefix,
			})
			defer func() { _ = redisClient.Close() }()
			logger.Infow("Answer cache initialized", "addr", opts.Cache.Redis.Addr(), "ttl", opts.Cache.TTL)
		}
	} else {
		logger.Info("Answer cache is disabled")
	}

	// 4. 初始化 LLM 供应商
	embedProvider, err := llm.NewEmbeddingProvider(opts.Embedding.Provider, opts.Embedding.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to initialize embedding provider: %w", err)
	}
	logger.Infow("Embedding provider initialized",
		"provider", opts.Embedding.Provider,
		"model", opts.Embedding.Model,
	)

	chatProvider, err := llm.NewChatProvider(opts.Chat.Provider, opts.Chat.ToConfigMap())
	if err != nil {
		return fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("Chat provider initialized",
		"provider", opts.Chat.Provider,
		"model", opts.Chat.Model,
	)

	// 5. 初始化 Biz 层
	ingestor := biz.NewIngestor(vectorStore, embedProvider, &biz.IngestorConfig{
		ChunkSize:    opts.Hub.ChunkSize,
		ChunkOverlap: opts.Hub.ChunkOverlap,
	})

	answerer := biz.NewAnswerer(vectorStore, embedProvider, chatProvider, &biz.AnswererConfig{
		TopK:                opts.Hub.TopK,
		SystemPrompt:        opts.Hub.SystemPrompt,
		DefaultOutputFormat: model.OutputFormat(opts.Hub.DefaultOutputFormat),
		DefaultModelID:      opts.Chat.ModelID(),
		ChatConfig:          opts.Chat.ToConfigMap(),
	})

	relevance := biz.NewRelevance(relevanceStrategy(opts, embedProvider))

	hubService := biz.NewHubService(ingestor, answerer, relevance, answerCache, vectorStore)
	logger.Infow("Document hub service initialized",
		"cache.enabled", answerCache != nil,
		"relevance.strategy", opts.Hub.RelevanceStrategy,
	)

	// 6. 初始化 Handler 层和路由
	models := []handler.ModelInfo{
		{ID: opts.Chat.ModelID(), Provider: opts.Chat.Provider, Default: true},
	}
	hubHandler := handler.NewHubHandler(hubService, models)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), RequestID(), AccessLog())
	if len(opts.HTTP.CORSAllowOrigins) > 0 {
		engine.Use(CORS(opts.HTTP.CORSAllowOrigins))
	}
	router.Register(engine, hubHandler)

	// 7. 启动 HTTP 服务器
	srv := &http.Server{
		Addr:         opts.HTTP.Addr,
		Handler:      engine,
		ReadTimeout:  opts.HTTP.ReadTimeout,
		WriteTimeout: opts.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", opts.HTTP.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case sig := <-quit:
		logger.Infow("Shutting down...", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

// relevanceStrategy 根据配置选择文件相关性策略。
func relevanceStrategy(opts *Options, embedder llm.EmbeddingProvider) biz.RelevanceStrategy {
	if opts.Hub.RelevanceStrategy == "embedding" {
		return biz.NewEmbeddingStrategy(embedder, opts.Hub.RelevanceThreshold)
	}
	return biz.NewKeywordStrategy()
}
