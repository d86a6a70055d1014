// ABOUTME: Application wiring shared by the HTTP server, the MCP server and the CLI
// ABOUTME: Builds storage, providers, caches and the core pipeline from a Config
package app

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/websiTester/ba-agent-sub000/internal/cache"
	"github.com/websiTester/ba-agent-sub000/internal/config"
	"github.com/websiTester/ba-agent-sub000/internal/core"
	"github.com/websiTester/ba-agent-sub000/internal/llm"
	"github.com/websiTester/ba-agent-sub000/internal/metrics"
	"github.com/websiTester/ba-agent-sub000/internal/storage/memory"
	"github.com/websiTester/ba-agent-sub000/internal/storage/sqlite"
)

// Backend is a core.Store that can be health checked and closed
type Backend interface {
	core.Store
	Ping(ctx context.Context) error
	Close() error
}

// App holds every wired component
type App struct {
	Config    *config.Config
	Store     Backend
	Metrics   *metrics.Metrics
	Embedder  core.Embedder
	Model     core.Completer
	Catalog   *core.AgentCatalog
	Registry  *core.AgentRegistry
	Memory    *core.ConversationMemory
	Retriever *core.Retriever
	Ingestor  *core.Ingestor
	Router    *core.Router

	redis   *cache.Redis
	watcher *core.AgentWatcher
	logger  *log.Logger
}

// New wires an App. Without an OpenAI key, embeddings fall back to the local
// hash embedder and chat turns fail with a credential error.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{
		Config:  cfg,
		Metrics: metrics.New(),
		logger:  log.New(log.Writer(), "[App] ", log.LstdFlags),
	}

	store, err := openStore(cfg.Storage)
	if err != nil {
		return nil, err
	}
	a.Store = store

	var client *llm.OpenAIClient
	if cfg.HasOpenAIKey() {
		client, err = llm.NewOpenAIClientWithConfig(&llm.ClientConfig{
			APIKey:            cfg.OpenAI.APIKey,
			BaseURL:           cfg.OpenAI.BaseURL,
			ChatModel:         cfg.OpenAI.ChatModel,
			EmbeddingModel:    cfg.OpenAI.EmbeddingModel,
			MaxRetries:        cfg.OpenAI.MaxRetries,
			RetryDelay:        cfg.OpenAI.RetryDelay,
			Timeout:           cfg.OpenAI.Timeout,
			RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
			Burst:             cfg.OpenAI.Burst,
		})
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		a.Model = client
	} else {
		a.logger.Println("Warning: OPENAI_API_KEY not set - using local embeddings; chat is unavailable")
	}

	embedder, err := a.buildEmbedder(ctx, client)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.Embedder = embedder

	a.Catalog, err = core.NewAgentCatalog(cfg.Agents.Dir)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to load agent definitions: %w", err)
	}
	a.Memory = core.NewConversationMemory(store, cfg.Memory.HistoryLimit)
	a.Registry = core.NewAgentRegistry(a.Catalog, a.Memory, a.Metrics)
	a.Retriever = core.NewRetriever(embedder, store, cfg.Retrieval.DefaultLimit, cfg.Retrieval.MaxLimit, a.Metrics)

	indexer := core.NewIndexer(embedder, store, cfg.Embedding.Concurrency, a.Metrics)
	a.Ingestor = core.NewIngestor(store, core.NewExtractor(), core.NewChunkEngine(a.Splitter()), indexer,
		core.IngestorConfig{Async: cfg.Ingest.Async, MaxUploadBytes: cfg.Ingest.MaxUploadBytes}, a.Metrics)

	routerCfg := core.RouterConfig{
		ChatTimeout:       cfg.Timeouts.Chat,
		LongTaskTimeout:   cfg.Timeouts.LongTask,
		RetrievalLimit:    cfg.Retrieval.DefaultLimit,
		MaxAttachedTokens: cfg.Agents.MaxAttachedTokens,
		Temperature:       float32(cfg.OpenAI.Temperature),
		MaxTokens:         cfg.OpenAI.MaxTokens,
	}
	a.Router = core.NewRouter(a.Registry, a.Memory, a.Retriever, a.Model, routerCfg, a.Metrics)

	return a, nil
}

func openStore(cfg config.StorageConfig) (Backend, error) {
	switch cfg.Driver {
	case "memory":
		return memory.New(), nil
	default:
		path := cfg.Path
		if path == "" {
			path = sqlite.DefaultDBPath()
		}
		store, err := sqlite.NewStorageWithPath(path)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func (a *App) buildEmbedder(ctx context.Context, client *llm.OpenAIClient) (core.Embedder, error) {
	cfg := a.Config
	var base cache.Embedder
	switch {
	case cfg.Embedding.Provider == "hash":
		base = llm.NewHashEmbedder(cfg.Embedding.Dimension)
	case client != nil:
		base = client
	case cfg.Embedding.Provider == "openai":
		return nil, errors.New("embedding.provider is openai but OPENAI_API_KEY is not set")
	default:
		base = llm.NewHashEmbedder(cfg.Embedding.Dimension)
	}

	var vc cache.VectorCache
	switch cfg.Cache.Backend {
	case "none":
		return base, nil
	case "redis":
		r, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			TTL:      cfg.Cache.TTL,
		})
		if err != nil {
			return nil, err
		}
		a.redis = r
		vc = r
	default:
		vc = cache.NewMemory(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	}

	cached := cache.NewCachedEmbedder(base, vc)
	cached.OnLookup = a.Metrics.ObserveCache
	return cached, nil
}

// Splitter picks the model splitter when a chat model is available
func (a *App) Splitter() core.Splitter {
	switch a.Config.Chunker.Mode {
	case "heading":
		return core.HeadingSplitter{}
	case "model":
		if a.Model != nil {
			return core.NewModelSplitter(a.Model)
		}
		a.logger.Println("Warning: chunker.mode is model but no chat model is configured - using heading splitter")
		return core.HeadingSplitter{}
	default:
		if a.Model != nil {
			return core.NewModelSplitter(a.Model)
		}
		return core.HeadingSplitter{}
	}
}

// WatchAgents reloads agent definitions on file changes until ctx ends.
// It is a no-op when no agents directory is configured.
func (a *App) WatchAgents(ctx context.Context) error {
	if a.Catalog.Dir() == "" || !a.Config.Agents.Watch {
		return nil
	}
	w, err := core.NewAgentWatcher(a.Catalog, a.Registry)
	if err != nil {
		return err
	}
	a.watcher = w
	go w.Run(ctx)
	return nil
}

// Health pings the store and, when configured, the redis cache
func (a *App) Health(ctx context.Context) error {
	if err := a.Store.Ping(ctx); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if a.redis != nil {
		if err := a.redis.Ping(ctx); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}
	return nil
}

// Close stops background work and releases connections
func (a *App) Close() error {
	if a.Ingestor != nil {
		a.Ingestor.Shutdown()
	}
	var errs []error
	if a.watcher != nil {
		errs = append(errs, a.watcher.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	}
	return errors.Join(errs...)
}
