package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yungbote/llm-gateway/internal/completion"
	"github.com/yungbote/llm-gateway/internal/config"
	"github.com/yungbote/llm-gateway/internal/contextbuild"
	"github.com/yungbote/llm-gateway/internal/embed"
	"github.com/yungbote/llm-gateway/internal/gemini"
	"github.com/yungbote/llm-gateway/internal/handlers"
	"github.com/yungbote/llm-gateway/internal/ingest"
	"github.com/yungbote/llm-gateway/internal/logger"
	"github.com/yungbote/llm-gateway/internal/observability"
	"github.com/yungbote/llm-gateway/internal/parse"
	"github.com/yungbote/llm-gateway/internal/retrieve"
	"github.com/yungbote/llm-gateway/internal/search"
	"github.com/yungbote/llm-gateway/internal/server"
	"github.com/yungbote/llm-gateway/internal/store"
	"github.com/yungbote/llm-gateway/internal/summarize"
	"github.com/yungbote/llm-gateway/internal/tokenizer"
	"github.com/yungbote/llm-gateway/internal/toolsel"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Config
	log.Info("Loading configuration from main...")
	cfg := config.Load(log)

	// Observability
	metrics := observability.NewMetrics()
	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: cfg.ServerName,
		Environment: logMode,
		Version:     cfg.Version,
	})

	// Store. Missing credentials never block startup: an unconfigured
	// client reports the gap on every call instead.
	log.Info("Setting up store from main...")
	st := store.NewClient(cfg.PostgrestBaseURL, cfg.PostgrestJWTSecret, log)
	if cfg.PostgrestBaseURL == "" || cfg.PostgrestJWTSecret == "" {
		log.Warn("POSTGREST_BASE_URL/POSTGREST_JWT_SECRET not set, persistence disabled")
	}

	// Gemini powers parsing, embedding, classification, and
	// summarization. Without a key those stages degrade per call.
	gem := gemini.NewClient(cfg.GoogleAPIKey, log)
	if !gem.Configured() {
		log.Warn("GOOGLE_API_KEY not set, parsing/embedding/summarization disabled")
	}

	// Embedding, with an optional Redis cache in front.
	embedder := embed.NewGemini(gem, cfg.EmbedModel, cfg.EmbedDimensions, log)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		embedder = embed.WithCache(embedder, rdb, log)
	}

	// Token counting and summarization
	counter := tokenizer.NewRegistry(log)
	summarizer := summarize.New(gem, counter, log)
	builder := contextbuild.New(counter, summarizer, log)

	// Tool selection
	classifier := toolsel.NewClassifier(gem, log)
	topK := toolsel.NewTopKSelector(gem, log)

	// Enrichment
	searchers := []search.ConfiguredSearcher{
		search.NewTavily(cfg.TavilyAPIKey, log),
		search.NewLinkup(cfg.LinkupAPIKey, log),
	}
	unified := search.NewUnified(cfg.SearchPreference, searchers, search.NewYouTube(log), search.NewFirecrawl(cfg.FirecrawlAPIKey, log), log)

	// Ingestion and retrieval
	parsers := parse.NewRegistry(gem, log)
	fileService := ingest.NewFileService(st, parsers, cfg.UploadDir, cfg.MaxUploadBytes, log)
	vectorizer := ingest.NewVectorizer(st, parsers, embedder, metrics, cfg.UploadDir, cfg.ChunkSize, cfg.ChunkOverlap, cfg.EmbedConcurrency, log)
	retriever := retrieve.New(st, embedder, topK, cfg.SimilarityThreshold, log)

	// Completion handlers. Providers without a credential are simply
	// not registered, so their requests answer 400/501 at the handler.
	log.Info("Setting up completion handlers from main...")
	registry := completion.NewRegistry()
	if cfg.DeepseekAPIKey != "" {
		deepseek := completion.NewDeepseekClient(cfg.DeepseekAPIKey, metrics, log)
		registry.Register("deepseek", "deepseek-chat",
			completion.NewChatHandler(st, deepseek, "deepseek-chat", cfg.CostPerToken, log))
		registry.Register("deepseek", "deepseek-reasoner",
			completion.NewReasonerHandler(completion.ReasonerDeps{
				Store:        st,
				LLM:          deepseek,
				Vectorizer:   vectorizer,
				Retriever:    retriever,
				Classifier:   classifier,
				Enricher:     unified,
				Builder:      builder,
				Model:        "deepseek-reasoner",
				MaxTokens:    cfg.ContextWindow,
				CostPerToken: cfg.CostPerToken,
			}, log))
	} else {
		log.Warn("DEEPSEEK_API_KEY not set, deepseek completions disabled")
	}

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		ServiceName:        cfg.ServerName,
		Version:            cfg.Version,
		Metrics:            metrics,
		CompletionsHandler: handlers.NewCompletionsHandler(log, registry, fileService),
		FilesHandler:       handlers.NewFilesHandler(log, fileService, metrics),
		StatusHandler:      handlers.NewStatusHandler(log, metrics),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server listening", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("Server shutdown was not clean", "error", err)
	}
	if otelShutdown != nil {
		if err := otelShutdown(shutdownCtx); err != nil {
			log.Warn("Trace exporter shutdown was not clean", "error", err)
		}
	}
}
