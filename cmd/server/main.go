package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/suPer8Hu/rag-chat/internal/ai"
	"github.com/suPer8Hu/rag-chat/internal/chat"
	"github.com/suPer8Hu/rag-chat/internal/config"
	"github.com/suPer8Hu/rag-chat/internal/db"
	"github.com/suPer8Hu/rag-chat/internal/embed"
	"github.com/suPer8Hu/rag-chat/internal/httpapi"
	"github.com/suPer8Hu/rag-chat/internal/httpapi/handlers"
	"github.com/suPer8Hu/rag-chat/internal/logging"
	"github.com/suPer8Hu/rag-chat/internal/rag"
	"github.com/suPer8Hu/rag-chat/internal/store/rabbitmq"
	"github.com/suPer8Hu/rag-chat/internal/store/redisstore"
	"github.com/suPer8Hu/rag-chat/internal/usage"
	"github.com/suPer8Hu/rag-chat/internal/window"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()
	logging.Setup(cfg.LogLevel)

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(cfg.DBDSN)
	if err != nil {
		return err
	}
	if err := db.Migrate(gdb); err != nil {
		return err
	}

	backend := newEmbedBackend(cfg)
	var embedOpts []embed.Option
	if _, ok := backend.(*embed.HashBackend); ok {
		embedOpts = append(embedOpts, embed.WithDimension(cfg.EmbedDim))
	}
	if cfg.RedisAddr != "" {
		rds := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.EmbedCacheTTL)
		defer rds.Close()
		if err := rds.Ping(ctx); err != nil {
			slog.Warn("redis unavailable, embedding cache disabled", "addr", cfg.RedisAddr, "error", err)
		} else {
			embedOpts = append(embedOpts, embed.WithCache(rds))
		}
	}
	embedder := embed.NewService(backend, embedOpts...)
	go func() {
		// warm up in the background; the first request waits on the same init
		if err := embedder.EnsureReady(ctx); err != nil {
			slog.Warn("embedder warm-up failed", "backend", embedder.Name(), "error", err)
		}
	}()

	recorder, closeUsage, err := newUsageRecorder(cfg, gdb)
	if err != nil {
		return err
	}
	defer closeUsage()

	chunks := rag.NewStore(gdb)
	router := ai.NewRouter(ai.NewModelStore(gdb), ai.RouterConfig{
		DefaultModelKey:    cfg.DefaultModelKey,
		DefaultModelName:   cfg.DefaultModelName,
		DefaultProvider:    cfg.DefaultProvider,
		FallbackCredential: cfg.FallbackAPIKey,
		OllamaBaseURL:      cfg.OllamaBaseURL,
		OpenAIBaseURL:      cfg.OpenAIBaseURL,
	})

	svc := chat.NewService(chat.NewRepo(gdb), chat.Deps{
		Embedder:  embedder,
		Retriever: rag.NewRetriever(chunks),
		Router:    router,
		Clients:   ai.Defaults(),
		Usage:     recorder,
	}, chat.Options{
		DefaultTopK:         cfg.DefaultTopK,
		DefaultHistoryLimit: cfg.DefaultHistoryLimit,
		DefaultCollection:   cfg.DefaultCollection,
		SystemPrompt:        cfg.SystemPrompt,
		GenerationTimeout:   cfg.GenerationTimeout,
		Window: window.Options{
			MaxMessages: cfg.WindowMaxMessages,
			TokenBudget: cfg.WindowTokenBudget,
			KeepLatest:  cfg.WindowKeepLatest,
			KeepFirst:   cfg.WindowKeepFirst,
		},
	})

	h := handlers.NewHandler(svc, rag.NewIngester(chunks, embedder, cfg.DefaultCollection), chunks, router)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpapi.NewRouter(h, cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", cfg.HTTPAddr, "embedder", embedder.Name(), "usage_sink", cfg.UsageSink)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newEmbedBackend(cfg config.Config) embed.Backend {
	switch strings.ToLower(cfg.Embedder) {
	case "ollama":
		return embed.NewOllamaBackend(cfg.OllamaBaseURL, cfg.EmbedModel)
	case "openai":
		return embed.NewOpenAIBackend(cfg.FallbackAPIKey, cfg.OpenAIBaseURL, cfg.EmbedModel)
	default:
		return embed.NewHashBackend(cfg.EmbedDim)
	}
}

func newUsageRecorder(cfg config.Config, gdb *gorm.DB) (usage.Recorder, func(), error) {
	if strings.EqualFold(cfg.UsageSink, "rabbit") {
		pub, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			return nil, nil, err
		}
		rec := usage.NewMetered(usage.NewQueueRecorder(pub), prometheus.DefaultRegisterer)
		return rec, func() { _ = pub.Close() }, nil
	}
	return usage.NewMetered(usage.NewGormRecorder(gdb), prometheus.DefaultRegisterer), func() {}, nil
}
