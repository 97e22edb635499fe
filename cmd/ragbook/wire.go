package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/xiaot623/ragbook/internal/adapter/llm"
	"github.com/xiaot623/ragbook/internal/answer"
	"github.com/xiaot623/ragbook/internal/booking"
	"github.com/xiaot623/ragbook/internal/config"
	"github.com/xiaot623/ragbook/internal/intent"
	"github.com/xiaot623/ragbook/internal/memory"
	"github.com/xiaot623/ragbook/internal/policy"
	"github.com/xiaot623/ragbook/internal/repository"
	"github.com/xiaot623/ragbook/internal/retrieval"
	"github.com/xiaot623/ragbook/internal/service"
)

// app holds the wired service and everything that must be closed with it.
type app struct {
	svc     *service.Service
	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func buildApp(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*app, error) {
	a := &app{}

	store, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}
	a.closers = append(a.closers, store.Close)

	mem, err := buildMemory(ctx, cfg, store, a)
	if err != nil {
		a.Close()
		return nil, err
	}

	index, err := buildIndex(ctx, cfg, a)
	if err != nil {
		a.Close()
		return nil, err
	}

	var embedder retrieval.Embedder
	if cfg.IsMock() {
		embedder = retrieval.NewHashEmbedder(cfg.EmbeddingDimensions)
	} else {
		embedder = retrieval.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	}

	engine, err := policy.Load(ctx, cfg.PolicyFile)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load booking policy: %w", err)
	}

	client := llm.NewClient(cfg, log)
	composer := answer.NewComposer(retrieval.NewRetriever(embedder, index), mem, client, answer.Options{
		TopK:      cfg.RetrievalTopK,
		MaxTokens: cfg.AnswerMaxTokens,
		Timeout:   cfg.GenerationTimeout,
	}, log)

	a.svc = service.New(service.Deps{
		Store:      store,
		Memory:     mem,
		Classifier: intent.NewClassifier(client, cfg.ClassifierStrategy, cfg.ClassifierTimeout, log),
		Extractor:  booking.NewExtractor(client, cfg.ExtractorStrategy, cfg.ExtractorTimeout, log),
		Composer:   composer,
		Policy:     engine,
		Ingestor:   retrieval.NewIngestor(embedder, index, store, log),
		Logger:     log,
	})

	log.WithFields(logrus.Fields{
		"mode":   cfg.Mode,
		"memory": cfg.MemoryBackend,
		"vector": cfg.VectorBackend,
	}).Info("service wired")
	return a, nil
}

func buildMemory(ctx context.Context, cfg *config.Config, store repository.Store, a *app) (memory.Store, error) {
	if cfg.MemoryBackend != config.MemoryRedis {
		return memory.NewSQLStore(store), nil
	}
	r, err := memory.NewRedisStore(ctx, cfg.RedisURL, cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.closers = append(a.closers, r.Close)
	return r, nil
}

func buildIndex(ctx context.Context, cfg *config.Config, a *app) (retrieval.Index, error) {
	if cfg.VectorBackend != config.VectorPGVector {
		return retrieval.NewMemoryIndex(), nil
	}
	p, err := retrieval.NewPGVectorIndex(ctx, cfg.PostgresURL, cfg.EmbeddingDimensions)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector index: %w", err)
	}
	a.closers = append(a.closers, p.Close)
	return p, nil
}
