// Package servicetest builds a fully wired Service over in-memory backends
// for transport tests.
package servicetest

import (
	"context"
	"testing"

	"github.com/xiaot623/ragbook/internal/adapter/llm"
	"github.com/xiaot623/ragbook/internal/answer"
	"github.com/xiaot623/ragbook/internal/booking"
	"github.com/xiaot623/ragbook/internal/config"
	"github.com/xiaot623/ragbook/internal/intent"
	"github.com/xiaot623/ragbook/internal/logger"
	"github.com/xiaot623/ragbook/internal/memory"
	"github.com/xiaot623/ragbook/internal/policy"
	"github.com/xiaot623/ragbook/internal/retrieval"
	"github.com/xiaot623/ragbook/internal/service"
	"github.com/xiaot623/ragbook/internal/testutil"
)

// New returns a Service backed by an in-memory SQLite store, an in-memory
// index, keyword classification, heuristic extraction and the mock client.
func New(t *testing.T) *service.Service {
	t.Helper()
	log := logger.Discard()

	store := testutil.NewTestSQLiteStore(t)
	mem := memory.NewSQLStore(store)
	index := retrieval.NewMemoryIndex()
	embedder := retrieval.NewHashEmbedder(64)
	client := llm.NewMockClient()

	engine, err := policy.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("failed to load policy: %v", err)
	}

	return service.New(service.Deps{
		Store:      store,
		Memory:     mem,
		Classifier: intent.NewClassifier(client, config.ClassifierKeywords, 0, log),
		Extractor:  booking.NewExtractor(client, config.ExtractorHeuristic, 0, log),
		Composer:   answer.NewComposer(retrieval.NewRetriever(embedder, index), mem, client, answer.Options{}, log),
		Policy:     engine,
		Ingestor:   retrieval.NewIngestor(embedder, index, store, log),
		Logger:     log,
	})
}
