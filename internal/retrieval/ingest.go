package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/xiaot623/ragbook/internal/domain"
)

const previewChars = 200

// DocumentRecorder persists metadata about ingested files.
type DocumentRecorder interface {
	CreateDocument(ctx context.Context, doc *domain.Document) error
}

// Ingestor chunks, embeds and indexes documents.
type Ingestor struct {
	embedder Embedder
	index    Index
	docs     DocumentRecorder
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewIngestor creates an Ingestor.
func NewIngestor(embedder Embedder, index Index, docs DocumentRecorder, log logrus.FieldLogger) *Ingestor {
	return &Ingestor{
		embedder: embedder,
		index:    index,
		docs:     docs,
		log:      log.WithField("component", "ingest"),
		now:      time.Now,
	}
}

// Ingest replaces any passages previously indexed for source with the chunks of text.
func (i *Ingestor) Ingest(ctx context.Context, source, text string, strategy domain.ChunkStrategy) (*domain.Document, error) {
	if strings.TrimSpace(source) == "" {
		return nil, domain.Invalid("filename", "is required")
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.Invalid("file", "no text could be extracted")
	}

	chunks, err := Chunk(text, strategy)
	if err != nil {
		return nil, err
	}
	log := i.log.WithFields(logrus.Fields{"source": source, "strategy": strategy})
	log.WithField("chunks", len(chunks)).Info("chunked document")

	vectors, err := i.embedder.Embed(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", source, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: got %d vectors for %d chunks", domain.ErrRemoteUnavailable, len(vectors), len(chunks))
	}

	docID := uuid.NewString()
	passages := make([]Passage, len(chunks))
	ids := make([]string, len(chunks))
	for n, chunk := range chunks {
		ids[n] = uuid.NewString()
		passages[n] = Passage{
			ID:     ids[n],
			Text:   chunk,
			Source: source,
			Vector: vectors[n],
			Metadata: map[string]any{
				"source":       source,
				"strategy":     string(strategy),
				"total_chunks": len(chunks),
				"chunk_index":  n,
				"document_id":  docID,
			},
		}
	}

	if removed, err := i.index.DeleteBySource(ctx, source); err != nil {
		return nil, fmt.Errorf("%w: clear previous passages: %v", domain.ErrPersistence, err)
	} else if removed > 0 {
		log.WithField("removed", removed).Info("replaced previously indexed passages")
	}
	if err := i.index.Upsert(ctx, passages); err != nil {
		return nil, fmt.Errorf("%w: index passages: %v", domain.ErrPersistence, err)
	}

	doc := &domain.Document{
		DocumentID:  docID,
		FileName:    source,
		Strategy:    strategy,
		TotalChunks: len(chunks),
		ChunkIDs:    ids,
		TextPreview: preview(text, previewChars),
		CreatedAt:   i.now(),
	}
	if err := i.docs.CreateDocument(ctx, doc); err != nil {
		log.WithError(err).Error("failed to record document metadata")
		return nil, fmt.Errorf("%w: record document: %v", domain.ErrPersistence, err)
	}

	log.WithField("document_id", docID).Info("document ingested")
	return doc, nil
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
