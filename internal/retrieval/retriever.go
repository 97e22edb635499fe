package retrieval

import (
	"context"
	"fmt"

	"github.com/xiaot623/ragbook/internal/domain"
)

// Retriever embeds a query and searches the index with it.
type Retriever struct {
	embedder Embedder
	index    Index
}

// NewRetriever creates a Retriever.
func NewRetriever(embedder Embedder, index Index) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// Retrieve returns the topK passages most similar to query.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievalHit, error) {
	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected one query vector, got %d", domain.ErrRemoteUnavailable, len(vectors))
	}
	return r.index.Search(ctx, vectors[0], topK)
}
