package retrieval

import (
	"context"
	"sort"
	"sync"

	"github.com/xiaot623/ragbook/internal/domain"
)

// Passage is an indexed chunk of a document.
type Passage struct {
	ID       string
	Text     string
	Source   string
	Vector   []float32
	Metadata map[string]any
}

// Index stores passages and answers nearest-neighbour queries.
type Index interface {
	Upsert(ctx context.Context, passages []Passage) error
	// Search returns at most topK hits ordered by descending score.
	Search(ctx context.Context, vector []float32, topK int) ([]domain.RetrievalHit, error)
	DeleteBySource(ctx context.Context, source string) (int, error)
}

var (
	_ Index = (*MemoryIndex)(nil)
	_ Index = (*PGVectorIndex)(nil)
)

// MemoryIndex is an in-process brute-force cosine index.
type MemoryIndex struct {
	mu       sync.RWMutex
	order    []string
	passages map[string]Passage
}

// NewMemoryIndex creates an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{passages: make(map[string]Passage)}
}

func (m *MemoryIndex) Upsert(ctx context.Context, passages []Passage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range passages {
		if _, ok := m.passages[p.ID]; !ok {
			m.order = append(m.order, p.ID)
		}
		m.passages[p.ID] = p
	}
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, vector []float32, topK int) ([]domain.RetrievalHit, error) {
	if topK <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	hits := make([]domain.RetrievalHit, 0, len(m.order))
	for _, id := range m.order {
		p := m.passages[id]
		hits = append(hits, domain.RetrievalHit{
			ID:       p.ID,
			Text:     p.Text,
			Score:    cosine(vector, p.Vector),
			Source:   p.Source,
			Metadata: p.Metadata,
		})
	}
	m.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (m *MemoryIndex) DeleteBySource(ctx context.Context, source string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.order[:0]
	deleted := 0
	for _, id := range m.order {
		if m.passages[id].Source == source {
			delete(m.passages, id)
			deleted++
			continue
		}
		kept = append(kept, id)
	}
	m.order = kept
	return deleted, nil
}

// Len returns the number of indexed passages.
func (m *MemoryIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}
