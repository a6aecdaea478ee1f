package vectorstore

import (
	"fmt"
	"sync"

	"imageqa/internal/domain"
)

// MemoryStore keeps the index in process memory. It serves ephemeral runs
// and tests; semantics match the disk store except nothing survives the
// process.
type MemoryStore struct {
	mu        sync.RWMutex
	built     bool
	dimension int
	vectors   [][]float64
	chunks    []domain.Chunk
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// Build replaces the held index. Validation failures leave the prior index
// untouched.
func (s *MemoryStore) Build(vectors [][]float64, chunks []domain.Chunk) error {
	dimension, err := validateRows(vectors, chunks)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = append([][]float64(nil), vectors...)
	s.chunks = append([]domain.Chunk(nil), chunks...)
	s.dimension = dimension
	s.built = true
	return nil
}

func (s *MemoryStore) Search(query []float64, k int) ([]domain.SearchResult, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrInvalidArgument, k)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.built {
		return nil, domain.ErrIndexNotReady
	}
	if len(s.vectors) == 0 {
		return nil, nil
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", domain.ErrInvalidArgument, len(query), s.dimension)
	}
	return nearest(query, s.vectors, s.chunks, k), nil
}
