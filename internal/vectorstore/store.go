package vectorstore

import (
	"fmt"
	"math"
	"sort"

	"imageqa/internal/domain"
)

// Store persists embedding vectors with their source chunks and supports
// exact nearest-neighbor search under L2 distance.
//
// Build fully replaces any prior index; there is no incremental append.
// Search before any Build reports domain.ErrIndexNotReady.
type Store interface {
	Build(vectors [][]float64, chunks []domain.Chunk) error
	Search(query []float64, k int) ([]domain.SearchResult, error)
}

// validateRows checks the Build preconditions: row counts must agree and all
// vectors must share one dimension. Returns that dimension (0 for an empty
// build).
func validateRows(vectors [][]float64, chunks []domain.Chunk) (int, error) {
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("%w: %d vectors for %d chunks", domain.ErrInvalidArgument, len(vectors), len(chunks))
	}
	dimension := 0
	for i, vec := range vectors {
		if len(vec) == 0 {
			return 0, fmt.Errorf("%w: vector %d is empty", domain.ErrInvalidArgument, i)
		}
		if dimension == 0 {
			dimension = len(vec)
		}
		if len(vec) != dimension {
			return 0, fmt.Errorf("%w: vector %d has dimension %d, want %d", domain.ErrInvalidArgument, i, len(vec), dimension)
		}
	}
	return dimension, nil
}

// nearest ranks all rows by ascending L2 distance to the query, breaking
// exact ties by ascending stored position, and returns up to k results.
func nearest(query []float64, vectors [][]float64, chunks []domain.Chunk, k int) []domain.SearchResult {
	results := make([]domain.SearchResult, 0, len(vectors))
	for i, vec := range vectors {
		results = append(results, domain.SearchResult{Chunk: chunks[i], Distance: l2Distance(query, vec)})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Chunk.Index < results[j].Chunk.Index
	})
	if k > len(results) {
		k = len(results)
	}
	return results[:k]
}

func l2Distance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
