package embedding

import (
	"context"
	"math"
)

// Embedder converts text into unit-norm vectors. Passage and query entry
// points return vectors in the same space; asymmetric models add a role
// prefix to the input before embedding.
type Embedder interface {
	// EmbedPassages embeds document chunks, one vector per input, same order.
	EmbedPassages(ctx context.Context, texts []string) ([][]float64, error)
	// EmbedQuery embeds a search query.
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
	// Dimension reports the vector dimensionality. May be 0 before the
	// first embed call for remote models that reveal it lazily.
	Dimension() int
}

// Normalize scales v to unit Euclidean norm in place. A zero vector is left
// unchanged.
func Normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] *= inv
	}
}

// Truncate limits text to max characters. Models truncate oversized input
// rather than reject it, so no error is ever reported for length overflow.
func Truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
