package embedding

import (
	"context"
	"hash/fnv"
	"regexp"
	"strings"
)

const defaultHashDimension = 256

// HashEmbedder is a deterministic, offline embedder: a hashed bag-of-words
// folded into a fixed number of buckets, L2-normalized. It keeps the whole
// pipeline runnable without network access. The model is symmetric, so
// passages and queries use the same encoding.
type HashEmbedder struct {
	dimension    int
	tokenPattern *regexp.Regexp
}

// NewHashEmbedder creates a hashing embedder with the given dimension
// (bucket count). Non-positive dimensions fall back to the default.
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = defaultHashDimension
	}
	return &HashEmbedder{
		dimension:    dimension,
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`),
	}
}

func (e *HashEmbedder) Name() string { return "hash" }

func (e *HashEmbedder) Dimension() int { return e.dimension }

// EmbedPassages embeds each text independently, preserving order.
func (e *HashEmbedder) EmbedPassages(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (e *HashEmbedder) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	return e.embed(text), nil
}

func (e *HashEmbedder) embed(text string) []float64 {
	vec := make([]float64, e.dimension)
	tokens := e.tokenPattern.FindAllString(strings.ToLower(text), -1)
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum32()
		bucket := int(sum % uint32(e.dimension))
		// Sign bit from the hash spreads tokens across both half-spaces,
		// which reduces collisions between unrelated texts.
		if sum&0x80000000 != 0 {
			vec[bucket] -= 1
		} else {
			vec[bucket] += 1
		}
	}
	Normalize(vec)
	if isZero(vec) {
		// Unit norm is a hard invariant of the store; texts with no
		// tokens get a fixed basis vector.
		vec[0] = 1
	}
	return vec
}

func isZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
