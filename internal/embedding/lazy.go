package embedding

import (
	"context"
	"fmt"
	"sync"

	"imageqa/internal/domain"
)

// Handle defers construction of an Embedder until first use. Construction
// runs at most once per process no matter how many goroutines hit it first;
// afterwards the embedder is read-only and shared. A construction failure is
// cached and every caller gets ErrModelUnavailable.
type Handle struct {
	construct func() (Embedder, error)

	once sync.Once
	emb  Embedder
	err  error
}

// NewHandle wraps a constructor for lazy, idempotent initialization.
func NewHandle(construct func() (Embedder, error)) *Handle {
	return &Handle{construct: construct}
}

func (h *Handle) get() (Embedder, error) {
	h.once.Do(func() {
		emb, err := h.construct()
		if err != nil {
			h.err = fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
			return
		}
		h.emb = emb
	})
	return h.emb, h.err
}

func (h *Handle) EmbedPassages(ctx context.Context, texts []string) ([][]float64, error) {
	emb, err := h.get()
	if err != nil {
		return nil, err
	}
	return emb.EmbedPassages(ctx, texts)
}

func (h *Handle) EmbedQuery(ctx context.Context, text string) ([]float64, error) {
	emb, err := h.get()
	if err != nil {
		return nil, err
	}
	return emb.EmbedQuery(ctx, text)
}

func (h *Handle) Dimension() int {
	emb, err := h.get()
	if err != nil {
		return 0
	}
	return emb.Dimension()
}
