package chunker

import (
	"fmt"
	"strings"

	"imageqa/internal/domain"
)

// WindowChunker splits text into fixed-size character windows with overlap.
// Consecutive windows share the configured number of trailing characters so
// that sentences cut at a boundary stay retrievable from either side.
type WindowChunker struct {
	maxLen  int
	overlap int
}

// NewWindowChunker validates the window parameters. maxLen must be positive
// and overlap must be in [0, maxLen).
func NewWindowChunker(maxLen, overlap int) (*WindowChunker, error) {
	if maxLen <= 0 {
		return nil, fmt.Errorf("%w: chunk max length must be positive, got %d", domain.ErrInvalidArgument, maxLen)
	}
	if overlap < 0 || overlap >= maxLen {
		return nil, fmt.Errorf("%w: chunk overlap must be in [0, %d), got %d", domain.ErrInvalidArgument, maxLen, overlap)
	}
	return &WindowChunker{maxLen: maxLen, overlap: overlap}, nil
}

// Split scans the text producing windows of up to maxLen characters,
// advancing the start by maxLen-overlap each step. The final window may be
// shorter. Whitespace-only windows are dropped; kept windows are numbered
// in order. Empty input yields no chunks and no error.
func (c *WindowChunker) Split(text string) ([]domain.Chunk, error) {
	if text == "" {
		return nil, nil
	}
	runes := []rune(text)
	step := c.maxLen - c.overlap
	var chunks []domain.Chunk
	for start := 0; start < len(runes); start += step {
		end := start + c.maxLen
		if end > len(runes) {
			end = len(runes)
		}
		window := string(runes[start:end])
		if strings.TrimSpace(window) != "" {
			chunks = append(chunks, domain.Chunk{Index: len(chunks), Text: window})
		}
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}

// MaxLen returns the configured window size in characters.
func (c *WindowChunker) MaxLen() int { return c.maxLen }

// Overlap returns the configured overlap between consecutive windows.
func (c *WindowChunker) Overlap() int { return c.overlap }
