package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imageqa/internal/domain"
)

func TestNewWindowChunker_RejectsBadParameters(t *testing.T) {
	cases := []struct {
		name    string
		maxLen  int
		overlap int
	}{
		{"zero max length", 0, 0},
		{"negative max length", -5, 0},
		{"negative overlap", 10, -1},
		{"overlap equals max length", 10, 10},
		{"overlap above max length", 10, 12},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewWindowChunker(tc.maxLen, tc.overlap)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidArgument)
		})
	}
}

func TestSplit_EmptyTextYieldsNoChunks(t *testing.T) {
	c, err := NewWindowChunker(10, 2)
	require.NoError(t, err)

	chunks, err := c.Split("")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_WindowPositions(t *testing.T) {
	// 40 characters, maxLen=10, overlap=2: windows start at 0, 8, 16, 24, 32
	// and the last window carries the remaining 8 characters.
	text := "ABCDEFGHIJKLMNOPQRSTUVWXYZABCDEFGHIJKLMN"
	require.Len(t, text, 40)

	c, err := NewWindowChunker(10, 2)
	require.NoError(t, err)

	chunks, err := c.Split(text)
	require.NoError(t, err)
	require.Len(t, chunks, 5)

	starts := []int{0, 8, 16, 24, 32}
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		end := starts[i] + 10
		if end > len(text) {
			end = len(text)
		}
		assert.Equal(t, text[starts[i]:end], ch.Text)
	}
	assert.Len(t, chunks[4].Text, 8)
}

func TestSplit_ChunkBound(t *testing.T) {
	c, err := NewWindowChunker(7, 3)
	require.NoError(t, err)

	chunks, err := c.Split("the quick brown fox jumps over the lazy dog")
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.LessOrEqual(t, len(ch.Text), 7)
	}
}

func TestSplit_CoverageWithOverlapsStripped(t *testing.T) {
	text := "Retrieval pipelines index chunks so that answers stay grounded in the source."
	c, err := NewWindowChunker(16, 4)
	require.NoError(t, err)

	chunks, err := c.Split(text)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	// Strip the leading overlap from every chunk after the first and
	// concatenate: the original text must come back.
	var b strings.Builder
	for i, ch := range chunks {
		if i == 0 {
			b.WriteString(ch.Text)
			continue
		}
		b.WriteString(ch.Text[4:])
	}
	assert.Equal(t, text, b.String())
}

func TestSplit_DropsWhitespaceOnlyWindows(t *testing.T) {
	// Middle window is pure whitespace and must not appear; kept chunks
	// stay numbered consecutively.
	text := "abcd" + strings.Repeat(" ", 4) + "wxyz"
	c, err := NewWindowChunker(4, 0)
	require.NoError(t, err)

	chunks, err := c.Split(text)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "abcd", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "wxyz", chunks[1].Text)
	assert.Equal(t, 1, chunks[1].Index)
}

func TestSplit_ZeroOverlap(t *testing.T) {
	c, err := NewWindowChunker(3, 0)
	require.NoError(t, err)

	chunks, err := c.Split("abcdefgh")
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	assert.Equal(t, "abc", chunks[0].Text)
	assert.Equal(t, "def", chunks[1].Text)
	assert.Equal(t, "gh", chunks[2].Text)
}
