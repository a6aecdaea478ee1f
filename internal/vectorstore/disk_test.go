package vectorstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"imageqa/internal/domain"
)

func testChunks(texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{Index: i, Text: text}
	}
	return chunks
}

func newTestDiskStore(t *testing.T) (*DiskStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewDiskStore(dir, zap.NewNop())
	require.NoError(t, err)
	return store, dir
}

func TestDiskStore_SearchBeforeBuildIsNotReady(t *testing.T) {
	store, _ := newTestDiskStore(t)
	_, err := store.Search([]float64{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrIndexNotReady)
}

func TestDiskStore_BuildThenSearchRanksByDistance(t *testing.T) {
	store, _ := newTestDiskStore(t)
	vectors := [][]float64{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}
	chunks := testChunks("first", "second", "third")
	require.NoError(t, store.Build(vectors, chunks))

	// k larger than the row count is clamped to all rows.
	results, err := store.Search([]float64{1, 0, 0, 0}, 5)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "first", results[0].Chunk.Text)
	assert.InDelta(t, 0, results[0].Distance, 1e-12)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i].Distance, results[i-1].Distance)
	}
}

func TestDiskStore_SelfRetrieval(t *testing.T) {
	store, _ := newTestDiskStore(t)
	vectors := [][]float64{
		{0.6, 0.8, 0},
		{0, 0.6, 0.8},
		{0.8, 0, 0.6},
	}
	chunks := testChunks("a", "b", "c")
	require.NoError(t, store.Build(vectors, chunks))

	for i, vec := range vectors {
		results, err := store.Search(vec, 1)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, i, results[0].Chunk.Index)
	}
}

func TestDiskStore_TiesBreakByStoredPosition(t *testing.T) {
	store, _ := newTestDiskStore(t)
	// Two identical vectors: equal distance to any query, so the earlier
	// position must rank first.
	vectors := [][]float64{
		{0, 1},
		{1, 0},
		{1, 0},
	}
	chunks := testChunks("far", "dup-early", "dup-late")
	require.NoError(t, store.Build(vectors, chunks))

	results, err := store.Search([]float64{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "dup-early", results[0].Chunk.Text)
	assert.Equal(t, "dup-late", results[1].Chunk.Text)
	assert.Equal(t, "far", results[2].Chunk.Text)
}

func TestDiskStore_SearchIsDeterministic(t *testing.T) {
	store, _ := newTestDiskStore(t)
	vectors := [][]float64{{1, 0}, {0, 1}, {0.7, 0.7}}
	require.NoError(t, store.Build(vectors, testChunks("x", "y", "z")))

	first, err := store.Search([]float64{0.9, 0.1}, 3)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := store.Search([]float64{0.9, 0.1}, 3)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDiskStore_InvalidArguments(t *testing.T) {
	store, _ := newTestDiskStore(t)

	err := store.Build([][]float64{{1, 0}}, testChunks("a", "b"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	err = store.Build([][]float64{{1, 0}, {1, 0, 0}}, testChunks("a", "b"))
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	require.NoError(t, store.Build([][]float64{{1, 0}}, testChunks("a")))
	_, err = store.Search([]float64{1, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = store.Search([]float64{1, 0}, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestDiskStore_FailedBuildLeavesPriorIndexIntact(t *testing.T) {
	store, dir := newTestDiskStore(t)
	require.NoError(t, store.Build([][]float64{{1, 0}, {0, 1}}, testChunks("keep-a", "keep-b")))

	// Mixed dimensions must fail before anything touches disk.
	err := store.Build([][]float64{{1, 0}, {1, 0, 0}}, testChunks("bad-a", "bad-b"))
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	// A fresh store over the same directory still serves the old rows.
	reopened, err := NewDiskStore(dir, zap.NewNop())
	require.NoError(t, err)
	results, err := reopened.Search([]float64{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "keep-a", results[0].Chunk.Text)
}

func TestDiskStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, zap.NewNop())
	require.NoError(t, err)
	vectors := [][]float64{{0.6, 0.8}, {0.8, 0.6}}
	require.NoError(t, store.Build(vectors, testChunks("alpha", "beta")))

	reopened, err := NewDiskStore(dir, zap.NewNop())
	require.NoError(t, err)
	results, err := reopened.Search([]float64{0.6, 0.8}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alpha", results[0].Chunk.Text)
}

func TestDiskStore_RebuildReplacesPriorIndex(t *testing.T) {
	store, _ := newTestDiskStore(t)
	require.NoError(t, store.Build([][]float64{{1, 0}}, testChunks("old")))
	require.NoError(t, store.Build([][]float64{{0, 1}, {1, 0}}, testChunks("new-a", "new-b")))

	results, err := store.Search([]float64{0, 1}, 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "new-a", results[0].Chunk.Text)
}

func TestDiskStore_MissingChunkArtifactIsCorrupt(t *testing.T) {
	store, dir := newTestDiskStore(t)
	require.NoError(t, store.Build([][]float64{{1, 0}}, testChunks("a")))
	require.NoError(t, os.Remove(filepath.Join(dir, chunksFileName)))

	reopened, err := NewDiskStore(dir, zap.NewNop())
	require.NoError(t, err)
	_, err = reopened.Search([]float64{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)
}

func TestDiskStore_MissingVectorArtifactIsCorrupt(t *testing.T) {
	store, dir := newTestDiskStore(t)
	require.NoError(t, store.Build([][]float64{{1, 0}}, testChunks("a")))
	require.NoError(t, os.Remove(filepath.Join(dir, indexFileName)))

	reopened, err := NewDiskStore(dir, zap.NewNop())
	require.NoError(t, err)
	_, err = reopened.Search([]float64{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)
}

func TestDiskStore_TruncatedVectorArtifactIsCorrupt(t *testing.T) {
	store, dir := newTestDiskStore(t)
	require.NoError(t, store.Build([][]float64{{1, 0}, {0, 1}}, testChunks("a", "b")))

	path := filepath.Join(dir, indexFileName)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-8))

	reopened, err := NewDiskStore(dir, zap.NewNop())
	require.NoError(t, err)
	_, err = reopened.Search([]float64{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)
}

func TestDiskStore_RowCountMismatchIsCorrupt(t *testing.T) {
	store, dir := newTestDiskStore(t)
	require.NoError(t, store.Build([][]float64{{1, 0}, {0, 1}}, testChunks("a", "b")))

	// Rebuild only the vector artifact with a different row count.
	require.NoError(t, writeIndexFile(filepath.Join(dir, indexFileName), 2, [][]float64{{1, 0}}))

	reopened, err := NewDiskStore(dir, zap.NewNop())
	require.NoError(t, err)
	_, err = reopened.Search([]float64{1, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrCorruptIndex)
}

func TestDiskStore_EmptyBuildServesNoResults(t *testing.T) {
	store, _ := newTestDiskStore(t)
	require.NoError(t, store.Build(nil, nil))
	results, err := store.Search([]float64{1, 0}, 3)
	require.NoError(t, err)
	assert.Empty(t, results)
}
