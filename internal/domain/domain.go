package domain

// Chunk is a bounded span of source text with a stable 0-based position.
// Chunks are created once per ingestion run and are immutable afterwards;
// position i is row-aligned with embedding row i in the vector store.
type Chunk struct {
	Index int
	Text  string
}

// SearchResult is a retrieved chunk with its L2 distance to the query vector.
// Smaller distance means a closer match.
type SearchResult struct {
	Chunk    Chunk
	Distance float64
}
