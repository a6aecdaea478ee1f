// Package service orchestrates the retrieval pipeline: ingest sources into
// the vector store and answer questions grounded in retrieved chunks.
package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"imageqa/internal/chunker"
	"imageqa/internal/domain"
	"imageqa/internal/embedding"
	"imageqa/internal/extract"
	"imageqa/internal/prompt"
	"imageqa/internal/vectorstore"
)

const defaultTopK = 3

// embedBatchSize bounds how many chunks go to the embedder per call so the
// progress bar advances at a useful granularity.
const embedBatchSize = 16

// Generator produces a completion for a system+user message pair.
type Generator interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// IngestStats summarizes one ingestion run.
type IngestStats struct {
	Sources   int
	Chunks    int
	Dimension int
	// Degraded is set when extraction produced no text at all: the index
	// was still (re)built, but it is empty and answers will be ungrounded.
	Degraded bool
}

func (s IngestStats) String() string {
	if s.Degraded {
		return fmt.Sprintf("indexed %d sources: no text extracted, index is empty", s.Sources)
	}
	return fmt.Sprintf("indexed %d chunks from %d sources (dimension %d)", s.Chunks, s.Sources, s.Dimension)
}

// Response is an answer with the chunks that grounded it, nearest first.
type Response struct {
	Answer  string
	Sources []domain.SearchResult
}

// QAService wires the pipeline components together.
type QAService struct {
	extractor extract.Extractor
	chunker   *chunker.WindowChunker
	embedder  embedding.Embedder
	store     vectorstore.Store
	generator Generator
	progress  ProgressReporter
	log       *zap.Logger
	topK      int
}

func New(extractor extract.Extractor, ch *chunker.WindowChunker, embedder embedding.Embedder,
	store vectorstore.Store, generator Generator, progress ProgressReporter, log *zap.Logger, topK int) *QAService {
	if progress == nil {
		progress = NewBarReporter(false)
	}
	if log == nil {
		log = zap.NewNop()
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	return &QAService{
		extractor: extractor,
		chunker:   ch,
		embedder:  embedder,
		store:     store,
		generator: generator,
		progress:  progress,
		log:       log,
		topK:      topK,
	}
}

// Ingest extracts text from each source, chunks it, embeds the chunks and
// rebuilds the index. Sources that yield no text are warned about and
// skipped; if nothing yields text the index is rebuilt empty and the stats
// flag the run as degraded.
func (s *QAService) Ingest(ctx context.Context, sources []string) (IngestStats, error) {
	if len(sources) == 0 {
		return IngestStats{}, fmt.Errorf("%w: no sources given", domain.ErrInvalidArgument)
	}

	var chunks []domain.Chunk
	for _, source := range sources {
		text, err := s.extractor.Extract(source)
		if err != nil {
			return IngestStats{}, fmt.Errorf("extract %s: %w", source, err)
		}
		split, err := s.chunker.Split(text)
		if err != nil {
			return IngestStats{}, fmt.Errorf("chunk %s: %w", source, err)
		}
		// Re-number across sources: chunk positions are index rows.
		for _, ch := range split {
			ch.Index = len(chunks)
			chunks = append(chunks, ch)
		}
		s.log.Info("source chunked", zap.String("source", source), zap.Int("chunks", len(split)))
	}

	stats := IngestStats{Sources: len(sources), Chunks: len(chunks)}
	if len(chunks) == 0 {
		s.log.Warn("no text extracted from any source; building empty index")
		if err := s.store.Build(nil, nil); err != nil {
			return IngestStats{}, err
		}
		stats.Degraded = true
		return stats, nil
	}

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return IngestStats{}, err
	}
	stats.Dimension = len(vectors[0])

	if err := s.store.Build(vectors, chunks); err != nil {
		return IngestStats{}, err
	}
	s.log.Info("ingest complete",
		zap.Int("sources", stats.Sources),
		zap.Int("chunks", stats.Chunks),
		zap.Int("dimension", stats.Dimension))
	return stats, nil
}

func (s *QAService) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float64, error) {
	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	s.progress.Start(len(texts))
	defer s.progress.Finish()

	vectors := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		got, err := s.embedder.EmbedPassages(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
		}
		if len(got) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(got), end-start)
		}
		vectors = append(vectors, got...)
		s.progress.Advance(end - start)
	}
	return vectors, nil
}

// Ask answers a question from the k nearest chunks. Generation failures
// degrade to a descriptive answer string (with the cause logged) instead of
// an error, so one flaky backend call does not kill an interactive session.
// Retrieval errors (index missing, corrupt, dimension mismatch) are real
// errors and propagate.
func (s *QAService) Ask(ctx context.Context, question string, k int) (*Response, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrInvalidArgument)
	}
	if k <= 0 {
		k = s.topK
	}

	vector, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}
	results, err := s.store.Search(vector, k)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		s.log.Warn("empty index; answer will be ungrounded", zap.String("question", question))
	}

	contexts := make([]string, len(results))
	for i, r := range results {
		contexts[i] = r.Chunk.Text
	}
	answer, err := s.generator.Complete(ctx, prompt.SystemInstruction, prompt.Build(contexts, question))
	if err != nil {
		s.log.Error("generation failed", zap.Error(err))
		return &Response{
			Answer:  fmt.Sprintf("Error details: %v", err),
			Sources: results,
		}, nil
	}
	return &Response{Answer: answer, Sources: results}, nil
}

// Answer is the plain-string form of Ask.
func (s *QAService) Answer(ctx context.Context, question string, k int) (string, error) {
	resp, err := s.Ask(ctx, question, k)
	if err != nil {
		return "", err
	}
	return resp.Answer, nil
}
