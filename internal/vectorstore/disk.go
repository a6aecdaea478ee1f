package vectorstore

import (
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"imageqa/internal/domain"
)

const (
	indexFileName  = "index.bin"
	chunksFileName = "chunks.db"

	formatVersion = 1
)

// indexMagic identifies the vector artifact so a future reader can detect
// foreign or stale bytes instead of misinterpreting them.
var indexMagic = [6]byte{'I', 'Q', 'A', 'V', 'E', 'C'}

// DiskStore persists the index as two co-located artifacts under a base
// directory: index.bin (vector rows, versioned binary) and chunks.db
// (ordered chunk texts in SQLite, row-aligned with the vectors). The pair is
// written atomically by Build and always read together; any disagreement
// between the two is domain.ErrCorruptIndex.
//
// Build takes the write lock, Search the read lock: single-writer
// rebuild-then-read, no live concurrent ingestion.
type DiskStore struct {
	dir string
	log *zap.Logger

	mu        sync.RWMutex
	loaded    bool
	dimension int
	vectors   [][]float64
	chunks    []domain.Chunk
}

// NewDiskStore creates a store rooted at dir, creating it if needed.
func NewDiskStore(dir string, log *zap.Logger) (*DiskStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: store path is empty", domain.ErrInvalidArgument)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &DiskStore{dir: dir, log: log}, nil
}

func (s *DiskStore) indexPath() string  { return filepath.Join(s.dir, indexFileName) }
func (s *DiskStore) chunksPath() string { return filepath.Join(s.dir, chunksFileName) }

// Build writes a new persisted index, replacing any prior one. Both
// artifacts are written to temp files first and renamed into place, so a
// failed build leaves the previous index intact.
func (s *DiskStore) Build(vectors [][]float64, chunks []domain.Chunk) error {
	dimension, err := validateRows(vectors, chunks)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmpIndex := s.indexPath() + ".tmp"
	tmpChunks := s.chunksPath() + ".tmp"
	defer os.Remove(tmpIndex)
	defer os.Remove(tmpChunks)

	if err := writeIndexFile(tmpIndex, dimension, vectors); err != nil {
		return fmt.Errorf("write vector artifact: %w", err)
	}
	if err := writeChunksDB(tmpChunks, dimension, chunks); err != nil {
		return fmt.Errorf("write chunk artifact: %w", err)
	}
	if err := os.Rename(tmpIndex, s.indexPath()); err != nil {
		return fmt.Errorf("replace vector artifact: %w", err)
	}
	if err := os.Rename(tmpChunks, s.chunksPath()); err != nil {
		return fmt.Errorf("replace chunk artifact: %w", err)
	}

	s.vectors = append([][]float64(nil), vectors...)
	s.chunks = append([]domain.Chunk(nil), chunks...)
	s.dimension = dimension
	s.loaded = true
	s.log.Info("index built",
		zap.Int("rows", len(chunks)),
		zap.Int("dimension", dimension),
		zap.String("dir", s.dir))
	return nil
}

// Search returns up to k chunks ranked nearest-first by L2 distance, ties
// broken by ascending stored position.
func (s *DiskStore) Search(query []float64, k int) ([]domain.SearchResult, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrInvalidArgument, k)
	}
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.vectors) == 0 {
		return nil, nil
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", domain.ErrInvalidArgument, len(query), s.dimension)
	}
	return nearest(query, s.vectors, s.chunks, k), nil
}

func (s *DiskStore) ensureLoaded() error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	return s.load()
}

// load reads both artifacts and cross-checks them. Caller holds the write
// lock.
func (s *DiskStore) load() error {
	_, indexErr := os.Stat(s.indexPath())
	_, chunksErr := os.Stat(s.chunksPath())
	switch {
	case os.IsNotExist(indexErr) && os.IsNotExist(chunksErr):
		return domain.ErrIndexNotReady
	case os.IsNotExist(indexErr):
		return fmt.Errorf("%w: chunk artifact present without vector artifact", domain.ErrCorruptIndex)
	case os.IsNotExist(chunksErr):
		return fmt.Errorf("%w: vector artifact present without chunk artifact", domain.ErrCorruptIndex)
	case indexErr != nil:
		return fmt.Errorf("stat vector artifact: %w", indexErr)
	case chunksErr != nil:
		return fmt.Errorf("stat chunk artifact: %w", chunksErr)
	}

	dimension, vectors, err := readIndexFile(s.indexPath())
	if err != nil {
		return err
	}
	chunkDimension, chunks, err := readChunksDB(s.chunksPath())
	if err != nil {
		return err
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d vector rows but %d chunk rows", domain.ErrCorruptIndex, len(vectors), len(chunks))
	}
	if chunkDimension != dimension {
		return fmt.Errorf("%w: artifacts disagree on dimension (%d vs %d)", domain.ErrCorruptIndex, dimension, chunkDimension)
	}

	s.vectors = vectors
	s.chunks = chunks
	s.dimension = dimension
	s.loaded = true
	s.log.Debug("index loaded",
		zap.Int("rows", len(chunks)),
		zap.Int("dimension", dimension))
	return nil
}

func writeIndexFile(path string, dimension int, vectors [][]float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(indexMagic[:]); err != nil {
		return err
	}
	header := []uint32{formatVersion, uint32(dimension), uint32(len(vectors))}
	if err := binary.Write(f, binary.LittleEndian, header); err != nil {
		return err
	}
	for _, vec := range vectors {
		if err := binary.Write(f, binary.LittleEndian, vec); err != nil {
			return err
		}
	}
	return f.Sync()
}

func readIndexFile(path string) (int, [][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", domain.ErrCorruptIndex, err)
	}
	defer f.Close()

	var magic [6]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		return 0, nil, fmt.Errorf("%w: vector artifact truncated", domain.ErrCorruptIndex)
	}
	if magic != indexMagic {
		return 0, nil, fmt.Errorf("%w: vector artifact has unknown magic %q", domain.ErrCorruptIndex, magic[:])
	}
	header := make([]uint32, 3)
	if err := binary.Read(f, binary.LittleEndian, header); err != nil {
		return 0, nil, fmt.Errorf("%w: vector artifact header truncated", domain.ErrCorruptIndex)
	}
	version, dimension, rows := header[0], int(header[1]), int(header[2])
	if version != formatVersion {
		return 0, nil, fmt.Errorf("%w: vector artifact format version %d, reader supports %d", domain.ErrCorruptIndex, version, formatVersion)
	}
	vectors := make([][]float64, rows)
	for i := range vectors {
		vec := make([]float64, dimension)
		if err := binary.Read(f, binary.LittleEndian, vec); err != nil {
			return 0, nil, fmt.Errorf("%w: vector artifact truncated at row %d", domain.ErrCorruptIndex, i)
		}
		vectors[i] = vec
	}
	if _, err := f.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
		return 0, nil, fmt.Errorf("%w: vector artifact has trailing bytes", domain.ErrCorruptIndex)
	}
	return dimension, vectors, nil
}

func writeChunksDB(path string, dimension int, chunks []domain.Chunk) error {
	// A stale temp file from an interrupted build would confuse sqlite.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return err
	}
	defer db.Close()

	stmts := []string{
		`CREATE TABLE meta (
			format_version INTEGER NOT NULL,
			dimension INTEGER NOT NULL,
			rows INTEGER NOT NULL
		);`,
		`CREATE TABLE chunks (
			position INTEGER PRIMARY KEY,
			text TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT INTO meta (format_version, dimension, rows) VALUES (?, ?, ?)`,
		formatVersion, dimension, len(chunks)); err != nil {
		_ = tx.Rollback()
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO chunks (position, text) VALUES (?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, ch := range chunks {
		if _, err := stmt.Exec(ch.Index, ch.Text); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func readChunksDB(path string) (int, []domain.Chunk, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", domain.ErrCorruptIndex, err)
	}
	defer db.Close()

	var version, dimension, rows int
	err = db.QueryRow(`SELECT format_version, dimension, rows FROM meta`).Scan(&version, &dimension, &rows)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: chunk artifact unreadable: %v", domain.ErrCorruptIndex, err)
	}
	if version != formatVersion {
		return 0, nil, fmt.Errorf("%w: chunk artifact format version %d, reader supports %d", domain.ErrCorruptIndex, version, formatVersion)
	}

	result, err := db.Query(`SELECT position, text FROM chunks ORDER BY position ASC`)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: chunk artifact unreadable: %v", domain.ErrCorruptIndex, err)
	}
	defer result.Close()

	chunks := make([]domain.Chunk, 0, rows)
	for result.Next() {
		var ch domain.Chunk
		if err := result.Scan(&ch.Index, &ch.Text); err != nil {
			return 0, nil, fmt.Errorf("%w: chunk artifact unreadable: %v", domain.ErrCorruptIndex, err)
		}
		if ch.Index != len(chunks) {
			return 0, nil, fmt.Errorf("%w: chunk positions not contiguous at %d", domain.ErrCorruptIndex, ch.Index)
		}
		chunks = append(chunks, ch)
	}
	if err := result.Err(); err != nil {
		return 0, nil, fmt.Errorf("%w: chunk artifact unreadable: %v", domain.ErrCorruptIndex, err)
	}
	if len(chunks) != rows {
		return 0, nil, fmt.Errorf("%w: chunk artifact declares %d rows, holds %d", domain.ErrCorruptIndex, rows, len(chunks))
	}
	return dimension, chunks, nil
}
