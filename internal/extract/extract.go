// Package extract turns source documents into plain text for chunking.
// OCR engines and other media readers plug in behind the same interface;
// this package ships the plain-text file reader.
package extract

import (
	"os"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Extractor converts one source document into plain text. Recoverable
// failures (missing or unreadable source, nothing recognized) degrade to an
// empty string with a logged warning so a batch ingest keeps going; only
// programming errors surface as errors.
type Extractor interface {
	Extract(path string) (string, error)
}

// FileExtractor reads UTF-8 text files from disk.
type FileExtractor struct {
	log *zap.Logger
}

func NewFileExtractor(log *zap.Logger) *FileExtractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &FileExtractor{log: log}
}

// Extract returns the file contents, or an empty string when the file is
// missing, unreadable, or not text.
func (e *FileExtractor) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		e.log.Warn("source not readable, continuing with empty text",
			zap.String("path", path),
			zap.Error(err))
		return "", nil
	}
	text := string(data)
	if !utf8.ValidString(text) {
		e.log.Warn("source is not valid UTF-8 text, continuing with empty text",
			zap.String("path", path))
		return "", nil
	}
	if strings.TrimSpace(text) == "" {
		e.log.Warn("no text extracted from source", zap.String("path", path))
		return "", nil
	}
	return text, nil
}
