package index

import (
	"errors"
	"fmt"
	"os"
)

// DefaultMaxContentBytes caps how much of a file the plaintext extractor reads.
const DefaultMaxContentBytes = 1024 * 1024

var (
	// ErrBinaryContent is returned when a file looks binary.
	ErrBinaryContent = errors.New("binary content")

	// ErrContentTooLarge is returned when a file exceeds the extractor limit.
	ErrContentTooLarge = errors.New("content too large")
)

// Extractor recovers the text of a document from its path. Implementations
// are called only during index builds and may fail freely; failures leave the
// document content empty.
type Extractor interface {
	Extract(path string) (string, error)
}

// ExtractorFunc adapts a function to the Extractor interface.
type ExtractorFunc func(path string) (string, error)

// Extract calls f(path).
func (f ExtractorFunc) Extract(path string) (string, error) { return f(path) }

// PlainTextExtractor reads UTF-8 text files up to MaxBytes.
type PlainTextExtractor struct {
	MaxBytes int64
}

// NewPlainTextExtractor creates an extractor with the given size cap.
// A non-positive cap falls back to DefaultMaxContentBytes.
func NewPlainTextExtractor(maxBytes int64) *PlainTextExtractor {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxContentBytes
	}
	return &PlainTextExtractor{MaxBytes: maxBytes}
}

// Extract implements Extractor.
func (e *PlainTextExtractor) Extract(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > e.MaxBytes {
		return "", fmt.Errorf("%s: %w", path, ErrContentTooLarge)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if IsBinary(content) {
		return "", fmt.Errorf("%s: %w", path, ErrBinaryContent)
	}
	return string(content), nil
}

// IsBinary checks if the content appears to be binary by looking for null bytes
// in the first 512 bytes. This is a heuristic used by git and other tools.
func IsBinary(content []byte) bool {
	checkLen := min(len(content), 512)

	for i := range checkLen {
		if content[i] == 0 {
			return true
		}
	}
	return false
}
