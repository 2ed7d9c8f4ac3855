// Package chunker splits document text into fixed-size overlapping windows.
package chunker

import (
	"github.com/ekaya-inc/ekaya-rag/pkg/apperrors"
)

// Chunker splits text using a size and overlap validated at construction.
type Chunker struct {
	size    int
	overlap int
}

// New returns a Chunker, or a ConfigurationError when overlap is not smaller than size.
func New(size, overlap int) (*Chunker, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Split returns the chunks of text in order.
func (c *Chunker) Split(text string) []string {
	return split([]rune(text), c.size, c.overlap)
}

// Size returns the window length in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of runes shared by consecutive windows.
func (c *Chunker) Overlap() int { return c.overlap }

// Split splits text into windows of size runes, each starting size-overlap runes
// after the previous one. Text no longer than size yields exactly one chunk.
func Split(text string, size, overlap int) ([]string, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	return split([]rune(text), size, overlap), nil
}

// Offsets returns the start offset of every chunk for a text of the given length.
func Offsets(length, size, overlap int) ([]int, error) {
	if err := validate(size, overlap); err != nil {
		return nil, err
	}
	if length <= size {
		return []int{0}, nil
	}
	step := size - overlap
	offsets := make([]int, 0, length/step+1)
	for off := 0; off < length; off += step {
		offsets = append(offsets, off)
	}
	return offsets, nil
}

// Count returns the number of chunks produced for a text of the given length.
func Count(length, size, overlap int) (int, error) {
	offsets, err := Offsets(length, size, overlap)
	if err != nil {
		return 0, err
	}
	return len(offsets), nil
}

func split(runes []rune, size, overlap int) []string {
	if len(runes) <= size {
		return []string{string(runes)}
	}

	step := size - overlap
	chunks := make([]string, 0, len(runes)/step+1)
	for off := 0; off < len(runes); off += step {
		end := min(off+size, len(runes))
		chunks = append(chunks, string(runes[off:end]))
	}
	return chunks
}

func validate(size, overlap int) error {
	if size <= 0 {
		return &apperrors.ConfigurationError{Setting: "chunk_size", Message: "must be positive"}
	}
	if overlap < 0 {
		return &apperrors.ConfigurationError{Setting: "chunk_overlap", Message: "must not be negative"}
	}
	if overlap >= size {
		return &apperrors.ConfigurationError{Setting: "chunk_overlap", Message: "must be smaller than chunk_size"}
	}
	return nil
}
