package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-rag/pkg/apperrors"
)

func TestSplit_ThreeChunksForTwentyThreeHundredChars(t *testing.T) {
	text := strings.Repeat("abcdefghij", 230)

	chunks, err := Split(text, 1000, 200)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, text[0:1000], chunks[0])
	assert.Equal(t, text[800:1800], chunks[1])
	assert.Equal(t, text[1600:2300], chunks[2])

	offsets, err := Offsets(len(text), 1000, 200)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 800, 1600}, offsets)
}

func TestSplit_ShortTextIsSingleChunk(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"short", "hello world"},
		{"exactly size", strings.Repeat("x", 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Split(tt.text, 10, 3)
			require.NoError(t, err)
			assert.Equal(t, []string{tt.text}, chunks)
		})
	}
}

func TestSplit_InvalidSettings(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
		{"zero size", 0, 0},
		{"negative overlap", 100, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split("some text", tt.size, tt.overlap)
			var cfgErr *apperrors.ConfigurationError
			assert.True(t, errors.As(err, &cfgErr), "expected ConfigurationError, got %v", err)

			_, err = New(tt.size, tt.overlap)
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

// Every position of the input belongs to at least one chunk and chunk starts
// advance by exactly size-overlap.
func TestOffsets_CoverWholeText(t *testing.T) {
	settings := []struct{ size, overlap int }{
		{1000, 200}, {10, 0}, {10, 9}, {7, 3}, {1, 0},
	}

	for _, s := range settings {
		for length := 0; length <= 60; length++ {
			offsets, err := Offsets(length, s.size, s.overlap)
			require.NoError(t, err)
			require.NotEmpty(t, offsets)
			assert.Equal(t, 0, offsets[0])

			covered := make([]bool, length)
			for i, off := range offsets {
				if i > 0 {
					assert.Equal(t, s.size-s.overlap, off-offsets[i-1])
				}
				assert.Less(t, off, max(length, 1))
				for p := off; p < min(off+s.size, length); p++ {
					covered[p] = true
				}
			}
			for p, ok := range covered {
				assert.True(t, ok, "position %d uncovered (len=%d size=%d overlap=%d)", p, length, s.size, s.overlap)
			}

			if length > s.size {
				step := s.size - s.overlap
				want := (length + step - 1) / step
				assert.Len(t, offsets, want, "len=%d size=%d overlap=%d", length, s.size, s.overlap)
			}
		}
	}
}

func TestSplit_CountsRunesNotBytes(t *testing.T) {
	text := strings.Repeat("é", 12)

	chunks, err := Split(text, 5, 1)
	require.NoError(t, err)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.True(t, len([]rune(c)) <= 5)
		assert.Equal(t, strings.Repeat("é", len([]rune(c))), c)
	}
}

func TestChunker_SplitMatchesFunction(t *testing.T) {
	c, err := New(1000, 200)
	require.NoError(t, err)
	assert.Equal(t, 1000, c.Size())
	assert.Equal(t, 200, c.Overlap())

	text := strings.Repeat("word ", 500)
	want, err := Split(text, 1000, 200)
	require.NoError(t, err)
	assert.Equal(t, want, c.Split(text))

	n, err := Count(len(text), 1000, 200)
	require.NoError(t, err)
	assert.Len(t, want, n)
}
