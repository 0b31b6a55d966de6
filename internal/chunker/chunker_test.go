package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liliang-cn/studydoc/internal/domain"
)

func TestChunkGroupsWords(t *testing.T) {
	text := "one two three four five six seven"

	chunks, err := Chunk(text, 3)
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	assert.Equal(t, "one two three", chunks[0])
	assert.Equal(t, "four five six", chunks[1])
	assert.Equal(t, "seven", chunks[2])
}

func TestChunkReconstructsNormalizedText(t *testing.T) {
	texts := []string{
		"Paris is the capital of France.",
		"  leading and trailing   whitespace\t\tand\nnewlines  ",
		"single",
		strings.Repeat("word ", 250),
	}
	sizes := []int{1, 3, 100, 250}

	for _, text := range texts {
		words := strings.Fields(text)
		normalized := strings.Join(words, " ")
		for _, size := range sizes {
			chunks, err := Chunk(text, size)
			require.NoError(t, err)

			// Joining the chunks reproduces the whitespace-normalized text.
			assert.Equal(t, normalized, strings.Join(chunks, " "))

			// Every chunk except the last is exactly size words; the last
			// has between 1 and size.
			for i, c := range chunks {
				n := len(strings.Fields(c))
				if i < len(chunks)-1 {
					assert.Equal(t, size, n)
				} else {
					assert.GreaterOrEqual(t, n, 1)
					assert.LessOrEqual(t, n, size)
				}
			}

			// chunk count = ceil(word_count / size)
			want := (len(words) + size - 1) / size
			assert.Len(t, chunks, want)
		}
	}
}

func TestChunkIsDeterministic(t *testing.T) {
	text := "the quick brown fox jumps over the lazy dog"

	first, err := Chunk(text, 4)
	require.NoError(t, err)
	second, err := Chunk(text, 4)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestChunkEmptyTextYieldsNoChunks(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t "} {
		chunks, err := Chunk(text, 100)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	}
}

func TestChunkRejectsNonPositiveSize(t *testing.T) {
	for _, size := range []int{0, -1, -100} {
		_, err := Chunk("some text", size)
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	}
}
