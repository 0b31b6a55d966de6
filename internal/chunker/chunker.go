// Package chunker splits raw lesson text into fixed-size word chunks, the
// unit of embedding for the document index.
package chunker

import (
	"fmt"
	"strings"

	"github.com/liliang-cn/studydoc/internal/domain"
)

// DefaultChunkSize is the number of words per chunk used at index time.
const DefaultChunkSize = 100

// Chunk splits text on whitespace runs into words and groups them into
// chunks of exactly chunkSize words, except the final chunk which holds the
// remainder. Each chunk is the space-joined, trimmed word group. Text with no
// words yields no chunks; embedding an empty string is wasted work.
func Chunk(text string, chunkSize int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidArgument, chunkSize)
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	chunks := make([]string, 0, (len(words)+chunkSize-1)/chunkSize)
	for i := 0; i < len(words); i += chunkSize {
		end := i + chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks, nil
}
