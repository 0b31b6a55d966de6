// Package embedding defines the text-embedding collaborator contract.
package embedding

import (
	"context"
	"math"
)

// TaskType tells the embedding model whether the text is indexed content or
// a search query. Models may encode the two asymmetrically.
type TaskType string

const (
	TaskDocument TaskType = "document"
	TaskQuery    TaskType = "query"
)

// Provider generates embeddings for text
type Provider interface {
	// Embed returns the embedding vector for a single text
	Embed(ctx context.Context, text string, task TaskType) ([]float32, error)

	// EmbedBatch returns one vector per input text in a single round trip
	EmbedBatch(ctx context.Context, texts []string, task TaskType) ([][]float32, error)
}

// Normalize scales a vector to unit length. Cosine similarity over the
// vector store requires normalized vectors (magnitude = 1).
func Normalize(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)

	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
