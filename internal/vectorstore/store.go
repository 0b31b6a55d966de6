// Package vectorstore defines the nearest-neighbor store collaborator
// contract over embedding records.
package vectorstore

// Record is one stored embedding plus its metadata
type Record struct {
	ID       string
	Vector   []float32
	Metadata map[string]string
}

// Store persists embedding records and answers nearest-neighbor queries.
// Implementations are fixed to one vector dimension; mismatched vectors fail
// fast. Vectors are expected to be L2-normalized, so cosine similarity
// reduces to a dot product.
type Store interface {
	// Insert stores one record and returns its assigned id
	Insert(vector []float32, metadata map[string]string) (string, error)

	// Nearest returns up to limit records with similarity >= minSimilarity,
	// ordered nearest first.
	Nearest(vector []float32, limit int, minSimilarity float32) ([]Record, error)

	// DeleteByDocument removes all records carrying the document id in
	// their metadata. Used when a document's content is rewritten.
	DeleteByDocument(documentID string) error

	// Close releases the store's resources
	Close() error
}

// Dot returns the dot product of two vectors. Over normalized vectors this
// is the cosine similarity.
func Dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
