// Package memory is a simple in-memory vector store using brute-force
// cosine similarity. It holds nothing across restarts; the sqlite store is
// the persistent option.
package memory

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/liliang-cn/studydoc/internal/domain"
	"github.com/liliang-cn/studydoc/internal/vectorstore"
)

type Store struct {
	mu        sync.RWMutex
	dimension int
	records   []vectorstore.Record
}

var _ vectorstore.Store = &Store{}

func NewStore(dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidArgument, dimension)
	}
	return &Store{dimension: dimension}, nil
}

func (s *Store) Insert(vector []float32, metadata map[string]string) (string, error) {
	if len(vector) != s.dimension {
		return "", fmt.Errorf("%w: got %d, store holds %d", domain.ErrDimensionMismatch, len(vector), s.dimension)
	}

	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}
	record := vectorstore.Record{
		ID:       uuid.New().String(),
		Vector:   append([]float32(nil), vector...),
		Metadata: meta,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return record.ID, nil
}

func (s *Store) Nearest(vector []float32, limit int, minSimilarity float32) ([]vectorstore.Record, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: got %d, store holds %d", domain.ErrDimensionMismatch, len(vector), s.dimension)
	}
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		record vectorstore.Record
		score  float64
	}
	matches := make([]scored, 0, len(s.records))
	for _, r := range s.records {
		score := vectorstore.Dot(r.Vector, vector)
		if score >= float64(minSimilarity) {
			matches = append(matches, scored{record: r, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})

	if limit > len(matches) {
		limit = len(matches)
	}
	results := make([]vectorstore.Record, 0, limit)
	for i := 0; i < limit; i++ {
		results = append(results, matches[i].record)
	}
	return results, nil
}

func (s *Store) DeleteByDocument(documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	for _, r := range s.records {
		if r.Metadata[domain.MetadataKeyDocumentID] != documentID {
			kept = append(kept, r)
		}
	}
	s.records = kept
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}
