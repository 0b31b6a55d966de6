// Package sqlite is a vector store persisted in a sqlite database, so the
// index survives restarts. Search is a brute-force scan scored in memory,
// which is fine at the scale of a personal lesson library.
package sqlite

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/liliang-cn/studydoc/internal/domain"
	"github.com/liliang-cn/studydoc/internal/vectorstore"
)

type Store struct {
	db        *sqlx.DB
	dimension int
}

var _ vectorstore.Store = &Store{}

func NewStore(dbPath string, dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be positive, got %d", domain.ErrInvalidArgument, dimension)
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open vector store: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS embeddings (
		id TEXT PRIMARY KEY,
		document_id TEXT NOT NULL,
		vector BLOB NOT NULL,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_embeddings_document ON embeddings(document_id);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &Store{db: db, dimension: dimension}, nil
}

func (s *Store) Insert(vector []float32, metadata map[string]string) (string, error) {
	if len(vector) != s.dimension {
		return "", fmt.Errorf("%w: got %d, store holds %d", domain.ErrDimensionMismatch, len(vector), s.dimension)
	}

	id := uuid.New().String()
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO embeddings (id, document_id, vector, metadata)
		VALUES (?, ?, ?, ?)
	`, id, metadata[domain.MetadataKeyDocumentID], encodeVector(vector), string(metaJSON))
	if err != nil {
		return "", fmt.Errorf("insert embedding: %w", err)
	}
	return id, nil
}

func (s *Store) Nearest(vector []float32, limit int, minSimilarity float32) ([]vectorstore.Record, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: got %d, store holds %d", domain.ErrDimensionMismatch, len(vector), s.dimension)
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.db.Query(`SELECT id, vector, metadata FROM embeddings`)
	if err != nil {
		return nil, fmt.Errorf("scan embeddings: %w", err)
	}
	defer rows.Close()

	type scored struct {
		record vectorstore.Record
		score  float64
	}
	var matches []scored
	for rows.Next() {
		var id string
		var blob []byte
		var metaJSON string
		if err := rows.Scan(&id, &blob, &metaJSON); err != nil {
			return nil, err
		}

		vec, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decode vector %s: %w", id, err)
		}

		score := vectorstore.Dot(vec, vector)
		if score < float64(minSimilarity) {
			continue
		}

		metadata := make(map[string]string)
		if metaJSON != "" {
			json.Unmarshal([]byte(metaJSON), &metadata)
		}
		matches = append(matches, scored{
			record: vectorstore.Record{ID: id, Vector: vec, Metadata: metadata},
			score:  score,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
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
	_, err := s.db.Exec(`DELETE FROM embeddings WHERE document_id = ?`, documentID)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("malformed vector blob of %d bytes", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}
