package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/liliang-cn/studydoc/internal/domain"
)

// DocumentRepository handles document metadata persistence
type DocumentRepository struct {
	db *DB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create inserts a new document row
func (r *DocumentRepository) Create(document *domain.Document) error {
	if document.ID == "" {
		document.ID = uuid.New().String()
	}
	now := time.Now()
	document.CreatedAt = now
	document.UpdatedAt = now

	_, err := r.db.Exec(`
		INSERT INTO documents (id, name, path, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, document.ID, document.Name, document.Path, document.CreatedAt, document.UpdatedAt)

	return err
}

// Get retrieves a document by ID
func (r *DocumentRepository) Get(id string) (*domain.Document, error) {
	document := &domain.Document{}
	err := r.db.Get(document, `
		SELECT id, name, path, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return document, nil
}

// List retrieves all documents, newest first
func (r *DocumentRepository) List() ([]*domain.Document, error) {
	var documents []*domain.Document
	err := r.db.Select(&documents, `
		SELECT id, name, path, created_at, updated_at
		FROM documents ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	return documents, nil
}

// GetByIDs retrieves documents for the given ids, preserving input order
func (r *DocumentRepository) GetByIDs(ids []string) ([]*domain.Document, error) {
	documents := make([]*domain.Document, 0, len(ids))
	for _, id := range ids {
		document, err := r.Get(id)
		if err != nil {
			return nil, err
		}
		if document != nil {
			documents = append(documents, document)
		}
	}
	return documents, nil
}

// Touch updates a document's updated_at timestamp
func (r *DocumentRepository) Touch(id string) error {
	_, err := r.db.Exec(`UPDATE documents SET updated_at = ? WHERE id = ?`, time.Now(), id)
	return err
}
