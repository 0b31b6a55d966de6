package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/liliang-cn/studydoc/internal/domain"
	"github.com/liliang-cn/studydoc/internal/indexer"
	"github.com/liliang-cn/studydoc/internal/repository"
)

// DocumentService handles lesson import, storage and semantic search
type DocumentService struct {
	documentRepo *repository.DocumentRepository
	indexer      *indexer.Indexer
	storageDir   string
	logger       *zap.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	documentRepo *repository.DocumentRepository,
	ix *indexer.Indexer,
	storageDir string,
	logger *zap.Logger,
) *DocumentService {
	return &DocumentService{
		documentRepo: documentRepo,
		indexer:      ix,
		storageDir:   storageDir,
		logger:       logger,
	}
}

// IsSupported checks whether the filename carries a lesson extension
func IsSupported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case domain.FileTypeTXT, domain.FileTypeMD, domain.FileTypeText:
		return true
	}
	return false
}

// Import copies external content into app storage and indexes it in the
// background. Returns the created document immediately.
func (s *DocumentService) Import(ctx context.Context, name, content string) (*domain.Document, error) {
	if !IsSupported(name) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFileType, filepath.Ext(name))
	}

	if err := os.MkdirAll(s.storageDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	docID := uuid.New().String()
	storagePath := filepath.Join(s.storageDir, docID+filepath.Ext(name))
	if err := os.WriteFile(storagePath, []byte(content), 0644); err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}

	document := &domain.Document{
		ID:   docID,
		Name: name,
		Path: storagePath,
	}
	if err := s.documentRepo.Create(document); err != nil {
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	// Indexing runs on its own worker, independent of any inference
	// activity. A failure here leaves the document unsearchable but intact.
	go func() {
		if _, err := s.indexer.Index(context.Background(), docID, content); err != nil {
			s.logger.Error("document indexing failed",
				zap.String("document_id", docID),
				zap.Error(err),
			)
		}
	}()

	return document, nil
}

// List returns all imported documents
func (s *DocumentService) List(ctx context.Context) ([]*domain.Document, error) {
	return s.documentRepo.List()
}

// Get returns a document plus its raw text
func (s *DocumentService) Get(ctx context.Context, id string) (*domain.DocumentContent, error) {
	document, err := s.documentRepo.Get(id)
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, domain.ErrNotFound
	}

	content, err := os.ReadFile(document.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document content: %w", err)
	}
	return &domain.DocumentContent{Document: *document, Content: string(content)}, nil
}

// Rewrite replaces a document's content in place and reindexes it, dropping
// the stale embedding records of the old content.
func (s *DocumentService) Rewrite(ctx context.Context, id, content string) error {
	document, err := s.documentRepo.Get(id)
	if err != nil {
		return err
	}
	if document == nil {
		return domain.ErrNotFound
	}

	if err := os.WriteFile(document.Path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write document content: %w", err)
	}
	if err := s.documentRepo.Touch(id); err != nil {
		return err
	}

	if _, err := s.indexer.Reindex(ctx, id, content); err != nil {
		s.logger.Error("reindex after rewrite failed",
			zap.String("document_id", id),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// Search embeds the query and returns matching documents ranked nearest
// first. Collaborator failures surface as an empty result, never a crash.
func (s *DocumentService) Search(ctx context.Context, query string) ([]*domain.Document, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	ids, err := s.indexer.Query(ctx, query)
	if err != nil {
		s.logger.Error("semantic search failed", zap.String("query", query), zap.Error(err))
		return []*domain.Document{}, nil
	}
	return s.documentRepo.GetByIDs(ids)
}
