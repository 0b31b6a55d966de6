package domain

import "time"

// Supported lesson file extensions
const (
	FileTypeTXT  = ".txt"
	FileTypeMD   = ".md"
	FileTypeText = ".text"
)

// MetadataKeyDocumentID is the metadata key stored with every embedding record
const MetadataKeyDocumentID = "document_id"

// Document represents an imported lesson file. The raw text lives on disk
// under the storage directory; only metadata is kept in the database.
type Document struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Path      string    `json:"path" db:"path"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ImportDocumentRequest is the request to import a lesson document
type ImportDocumentRequest struct {
	Name    string `json:"name" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// DocumentContent is a document plus its raw text
type DocumentContent struct {
	Document Document `json:"document"`
	Content  string   `json:"content"`
}

// DocumentListResponse is the response for listing documents
type DocumentListResponse struct {
	Documents []*Document `json:"documents"`
	Total     int         `json:"total"`
}

// SearchResponse is the response for a semantic document search
type SearchResponse struct {
	Query     string      `json:"query"`
	Documents []*Document `json:"documents"`
}
