// Package indexer orchestrates the import pipeline (chunk, batch embed,
// store) and answers semantic queries over the indexed documents.
package indexer

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/liliang-cn/studydoc/internal/chunker"
	"github.com/liliang-cn/studydoc/internal/domain"
	"github.com/liliang-cn/studydoc/internal/embedding"
	"github.com/liliang-cn/studydoc/internal/vectorstore"
)

// Options configures an Indexer. Zero values fall back to the defaults the
// mobile client shipped with.
type Options struct {
	ChunkSize     int
	SearchLimit   int
	MinSimilarity float32
	QueryCacheTTL time.Duration
}

const (
	defaultSearchLimit   = 10
	defaultMinSimilarity = 0.7
	defaultQueryCacheTTL = 5 * time.Minute
)

type Indexer struct {
	embedder embedding.Provider
	store    vectorstore.Store
	logger   *zap.Logger
	opts     Options

	// queryCache maps query text to its embedding, so repeated searches
	// skip the embedding round trip.
	queryCache *gocache.Cache
}

func New(embedder embedding.Provider, store vectorstore.Store, logger *zap.Logger, opts Options) *Indexer {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = chunker.DefaultChunkSize
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = defaultSearchLimit
	}
	if opts.MinSimilarity <= 0 {
		opts.MinSimilarity = defaultMinSimilarity
	}
	if opts.QueryCacheTTL <= 0 {
		opts.QueryCacheTTL = defaultQueryCacheTTL
	}
	return &Indexer{
		embedder:   embedder,
		store:      store,
		logger:     logger,
		opts:       opts,
		queryCache: gocache.New(opts.QueryCacheTTL, 2*opts.QueryCacheTTL),
	}
}

// Index chunks the document text, embeds all chunks in one batch call and
// inserts one record per chunk carrying the document id. Records are buffered
// until every embedding has arrived, so an embedding failure inserts nothing.
// Returns the number of chunks indexed.
func (ix *Indexer) Index(ctx context.Context, documentID, text string) (int, error) {
	chunks, err := chunker.Chunk(text, ix.opts.ChunkSize)
	if err != nil {
		return 0, err
	}
	if len(chunks) == 0 {
		ix.logger.Warn("document has no indexable content", zap.String("document_id", documentID))
		return 0, nil
	}

	vectors, err := ix.embedder.EmbedBatch(ctx, chunks, embedding.TaskDocument)
	if err != nil {
		return 0, fmt.Errorf("embed document chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	metadata := map[string]string{domain.MetadataKeyDocumentID: documentID}
	for _, vec := range vectors {
		if _, err := ix.store.Insert(vec, metadata); err != nil {
			return 0, fmt.Errorf("insert embedding record: %w", err)
		}
	}

	ix.logger.Info("document indexed",
		zap.String("document_id", documentID),
		zap.Int("chunks", len(chunks)),
	)
	return len(chunks), nil
}

// Reindex drops a document's existing records and indexes the given text in
// their place. Used after a document's content is rewritten.
func (ix *Indexer) Reindex(ctx context.Context, documentID, text string) (int, error) {
	if err := ix.store.DeleteByDocument(documentID); err != nil {
		return 0, fmt.Errorf("delete stale records: %w", err)
	}
	return ix.Index(ctx, documentID, text)
}

// Query embeds the query text and returns the ids of matching documents,
// nearest first, deduplicated. Failures surface as an empty list plus the
// error; callers log and render "no results" rather than crash.
func (ix *Indexer) Query(ctx context.Context, query string) ([]string, error) {
	vector, err := ix.queryVector(ctx, query)
	if err != nil {
		ix.logger.Error("query embedding failed", zap.String("query", query), zap.Error(err))
		return nil, fmt.Errorf("embed query: %w", err)
	}

	records, err := ix.store.Nearest(vector, ix.opts.SearchLimit, ix.opts.MinSimilarity)
	if err != nil {
		ix.logger.Error("vector search failed", zap.String("query", query), zap.Error(err))
		return nil, fmt.Errorf("vector search: %w", err)
	}

	seen := make(map[string]bool)
	var documentIDs []string
	for _, record := range records {
		id := record.Metadata[domain.MetadataKeyDocumentID]
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		documentIDs = append(documentIDs, id)
	}
	return documentIDs, nil
}

func (ix *Indexer) queryVector(ctx context.Context, query string) ([]float32, error) {
	if cached, found := ix.queryCache.Get(query); found {
		return cached.([]float32), nil
	}
	vector, err := ix.embedder.Embed(ctx, query, embedding.TaskQuery)
	if err != nil {
		return nil, err
	}
	ix.queryCache.SetDefault(query, vector)
	return vector, nil
}
