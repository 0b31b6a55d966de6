package indexer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liliang-cn/studydoc/internal/testutil"
	"github.com/liliang-cn/studydoc/internal/vectorstore/memory"
)

func newTestIndexer(t *testing.T, opts Options) (*Indexer, *testutil.FakeEmbedder) {
	t.Helper()
	embedder := testutil.NewFakeEmbedder(64)
	store, err := memory.NewStore(64)
	require.NoError(t, err)
	return New(embedder, store, zap.NewNop(), opts), embedder
}

func TestIndexThenQueryRoundTrip(t *testing.T) {
	ix, _ := newTestIndexer(t, Options{})
	ctx := context.Background()

	count, err := ix.Index(ctx, "doc-paris", "Paris is the capital of France.")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	ids, err := ix.Query(ctx, "the capital of France")
	require.NoError(t, err)
	require.NotEmpty(t, ids)
	assert.Equal(t, "doc-paris", ids[0])
}

func TestIndexBatchesEmbeddingsInOneCall(t *testing.T) {
	ix, embedder := newTestIndexer(t, Options{ChunkSize: 2})
	ctx := context.Background()

	count, err := ix.Index(ctx, "doc", "one two three four five six seven")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.Equal(t, 1, embedder.BatchCalls)
}

func TestQueryDeduplicatesByDocument(t *testing.T) {
	ix, _ := newTestIndexer(t, Options{ChunkSize: 3, MinSimilarity: 0.1})
	ctx := context.Background()

	// Two documents sharing vocabulary; the first spans multiple chunks
	// whose records all carry the same document id.
	_, err := ix.Index(ctx, "doc-a", "tides rise tides fall tides turn tides ebb")
	require.NoError(t, err)
	_, err = ix.Index(ctx, "doc-b", "tides carry ships")
	require.NoError(t, err)

	ids, err := ix.Query(ctx, "tides")
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, "doc-a", ids[0])
	assert.Equal(t, "doc-b", ids[1])
}

func TestIndexEmbeddingFailureInsertsNothing(t *testing.T) {
	embedder := testutil.NewFakeEmbedder(64)
	embedder.FailBatch = true
	store, err := memory.NewStore(64)
	require.NoError(t, err)
	ix := New(embedder, store, zap.NewNop(), Options{})
	ctx := context.Background()

	_, err = ix.Index(ctx, "doc", "some lesson content here")
	require.Error(t, err)

	// No partial records: a later query over the same store finds nothing.
	embedder.FailBatch = false
	ids, err := ix.Query(ctx, "some lesson content here")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestQueryFailureReturnsEmptyList(t *testing.T) {
	embedder := testutil.NewFakeEmbedder(64)
	embedder.FailSingle = true
	store, err := memory.NewStore(64)
	require.NoError(t, err)
	ix := New(embedder, store, zap.NewNop(), Options{})

	ids, err := ix.Query(context.Background(), "anything")
	assert.Error(t, err)
	assert.Empty(t, ids)
}

func TestIndexEmptyDocumentIsNoop(t *testing.T) {
	ix, embedder := newTestIndexer(t, Options{})

	count, err := ix.Index(context.Background(), "doc", "   \n\t ")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Zero(t, embedder.BatchCalls)
}

func TestReindexDropsStaleRecords(t *testing.T) {
	ix, _ := newTestIndexer(t, Options{MinSimilarity: 0.3})
	ctx := context.Background()

	_, err := ix.Index(ctx, "doc", "volcanoes erupt molten lava")
	require.NoError(t, err)

	_, err = ix.Reindex(ctx, "doc", "glaciers carve deep valleys")
	require.NoError(t, err)

	// The old content no longer matches.
	ids, err := ix.Query(ctx, "volcanoes erupt molten lava")
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = ix.Query(ctx, "glaciers carve deep valleys")
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, "doc", ids[0])
}

func TestQueryUsesEmbeddingCache(t *testing.T) {
	embedder := testutil.NewFakeEmbedder(64)
	store, err := memory.NewStore(64)
	require.NoError(t, err)
	ix := New(embedder, store, zap.NewNop(), Options{})
	ctx := context.Background()

	_, err = ix.Query(ctx, "repeated query")
	require.NoError(t, err)

	// Second run must not hit the embedder again.
	embedder.FailSingle = true
	_, err = ix.Query(ctx, "repeated query")
	assert.NoError(t, err)
}
