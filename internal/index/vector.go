package index

import (
	"context"
	"sort"
	"strconv"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/seekspace/seekd/internal/chunk"
	"github.com/seekspace/seekd/internal/embed"
	seekerrors "github.com/seekspace/seekd/internal/errors"
	"github.com/seekspace/seekd/internal/store"
)

const chunkCollection = "chunks"

// VectorStore wraps chromem for chunk-level semantic retrieval. Chunks for a
// doc_id are replaced as one set: delete by doc_id, then insert the new set.
type VectorStore struct {
	mu         sync.RWMutex
	db         *chromem.DB
	collection *chromem.Collection
	embedder   embed.Embedder
	closed     bool
}

// NewVectorStore opens or creates the chromem store at path. An empty path
// creates an in-memory store for tests.
func NewVectorStore(path string, embedder embed.Embedder) (*VectorStore, error) {
	var db *chromem.DB
	var err error
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, seekerrors.DependencyFailed("open vector store", err)
		}
	}

	// Embeddings are computed by the pipeline and passed in; the embedding
	// func only backs ad-hoc document adds.
	embeddingFunc := func(ctx context.Context, text string) ([]float32, error) {
		return embedder.Embed(ctx, text)
	}
	collection, err := db.GetOrCreateCollection(chunkCollection, nil, embeddingFunc)
	if err != nil {
		return nil, seekerrors.DependencyFailed("open chunk collection", err)
	}

	return &VectorStore{db: db, collection: collection, embedder: embedder}, nil
}

// UpsertChunks atomically replaces the chunk set for a document. The
// embeddings slice is positionally aligned with chunks.
func (v *VectorStore) UpsertChunks(ctx context.Context, doc *Document, chunks []*chunk.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return seekerrors.Newf(seekerrors.KindInternal,
			"chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return seekerrors.Newf(seekerrors.KindInternal, "vector store is closed")
	}

	if err := v.deleteDoc(ctx, doc.DocID); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(chunks))
	for i, ch := range chunks {
		docs[i] = chromem.Document{
			ID:        store.ChunkID(ch.DocID, ch.Ordinal),
			Content:   ch.Text,
			Embedding: embeddings[i],
			Metadata: map[string]string{
				"doc_id":      doc.DocID,
				"source_type": string(doc.SourceType),
				"source_id":   strconv.FormatInt(doc.SourceID, 10),
				"source_name": doc.SourceName,
				"rel_path":    doc.RelPath,
				"extension":   doc.Extension,
				"ordinal":     strconv.Itoa(ch.Ordinal),
			},
		}
	}
	if err := v.collection.AddDocuments(ctx, docs, 1); err != nil {
		return seekerrors.Transient("insert chunk embeddings", err)
	}
	return nil
}

// DeleteDocs removes all chunks for the given doc_ids.
func (v *VectorStore) DeleteDocs(ctx context.Context, docIDs []string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return seekerrors.Newf(seekerrors.KindInternal, "vector store is closed")
	}
	for _, id := range docIDs {
		if err := v.deleteDoc(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (v *VectorStore) deleteDoc(ctx context.Context, docID string) error {
	if v.collection.Count() == 0 {
		return nil
	}
	err := v.collection.Delete(ctx, map[string]string{"doc_id": docID}, nil)
	if err != nil {
		return seekerrors.Transient("delete chunks for "+docID, err)
	}
	return nil
}

// Search embeds the query and returns doc-level hits ranked by best-chunk
// similarity. The filter is applied to chunk metadata after retrieval; the
// store's native where clause cannot express a source union.
func (v *VectorStore) Search(ctx context.Context, queryText string, f *Filter, limit int) ([]Hit, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.closed {
		return nil, seekerrors.Newf(seekerrors.KindInternal, "vector store is closed")
	}

	total := v.collection.Count()
	if total == 0 {
		return []Hit{}, nil
	}

	queryVec, err := v.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, seekerrors.Wrap(seekerrors.KindDependencyFailed, "embed query", err)
	}

	// Over-fetch at the chunk level: several chunks may collapse to one doc
	// and the post-filter may discard more.
	fetch := limit * 8
	if fetch > total {
		fetch = total
	}
	results, err := v.collection.QueryEmbedding(ctx, queryVec, fetch, nil, nil)
	if err != nil {
		return nil, seekerrors.Transient("vector query failed", err)
	}

	best := make(map[string]float64)
	for _, r := range results {
		if !f.Matches(r.Metadata) {
			continue
		}
		docID := r.Metadata["doc_id"]
		score := float64(r.Similarity)
		if prev, ok := best[docID]; !ok || score > prev {
			best[docID] = score
		}
	}

	hits := make([]Hit, 0, len(best))
	for docID, score := range best {
		hits = append(hits, Hit{DocID: docID, Score: score})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].DocID < hits[j].DocID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Count returns the number of stored chunks.
func (v *VectorStore) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.collection.Count()
}

// Close marks the store closed. chromem persists on write; there is nothing
// to flush.
func (v *VectorStore) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}
