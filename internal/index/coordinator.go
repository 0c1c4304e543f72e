package index

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/seekspace/seekd/internal/chunk"
	"github.com/seekspace/seekd/internal/config"
	"github.com/seekspace/seekd/internal/embed"
	seekerrors "github.com/seekspace/seekd/internal/errors"
	"github.com/seekspace/seekd/internal/scanner"
	"github.com/seekspace/seekd/internal/store"
)

// Coordinator runs indexing passes: scan, detect changes, chunk, embed, and
// write both indexes. Passes for the same source are serialized; passes for
// different sources run under a global concurrency cap.
type Coordinator struct {
	meta     store.MetadataStore
	scanner  *scanner.Scanner
	chunker  *chunk.Chunker
	embedder embed.Embedder
	lexical  *LexicalIndex
	vector   *VectorStore
	detector *ChangeDetector
	cfg      config.IndexConfig
	logger   *slog.Logger

	// semaphore caps concurrent passes globally.
	semaphore chan struct{}

	mu         sync.Mutex
	sourceLock map[int64]*sync.Mutex
}

// batchRetryConfig bounds retries of lexical batch writes. Transient batch
// failures are retried; anything else terminates the pass.
var batchRetryConfig = seekerrors.RetryConfig{
	MaxRetries:   3,
	InitialDelay: 200 * time.Millisecond,
	MaxDelay:     2 * time.Second,
	Multiplier:   2.0,
	Jitter:       true,
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(meta store.MetadataStore, sc *scanner.Scanner, embedder embed.Embedder,
	lexical *LexicalIndex, vector *VectorStore, cfg config.IndexConfig, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		meta:     meta,
		scanner:  sc,
		chunker:  chunk.New(chunk.Options{MaxChars: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}),
		embedder: embedder,
		lexical:  lexical,
		vector:   vector,
		detector: &ChangeDetector{VerifyHash: cfg.VerifyHash},
		cfg:      cfg,
		logger:   logger,

		semaphore:  make(chan struct{}, cfg.MaxConcurrentSources),
		sourceLock: make(map[int64]*sync.Mutex),
	}
}

// lockFor returns the per-source mutex, creating it on first use.
func (c *Coordinator) lockFor(sourceID int64) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.sourceLock[sourceID]
	if !ok {
		l = &sync.Mutex{}
		c.sourceLock[sourceID] = l
	}
	return l
}

// IndexSource runs one indexing pass over a source. A full pass reindexes
// every observed file; an incremental pass reindexes only files whose mtime
// or size changed. On a failed scan the pass reports failure and leaves the
// previous index state untouched; deletions are only applied after a
// successful traversal.
func (c *Coordinator) IndexSource(ctx context.Context, src *store.Source, full bool) (*store.IndexOutcome, error) {
	select {
	case c.semaphore <- struct{}{}:
		defer func() { <-c.semaphore }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	lock := c.lockFor(src.ID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()
	outcome, err := c.runPass(ctx, src, full)
	duration := time.Since(start)

	if outcome != nil {
		c.meta.RecordIndexEvent(ctx, src.ID, store.IndexTypeLexical, *outcome, duration)
		c.meta.RecordIndexEvent(ctx, src.ID, store.IndexTypeVector, *outcome, duration)
		c.logger.Info("indexing pass finished",
			slog.Int64("source_id", src.ID),
			slog.String("source", src.Name),
			slog.Bool("full", full),
			slog.Bool("success", outcome.Success),
			slog.Int64("files", outcome.FilesIndexed),
			slog.Int64("bytes", outcome.BytesIndexed),
			slog.Duration("duration", duration))
	}
	return outcome, err
}

func (c *Coordinator) runPass(ctx context.Context, src *store.Source, full bool) (*store.IndexOutcome, error) {
	owner, err := c.buildOwner(ctx)
	if err != nil {
		return nil, err
	}

	existing, err := c.meta.FilesBySource(ctx, src.ID)
	if err != nil {
		return nil, err
	}

	results, err := c.scanner.Scan(ctx, scanner.Options{
		Source:      src,
		Include:     c.cfg.Include,
		Exclude:     c.cfg.Exclude,
		MaxFileSize: c.cfg.MaxFileSize,
		Owner:       owner,
	})
	if err != nil {
		return &store.IndexOutcome{Success: false, Reason: "scan_failed"}, err
	}

	outcome := &store.IndexOutcome{Success: true}
	observed := make(map[string]struct{})
	var batch []*Document
	var pendingRecords []*store.FileRecord

	// flush commits the lexical batch, then the file records for the files
	// in it. Records committed ahead of the batch would make a failed batch
	// look indexed and every later incremental pass would skip those files.
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := seekerrors.Retry(ctx, batchRetryConfig, func() error {
			return c.lexical.Index(ctx, batch)
		})
		if err != nil {
			return err
		}
		for _, rec := range pendingRecords {
			if err := c.meta.UpsertFile(ctx, rec); err != nil {
				return err
			}
		}
		batch = batch[:0]
		pendingRecords = pendingRecords[:0]
		return nil
	}

	for res := range results {
		if res.Err != nil {
			// A failed traversal keeps prior state; no deletions happen.
			outcome.Success = false
			outcome.Reason = "scan_failed"
			c.logger.Warn("scan failed",
				slog.Int64("source_id", src.ID),
				slog.String("error", res.Err.Error()))
			return outcome, res.Err
		}

		file := res.File
		docID := store.DocID(file.AbsPath)
		observed[docID] = struct{}{}

		if !full {
			if changed, _ := c.detector.Changed(existing[docID], file); !changed {
				continue
			}
		}

		if err := c.indexFile(ctx, src, file, docID, &batch, &pendingRecords); err != nil {
			if ctx.Err() != nil {
				return outcome, ctx.Err()
			}
			c.logger.Warn("file indexing failed",
				slog.String("path", file.AbsPath),
				slog.String("error", err.Error()))
			continue
		}
		outcome.FilesIndexed++
		outcome.BytesIndexed += file.Size

		if len(batch) >= c.cfg.BatchSize {
			if err := flush(); err != nil {
				outcome.Success = false
				outcome.Reason = "index_failed"
				return outcome, err
			}
		}
	}
	if err := flush(); err != nil {
		outcome.Success = false
		outcome.Reason = "index_failed"
		return outcome, err
	}

	// Files present in records but absent from this pass were deleted or
	// excluded; remove them everywhere.
	removed, err := c.meta.DeleteFilesMissing(ctx, src.ID, observed)
	if err != nil {
		outcome.Success = false
		outcome.Reason = "reconcile_failed"
		return outcome, err
	}
	if len(removed) > 0 {
		if err := c.lexical.Delete(ctx, removed); err != nil {
			outcome.Success = false
			outcome.Reason = "reconcile_failed"
			return outcome, err
		}
		if err := c.vector.DeleteDocs(ctx, removed); err != nil {
			outcome.Success = false
			outcome.Reason = "reconcile_failed"
			return outcome, err
		}
		c.logger.Info("removed stale documents",
			slog.Int64("source_id", src.ID), slog.Int("count", len(removed)))
	}

	return outcome, nil
}

// indexFile reads, chunks, embeds, and writes one file. Vector chunks are
// replaced as one set immediately; the lexical document joins the caller's
// batch and the file record is committed only when that batch flushes.
func (c *Coordinator) indexFile(ctx context.Context, src *store.Source, file *scanner.FileInfo, docID string, batch *[]*Document, records *[]*store.FileRecord) error {
	content, err := os.ReadFile(file.AbsPath)
	if err != nil {
		return seekerrors.Transient("read file", err)
	}

	doc := &Document{
		DocID:      docID,
		SourceType: src.Type,
		SourceID:   src.ID,
		SourceName: src.Name,
		RelPath:    file.RelPath,
		FileName:   filepath.Base(file.RelPath),
		FolderName: filepath.ToSlash(filepath.Dir(file.RelPath)),
		Extension:  file.Extension,
		Kind:       file.Kind,
		Content:    string(content),
		ModTime:    file.ModTime,
		Size:       file.Size,
	}

	chunks, err := c.chunker.Split(ctx, docID, file.Kind, file.Extension, content)
	if err != nil {
		return err
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	embeddings, err := c.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	if err := c.vector.UpsertChunks(ctx, doc, chunks, embeddings); err != nil {
		return err
	}

	*batch = append(*batch, doc)
	*records = append(*records, &store.FileRecord{
		DocID:           docID,
		SourceType:      src.Type,
		SourceID:        src.ID,
		AbsPath:         file.AbsPath,
		RelPath:         file.RelPath,
		Size:            file.Size,
		ModTime:         file.ModTime,
		Hash:            HashBytes(content),
		Extension:       file.Extension,
		Kind:            file.Kind,
		LastIndexedAt:   time.Now(),
		LastIndexedHash: HashBytes(content),
	})
	return nil
}

// IndexAll runs passes over every enabled source sequentially in priority
// order. Individual failures are logged; the pass continues.
func (c *Coordinator) IndexAll(ctx context.Context, full bool) error {
	sources, err := c.meta.ListSources(ctx, store.SourceFilter{EnabledOnly: true})
	if err != nil {
		return err
	}
	for _, src := range sources {
		if _, err := c.IndexSource(ctx, src, full); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("source pass failed",
				slog.Int64("source_id", src.ID),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// RemoveSource unregisters a source. With purge, its documents are also
// removed from both indexes; otherwise index entries linger until the next
// pass over a source that owns those paths.
func (c *Coordinator) RemoveSource(ctx context.Context, sourceID int64, purge bool) error {
	var docIDs []string
	if purge {
		files, err := c.meta.FilesBySource(ctx, sourceID)
		if err != nil {
			return err
		}
		for docID := range files {
			docIDs = append(docIDs, docID)
		}
	}

	if err := c.meta.DeleteSource(ctx, sourceID); err != nil {
		return err
	}

	if purge && len(docIDs) > 0 {
		if err := c.lexical.Delete(ctx, docIDs); err != nil {
			return err
		}
		if err := c.vector.DeleteDocs(ctx, docIDs); err != nil {
			return err
		}
		c.logger.Info("purged source documents",
			slog.Int64("source_id", sourceID), slog.Int("count", len(docIDs)))
	}
	return nil
}

// buildOwner snapshots enabled sources for overlap resolution.
func (c *Coordinator) buildOwner(ctx context.Context) (*scanner.Owner, error) {
	sources, err := c.meta.ListSources(ctx, store.SourceFilter{EnabledOnly: true})
	if err != nil {
		return nil, err
	}
	return scanner.NewOwner(sources), nil
}

// Close releases the chunker's parser resources.
func (c *Coordinator) Close() {
	c.chunker.Close()
}
