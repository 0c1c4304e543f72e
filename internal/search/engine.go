package search

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/seekspace/seekd/internal/config"
	seekerrors "github.com/seekspace/seekd/internal/errors"
	"github.com/seekspace/seekd/internal/index"
	"github.com/seekspace/seekd/internal/store"
)

// overFetchFactor is how many candidates each arm retrieves relative to the
// requested limit. Fusion can promote documents ranked below the limit in a
// single arm, so each arm over-fetches.
const overFetchFactor = 3

// Engine coordinates retrieval over both indexes.
type Engine struct {
	lexical *index.LexicalIndex
	vector  *index.VectorStore
	meta    store.MetadataStore
	cfg     config.SearchConfig
	logger  *slog.Logger
}

// NewEngine creates a search engine.
func NewEngine(lexical *index.LexicalIndex, vector *index.VectorStore, meta store.MetadataStore,
	cfg config.SearchConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{lexical: lexical, vector: vector, meta: meta, cfg: cfg, logger: logger}
}

// Search runs one retrieval pass. Hybrid mode queries both arms in parallel;
// if exactly one arm fails the response is served from the survivor and
// flagged degraded. Both arms failing is an error.
func (e *Engine) Search(ctx context.Context, req *Request) (*Response, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, seekerrors.InvalidInput("query must not be empty")
	}
	mode := req.Mode
	if mode == "" {
		mode = ModeHybrid
	}
	switch mode {
	case ModeKeyword, ModeSemantic, ModeHybrid:
	default:
		return nil, seekerrors.InvalidInput("unknown search mode: %s", mode)
	}

	limit := req.Limit
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	if limit > e.cfg.MaxLimit {
		limit = e.cfg.MaxLimit
	}

	if e.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp := &Response{Mode: mode}
	fetch := limit * overFetchFactor

	var keywordHits, semanticHits []index.Hit
	switch mode {
	case ModeKeyword:
		var err error
		keywordHits, err = e.lexical.Search(ctx, req.Query, req.Filter, fetch)
		if err != nil {
			return nil, err
		}
	case ModeSemantic:
		var err error
		semanticHits, err = e.vector.Search(ctx, req.Query, req.Filter, fetch)
		if err != nil {
			return nil, err
		}
	case ModeHybrid:
		var keywordErr, semanticErr error
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			keywordHits, keywordErr = e.lexical.Search(gctx, req.Query, req.Filter, fetch)
			return nil
		})
		g.Go(func() error {
			semanticHits, semanticErr = e.vector.Search(gctx, req.Query, req.Filter, fetch)
			return nil
		})
		_ = g.Wait()

		if keywordErr != nil && semanticErr != nil {
			return nil, seekerrors.Wrap(seekerrors.KindDependencyFailed, "both retrieval arms failed", keywordErr)
		}
		if keywordErr != nil || semanticErr != nil {
			resp.Degraded = true
			armErr := keywordErr
			arm := "keyword"
			if semanticErr != nil {
				armErr = semanticErr
				arm = "semantic"
			}
			e.logger.Warn("retrieval arm failed, serving degraded results",
				slog.String("arm", arm), slog.String("error", armErr.Error()))
		}
	}

	fused := e.fuse(mode, keywordHits, semanticHits, req)
	if req.MinScore > 0 {
		cut := fused[:0]
		for _, f := range fused {
			if f.score >= req.MinScore {
				cut = append(cut, f)
			}
		}
		fused = cut
	}
	if len(fused) > limit {
		fused = fused[:limit]
	}

	results, err := e.hydrate(ctx, fused, req.Query)
	if err != nil {
		return nil, err
	}

	resp.Results = results
	resp.Total = len(results)
	resp.Took = time.Since(start)
	return resp, nil
}

// fuse dispatches per mode. Hybrid fuses both arms with weighted RRF;
// single-arm modes keep the arm's native scores and order: BM25 for keyword,
// cosine similarity for semantic.
func (e *Engine) fuse(mode Mode, keywordHits, semanticHits []index.Hit, req *Request) []fusedHit {
	switch mode {
	case ModeKeyword:
		return passthrough(keywordHits, true)
	case ModeSemantic:
		return passthrough(semanticHits, false)
	}

	kw, sw := e.cfg.KeywordWeight, e.cfg.SemanticWeight
	if req.KeywordWeight > 0 && req.SemanticWeight > 0 {
		kw, sw = req.KeywordWeight, req.SemanticWeight
	}
	return fuse(keywordHits, semanticHits, fusionConfig{
		k:              e.cfg.RRFConstant,
		keywordWeight:  kw,
		semanticWeight: sw,
	})
}

// hydrate joins fused hits with file records. Hits whose record is gone are
// dropped without backfilling from deeper ranks; the next indexing pass will
// reconcile the indexes.
func (e *Engine) hydrate(ctx context.Context, fused []fusedHit, query string) ([]*Result, error) {
	if len(fused) == 0 {
		return []*Result{}, nil
	}

	docIDs := make([]string, len(fused))
	for i, f := range fused {
		docIDs[i] = f.docID
	}
	records, err := e.meta.GetFiles(ctx, docIDs)
	if err != nil {
		return nil, err
	}
	names := e.sourceNames(ctx)

	results := make([]*Result, 0, len(fused))
	for _, f := range fused {
		rec, ok := records[f.docID]
		if !ok {
			e.logger.Debug("dropping hit without file record", slog.String("doc_id", f.docID))
			continue
		}
		results = append(results, &Result{
			DocID:        f.docID,
			Score:        f.score,
			SourceType:   rec.SourceType,
			SourceID:     rec.SourceID,
			SourceName:   names[rec.SourceID],
			RelPath:      rec.RelPath,
			AbsPath:      rec.AbsPath,
			Extension:    rec.Extension,
			Kind:         rec.Kind,
			ModTime:      rec.ModTime,
			Snippet:      makeSnippet(rec.AbsPath, query),
			KeywordRank:  f.keywordRank,
			SemanticRank: f.semanticRank,
		})
	}
	return results, nil
}

// sourceNames maps source id to name. Best effort; a failed lookup yields an
// empty map and results without source names.
func (e *Engine) sourceNames(ctx context.Context) map[int64]string {
	sources, err := e.meta.ListSources(ctx, store.SourceFilter{})
	if err != nil {
		e.logger.Debug("source name lookup failed", slog.String("error", err.Error()))
		return nil
	}
	names := make(map[int64]string, len(sources))
	for _, src := range sources {
		names[src.ID] = src.Name
	}
	return names
}

const (
	snippetMaxLen  = 240
	snippetMaxRead = 256 * 1024
)

// makeSnippet extracts a window of file content around the first occurrence
// of any query term, falling back to the file head when no term matches.
// Returns "" when the file cannot be read.
func makeSnippet(absPath, query string) string {
	f, err := os.Open(absPath)
	if err != nil {
		return ""
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, snippetMaxRead))
	if err != nil || len(raw) == 0 {
		return ""
	}

	content := string(raw)
	lower := strings.ToLower(content)
	at := -1
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if idx := strings.Index(lower, term); idx >= 0 && (at < 0 || idx < at) {
			at = idx
		}
	}
	if at < 0 {
		at = 0
	}

	start := at - snippetMaxLen/4
	if start < 0 {
		start = 0
	}
	end := start + snippetMaxLen
	if end > len(content) {
		end = len(content)
	}

	snippet := strings.ToValidUTF8(content[start:end], "")
	return strings.TrimSpace(snippet)
}

// SortResultsByPath reorders results lexically by rel_path, a display helper
// for grouped CLI output.
func SortResultsByPath(results []*Result) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].RelPath < results[j].RelPath
	})
}
