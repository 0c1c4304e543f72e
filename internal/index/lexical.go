package index

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/registry"
	"github.com/blevesearch/bleve/v2/search/query"

	seekerrors "github.com/seekspace/seekd/internal/errors"
)

const (
	codeTokenizerName  = "code_tokenizer"
	codeStopFilterName = "code_stop"
	codeAnalyzerName   = "code_analyzer"
)

func init() {
	_ = registry.RegisterTokenizer(codeTokenizerName, codeTokenizerConstructor)
	_ = registry.RegisterTokenFilter(codeStopFilterName, codeStopFilterConstructor)
}

// lexicalDocument is the bleve document shape. Exact-match fields carry the
// keyword analyzer; text fields carry the code analyzer.
type lexicalDocument struct {
	SourceType string  `json:"source_type"`
	SourceID   string  `json:"source_id"`
	SourceName string  `json:"source_name"`
	RelPath    string  `json:"rel_path"`
	FileName   string  `json:"file_name"`
	FolderName string  `json:"folder_name"`
	Extension  string  `json:"extension"`
	Kind       string  `json:"kind"`
	Content    string  `json:"content"`
	ModTime    float64 `json:"mtime"`
	Size       float64 `json:"size"`
}

// LexicalIndex wraps bleve for BM25 keyword retrieval.
type LexicalIndex struct {
	mu     sync.RWMutex
	index  bleve.Index
	path   string
	closed bool
}

// NewLexicalIndex opens or creates the bleve index at path. An empty path
// creates an in-memory index for tests.
func NewLexicalIndex(path string) (*LexicalIndex, error) {
	indexMapping, err := createIndexMapping()
	if err != nil {
		return nil, seekerrors.Internal("create index mapping", err)
	}

	var idx bleve.Index
	if path == "" {
		idx, err = bleve.NewMemOnly(indexMapping)
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, seekerrors.Internal("create index directory", err)
		}
		idx, err = bleve.Open(path)
		if err == bleve.ErrorIndexPathDoesNotExist {
			idx, err = bleve.New(path, indexMapping)
		}
	}
	if err != nil {
		return nil, seekerrors.DependencyFailed("open lexical index", err)
	}

	return &LexicalIndex{index: idx, path: path}, nil
}

func createIndexMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomAnalyzer(codeAnalyzerName, map[string]any{
		"type":      custom.Name,
		"tokenizer": codeTokenizerName,
		"token_filters": []string{
			lowercase.Name,
			codeStopFilterName,
		},
	})
	if err != nil {
		return nil, err
	}
	indexMapping.DefaultAnalyzer = codeAnalyzerName

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = codeAnalyzerName

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = keyword.Name

	numericField := bleve.NewNumericFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("content", textField)
	doc.AddFieldMappingsAt("file_name", textField)
	doc.AddFieldMappingsAt("folder_name", textField)
	doc.AddFieldMappingsAt("source_type", keywordField)
	doc.AddFieldMappingsAt("source_id", keywordField)
	doc.AddFieldMappingsAt("source_name", keywordField)
	doc.AddFieldMappingsAt("rel_path", keywordField)
	doc.AddFieldMappingsAt("extension", keywordField)
	doc.AddFieldMappingsAt("kind", keywordField)
	doc.AddFieldMappingsAt("mtime", numericField)
	doc.AddFieldMappingsAt("size", numericField)
	indexMapping.DefaultMapping = doc

	return indexMapping, nil
}

// Index upserts documents in one batch, keyed by doc_id.
func (l *LexicalIndex) Index(ctx context.Context, docs []*Document) error {
	if len(docs) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return seekerrors.Newf(seekerrors.KindInternal, "lexical index is closed")
	}

	batch := l.index.NewBatch()
	for _, doc := range docs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		bdoc := lexicalDocument{
			SourceType: string(doc.SourceType),
			SourceID:   strconv.FormatInt(doc.SourceID, 10),
			SourceName: doc.SourceName,
			RelPath:    doc.RelPath,
			FileName:   doc.FileName,
			FolderName: doc.FolderName,
			Extension:  doc.Extension,
			Kind:       doc.Kind,
			Content:    doc.Content,
			ModTime:    float64(doc.ModTime.Unix()),
			Size:       float64(doc.Size),
		}
		if err := batch.Index(doc.DocID, bdoc); err != nil {
			return seekerrors.DependencyFailed("index document "+doc.DocID, err)
		}
	}

	if err := l.index.Batch(batch); err != nil {
		return seekerrors.Transient("execute lexical batch", err)
	}
	return nil
}

// Delete removes documents by doc_id. Missing IDs are a no-op.
func (l *LexicalIndex) Delete(ctx context.Context, docIDs []string) error {
	if len(docIDs) == 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return seekerrors.Newf(seekerrors.KindInternal, "lexical index is closed")
	}

	batch := l.index.NewBatch()
	for _, id := range docIDs {
		batch.Delete(id)
	}
	if err := l.index.Batch(batch); err != nil {
		return seekerrors.Transient("delete lexical documents", err)
	}
	return nil
}

// Search runs a BM25 match query over content and file names, restricted by
// the filter, and returns ranked doc-level hits.
func (l *LexicalIndex) Search(ctx context.Context, queryStr string, f *Filter, limit int) ([]Hit, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return nil, seekerrors.Newf(seekerrors.KindInternal, "lexical index is closed")
	}
	if strings.TrimSpace(queryStr) == "" {
		return []Hit{}, nil
	}

	content := bleve.NewMatchQuery(queryStr)
	content.SetField("content")
	fileName := bleve.NewMatchQuery(queryStr)
	fileName.SetField("file_name")
	fileName.SetBoost(2.0)
	text := bleve.NewDisjunctionQuery(content, fileName)

	full := composeFilter(text, f)

	req := bleve.NewSearchRequest(full)
	req.Size = limit

	result, err := l.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, seekerrors.Transient("lexical search failed", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		hits = append(hits, Hit{DocID: hit.ID, Score: hit.Score})
	}
	return hits, nil
}

// composeFilter conjoins the text query with the filter algebra: a
// disjunction over sources, a rel_path prefix, and a disjunction over
// extensions.
func composeFilter(text query.Query, f *Filter) query.Query {
	if f.IsZero() {
		return text
	}

	conjuncts := []query.Query{text}

	if len(f.Sources) > 0 {
		var sources []query.Query
		for _, s := range f.Sources {
			st := bleve.NewTermQuery(string(s.Type))
			st.SetField("source_type")
			sid := bleve.NewTermQuery(strconv.FormatInt(s.ID, 10))
			sid.SetField("source_id")
			sources = append(sources, bleve.NewConjunctionQuery(st, sid))
		}
		conjuncts = append(conjuncts, bleve.NewDisjunctionQuery(sources...))
	}

	if prefix := f.normalizedPrefix(); prefix != "" {
		pq := bleve.NewPrefixQuery(prefix)
		pq.SetField("rel_path")
		conjuncts = append(conjuncts, pq)
	}

	if len(f.Extensions) > 0 {
		var exts []query.Query
		for _, ext := range f.Extensions {
			tq := bleve.NewTermQuery(strings.ToLower(strings.TrimPrefix(ext, ".")))
			tq.SetField("extension")
			exts = append(exts, tq)
		}
		conjuncts = append(conjuncts, bleve.NewDisjunctionQuery(exts...))
	}

	return bleve.NewConjunctionQuery(conjuncts...)
}

// Count returns the number of indexed documents.
func (l *LexicalIndex) Count() (uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return 0, seekerrors.Newf(seekerrors.KindInternal, "lexical index is closed")
	}
	return l.index.DocCount()
}

// Close closes the underlying index.
func (l *LexicalIndex) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	return l.index.Close()
}

func codeTokenizerConstructor(map[string]any, *registry.Cache) (analysis.Tokenizer, error) {
	return &bleveCodeTokenizer{}, nil
}

// bleveCodeTokenizer adapts TokenizeCode to the bleve analysis chain.
type bleveCodeTokenizer struct{}

func (t *bleveCodeTokenizer) Tokenize(input []byte) analysis.TokenStream {
	text := string(input)
	tokens := TokenizeCode(text)

	result := make(analysis.TokenStream, 0, len(tokens))
	pos := 1
	offset := 0
	for _, token := range tokens {
		start := strings.Index(strings.ToLower(text[offset:]), token)
		if start == -1 {
			start = offset
		} else {
			start += offset
		}
		end := start + len(token)

		result = append(result, &analysis.Token{
			Term:     []byte(token),
			Start:    start,
			End:      end,
			Position: pos,
			Type:     analysis.AlphaNumeric,
		})
		pos++
		if end <= len(text) {
			offset = end
		}
	}
	return result
}

func codeStopFilterConstructor(map[string]any, *registry.Cache) (analysis.TokenFilter, error) {
	return &bleveCodeStopFilter{}, nil
}

type bleveCodeStopFilter struct{}

func (f *bleveCodeStopFilter) Filter(input analysis.TokenStream) analysis.TokenStream {
	result := make(analysis.TokenStream, 0, len(input))
	for _, token := range input {
		if _, isStop := codeStopWords[strings.ToLower(string(token.Term))]; isStop {
			continue
		}
		result = append(result, token)
	}
	return result
}
