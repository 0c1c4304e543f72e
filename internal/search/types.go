// Package search runs keyword, semantic, and hybrid retrieval over the dual
// indexes and fuses the arms with weighted reciprocal rank fusion.
package search

import (
	"time"

	"github.com/seekspace/seekd/internal/index"
	"github.com/seekspace/seekd/internal/store"
)

// Mode selects the retrieval strategy.
type Mode string

const (
	ModeKeyword  Mode = "keyword"
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

// Request is one search invocation.
type Request struct {
	Query string
	Mode  Mode

	// Limit caps returned results. Zero uses the configured default.
	Limit int

	// MinScore drops results below the threshold. Hybrid and semantic
	// scores lie in [0, 1]; keyword scores are raw BM25.
	MinScore float64

	// Filter restricts retrieval before fusion.
	Filter *index.Filter

	// KeywordWeight and SemanticWeight override the configured fusion
	// weights when both are set.
	KeywordWeight  float64
	SemanticWeight float64
}

// Result is one fused, hydrated hit.
type Result struct {
	DocID      string           `json:"doc_id"`
	Score      float64          `json:"score"`
	SourceType store.SourceType `json:"source_type"`
	SourceID   int64            `json:"source_id"`
	SourceName string           `json:"source_name"`
	RelPath    string           `json:"rel_path"`
	AbsPath    string           `json:"abs_path"`
	Extension  string           `json:"extension"`
	Kind       string           `json:"kind"`
	ModTime    time.Time        `json:"mtime"`

	// Snippet is a window of file content around the first query term
	// occurrence. Best effort; empty when the file is unreadable.
	Snippet string `json:"snippet,omitempty"`

	// KeywordRank and SemanticRank are 1-based ranks in each arm, 0 when
	// the arm did not return the document.
	KeywordRank  int `json:"keyword_rank,omitempty"`
	SemanticRank int `json:"semantic_rank,omitempty"`
}

// Response carries fused results plus retrieval diagnostics.
type Response struct {
	Results []*Result     `json:"results"`
	Mode    Mode          `json:"mode"`
	Total   int           `json:"total"`
	Took    time.Duration `json:"took"`

	// Degraded is set when one hybrid arm failed and results come from the
	// surviving arm alone.
	Degraded bool `json:"degraded,omitempty"`
}
