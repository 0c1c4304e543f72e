// Package store is the single source of truth for sources, file records, and
// per-source index statistics. The lexical and vector indexes hold derived
// state only; on disagreement the metadata store wins.
package store

import (
	"context"
	"time"
)

// SourceType distinguishes the two source variants.
type SourceType string

const (
	SourceTypeRepository SourceType = "repository"
	SourceTypeDirectory  SourceType = "directory"
)

// IndexType identifies one of the two parallel indexes.
type IndexType string

const (
	IndexTypeLexical IndexType = "lexical"
	IndexTypeVector  IndexType = "vector"
)

// Source is a registered root whose files are indexed.
type Source struct {
	ID          int64      // Monotonic, assigned by the store
	Type        SourceType
	Path        string // Absolute, canonical; unique across all sources
	Name        string
	Enabled     bool
	Priority    int // Sort key, higher first; orders ties only
	AutoReindex bool
	Notes       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastIndexed *time.Time
}

// SourceUpdate is a partial update of a source's mutable fields.
// Nil fields are left unchanged.
type SourceUpdate struct {
	Name        *string
	Enabled     *bool
	Priority    *int
	AutoReindex *bool
	Notes       *string
}

// SourceFilter restricts ListSources.
type SourceFilter struct {
	EnabledOnly bool
	Type        SourceType // empty matches both
}

// FileRecord represents one indexable file.
// (SourceType, SourceID, RelPath) uniquely identifies a file; DocID is a
// deterministic function of the absolute path only.
type FileRecord struct {
	DocID           string
	SourceType      SourceType
	SourceID        int64
	AbsPath         string
	RelPath         string
	Size            int64
	ModTime         time.Time
	Hash            string
	Extension       string
	Kind            string // code, markdown, text
	LastIndexedAt   time.Time
	LastIndexedHash string
}

// IndexStats holds per-(source, index) statistics. Display only; never
// consulted for correctness.
type IndexStats struct {
	SourceID        int64
	IndexType       IndexType
	FilesIndexed    int64
	BytesIndexed    int64
	InitialDuration time.Duration
	InitialAt       *time.Time
	LastDuration    time.Duration
	LastAt          *time.Time
	LastOutcome     string // ok, failed, scan_failed
}

// IndexOutcome is the result of one indexing pass over a source.
type IndexOutcome struct {
	Success      bool
	Reason       string // empty on success; e.g. "scan_failed"
	FilesIndexed int64
	BytesIndexed int64
}

// MetadataStore persists sources, file records, and index statistics.
// All writes run in transactions; reads may be non-transactional.
type MetadataStore interface {
	// Source operations
	AddSource(ctx context.Context, src *Source) (*Source, error)
	GetSource(ctx context.Context, id int64) (*Source, error)
	UpdateSource(ctx context.Context, id int64, update SourceUpdate) (*Source, error)
	DeleteSource(ctx context.Context, id int64) error
	ListSources(ctx context.Context, filter SourceFilter) ([]*Source, error)

	// File record operations
	UpsertFile(ctx context.Context, rec *FileRecord) error
	GetFile(ctx context.Context, docID string) (*FileRecord, error)
	GetFiles(ctx context.Context, docIDs []string) (map[string]*FileRecord, error)
	FilesBySource(ctx context.Context, sourceID int64) (map[string]*FileRecord, error)
	DeleteFilesMissing(ctx context.Context, sourceID int64, observed map[string]struct{}) ([]string, error)

	// Stats operations
	RecordIndexEvent(ctx context.Context, sourceID int64, indexType IndexType, outcome IndexOutcome, duration time.Duration)
	GetStats(ctx context.Context, sourceID int64) ([]*IndexStats, error)

	// Lifecycle
	Close() error
}
