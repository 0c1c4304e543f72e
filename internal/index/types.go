// Package index maintains the dual lexical and vector indexes and runs the
// ingestion pipeline that keeps them consistent with the filesystem.
package index

import (
	"strconv"
	"strings"
	"time"

	"github.com/seekspace/seekd/internal/store"
)

// Document is the per-file unit written to the lexical index.
type Document struct {
	DocID      string
	SourceType store.SourceType
	SourceID   int64
	SourceName string
	RelPath    string
	FileName   string
	FolderName string
	Extension  string
	Kind       string
	Content    string
	ModTime    time.Time
	Size       int64
}

// Hit is one retrieval result from either index arm.
type Hit struct {
	DocID string
	Score float64
}

// SourceRef identifies one source in a filter.
type SourceRef struct {
	Type store.SourceType
	ID   int64
}

// Filter restricts retrieval. Sources are a union; the folder prefix and
// extension set intersect with it. A nil or zero Filter matches everything.
type Filter struct {
	// Sources unions repository and directory scopes. Empty means all.
	Sources []SourceRef

	// FolderPrefix restricts to rel_paths under the given folder.
	FolderPrefix string

	// Extensions restricts to the given extensions (lowercased, no dot).
	// Empty means all.
	Extensions []string
}

// IsZero reports whether the filter matches everything.
func (f *Filter) IsZero() bool {
	return f == nil || (len(f.Sources) == 0 && f.FolderPrefix == "" && len(f.Extensions) == 0)
}

// normalizedPrefix returns the folder prefix with a trailing slash, or "".
func (f *Filter) normalizedPrefix() string {
	if f.FolderPrefix == "" {
		return ""
	}
	return strings.TrimSuffix(f.FolderPrefix, "/") + "/"
}

// Matches evaluates the filter against chunk metadata. Used to post-filter
// vector results, whose store cannot express the source union natively.
func (f *Filter) Matches(meta map[string]string) bool {
	if f.IsZero() {
		return true
	}
	if len(f.Sources) > 0 {
		ok := false
		for _, s := range f.Sources {
			if meta["source_type"] == string(s.Type) && meta["source_id"] == strconv.FormatInt(s.ID, 10) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if prefix := f.normalizedPrefix(); prefix != "" {
		if !strings.HasPrefix(meta["rel_path"], prefix) {
			return false
		}
	}
	if len(f.Extensions) > 0 {
		ok := false
		for _, ext := range f.Extensions {
			if meta["extension"] == strings.ToLower(strings.TrimPrefix(ext, ".")) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
