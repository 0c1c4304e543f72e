// Package scanner enumerates candidate files for a source, applies
// include/exclude patterns, classifies by kind, and streams file records to
// the change detector.
package scanner

import (
	"time"

	"github.com/seekspace/seekd/internal/store"
)

// DefaultMaxFileSize caps indexable file size (2 MB).
const DefaultMaxFileSize = 2 * 1024 * 1024

// FileInfo describes one observed file.
type FileInfo struct {
	// AbsPath is the absolute path on disk.
	AbsPath string

	// RelPath is the path relative to the owning source root.
	RelPath string

	// Size in bytes.
	Size int64

	// ModTime is the last modification time.
	ModTime time.Time

	// Extension without the leading dot, lowercased.
	Extension string

	// Kind is the classification: code, markdown, or text.
	Kind string
}

// ScanResult is one item in the scan stream: a file or a traversal error.
// Per-file errors never appear here; they are logged and skipped.
type ScanResult struct {
	File *FileInfo
	Err  error
}

// Options configures a scan pass.
type Options struct {
	// Source is the root being scanned.
	Source *store.Source

	// Include and Exclude are glob patterns with ** semantics, matched
	// against the relative path. Empty Include means everything.
	Include []string
	Exclude []string

	// MtimeFloor skips files not modified since this time. Zero disables.
	MtimeFloor time.Time

	// MaxFileSize caps file size; larger files are skipped.
	MaxFileSize int64

	// Owner resolves overlapping-source ownership. When set, files owned by
	// a different source are skipped.
	Owner *Owner
}
