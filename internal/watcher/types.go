// Package watcher keeps indexes current by watching source roots for
// filesystem changes. Events are debounced per source; a quiet window after
// the last event triggers one incremental pass. Events arriving during a
// running pass queue exactly one follow-up pass.
package watcher

import (
	"context"
	"time"

	"github.com/seekspace/seekd/internal/store"
)

// Operation is a filesystem operation type.
type Operation int

const (
	OpCreate Operation = iota
	OpModify
	OpDelete
	OpRename
)

// String returns a human-readable representation of the operation.
func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpModify:
		return "MODIFY"
	case OpDelete:
		return "DELETE"
	case OpRename:
		return "RENAME"
	default:
		return "UNKNOWN"
	}
}

// FileEvent is one observed filesystem event.
type FileEvent struct {
	Path      string
	Operation Operation
	IsDir     bool
	Timestamp time.Time
}

// Reindexer runs an incremental pass over a source. Implemented by the index
// coordinator; stubbed in tests.
type Reindexer interface {
	IndexSource(ctx context.Context, src *store.Source, full bool) (*store.IndexOutcome, error)
}
